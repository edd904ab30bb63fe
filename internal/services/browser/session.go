// Package browser owns the headless Chrome process and hands out isolated
// pages to callers.
//
// One browser process is started lazily on first use and shared by every
// session. Each session runs in its own browser context so cookies and
// storage never leak between concurrent fetches.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

var (
	// ErrShutdown is returned by WithSession after Shutdown was called.
	ErrShutdown = errors.New("browser is shut down")
	// ErrNavigation wraps every failure to load a page.
	ErrNavigation = errors.New("navigation failed")
)

// SessionProvider hands out one isolated page per call.
type SessionProvider interface {
	// WithSession runs fn with a fresh page and closes the page on every
	// exit path, including panics.
	WithSession(ctx context.Context, fn func(ctx context.Context, page Page) error) error

	// Shutdown closes the shared browser. Later sessions fail with ErrShutdown.
	Shutdown() error
}

// Config holds browser launch and navigation settings.
type Config struct {
	Headless          bool
	ExecPath          string
	UserAgent         string
	NavigationTimeout time.Duration
}

// DefaultConfig returns the default browser configuration.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		NavigationTimeout: 45 * time.Second,
	}
}

// ChromeSessions implements SessionProvider on top of chromedp.
type ChromeSessions struct {
	config Config
	logger *logrus.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	closed        bool
}

// NewChromeSessions creates a session provider. No browser is started until
// the first session is requested.
func NewChromeSessions(config Config, logger *logrus.Logger) *ChromeSessions {
	if config.NavigationTimeout <= 0 {
		config.NavigationTimeout = DefaultConfig().NavigationTimeout
	}
	return &ChromeSessions{
		config: config,
		logger: logger,
	}
}

// browser returns the shared browser context, starting Chrome on first use.
func (c *ChromeSessions) browser() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrShutdown
	}
	if c.browserCtx != nil {
		return c.browserCtx, nil
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	}
	if c.config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if c.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.config.ExecPath))
	}
	if c.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.config.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	c.browserCtx = browserCtx
	c.browserCancel = browserCancel
	c.allocCancel = allocCancel

	c.logger.WithFields(logrus.Fields{
		"component": "browser",
		"operation": "start",
		"headless":  c.config.Headless,
	}).Info("Browser started")

	return browserCtx, nil
}

// WithSession implements SessionProvider.
func (c *ChromeSessions) WithSession(ctx context.Context, fn func(ctx context.Context, page Page) error) error {
	browserCtx, err := c.browser()
	if err != nil {
		return err
	}

	tabCtx, closeTab := chromedp.NewContext(browserCtx, chromedp.WithNewBrowserContext())
	defer closeTab()

	if err := chromedp.Run(tabCtx); err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"component": "browser",
		"operation": "open_session",
	}).Debug("Browser session opened")

	return fn(ctx, &chromePage{
		tab:     tabCtx,
		timeout: c.config.NavigationTimeout,
	})
}

// Shutdown implements SessionProvider.
func (c *ChromeSessions) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.browserCancel != nil {
		c.browserCancel()
		c.allocCancel()
		c.browserCtx = nil
		c.logger.WithFields(logrus.Fields{
			"component": "browser",
			"operation": "shutdown",
		}).Info("Browser closed")
	}
	return nil
}
