package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// NavigatorConfig controls the waits between navigation steps.
type NavigatorConfig struct {
	SettleDelay time.Duration
	ScrollDelay time.Duration
	PedigreeTab string
}

// DefaultNavigatorConfig returns the default navigator configuration.
func DefaultNavigatorConfig() NavigatorConfig {
	return NavigatorConfig{
		SettleDelay: 2 * time.Second,
		ScrollDelay: 500 * time.Millisecond,
		PedigreeTab: "Pedigri",
	}
}

// Navigator drives a page through the steps needed before the horse page
// content is complete.
type Navigator struct {
	config NavigatorConfig
	logger *logrus.Logger
}

// NewNavigator creates a new Navigator.
func NewNavigator(config NavigatorConfig, logger *logrus.Logger) *Navigator {
	return &Navigator{
		config: config,
		logger: logger,
	}
}

// Open loads url, lets lazily rendered rows appear, activates the pedigree
// tab when present and returns the final HTML. Only a load failure or a
// cancelled context is fatal; nothing is retried.
func (n *Navigator) Open(ctx context.Context, page Page, url string) (string, error) {
	start := time.Now()

	if err := page.Load(ctx, url); err != nil {
		return "", err
	}
	if err := page.Sleep(ctx, n.config.SettleDelay); err != nil {
		return "", err
	}

	if err := n.scroll(ctx, page); err != nil {
		return "", err
	}

	if n.config.PedigreeTab != "" {
		clicked, err := page.Click(ctx, n.config.PedigreeTab)
		switch {
		case err != nil:
			n.logger.WithError(err).WithFields(logrus.Fields{
				"component": "navigator",
				"operation": "pedigree_tab",
				"tab":       n.config.PedigreeTab,
			}).Warn("Failed to activate pedigree tab")
		case !clicked:
			n.logger.WithFields(logrus.Fields{
				"component": "navigator",
				"operation": "pedigree_tab",
				"tab":       n.config.PedigreeTab,
			}).Debug("Pedigree tab not present")
		default:
			if err := page.Sleep(ctx, n.config.SettleDelay); err != nil {
				return "", err
			}
		}
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to capture page: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"component":   "navigator",
		"operation":   "open",
		"url":         url,
		"html_bytes":  len(html),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Page content captured")

	return html, nil
}

// scroll moves to the bottom of the page and back so lazy rows render.
func (n *Navigator) scroll(ctx context.Context, page Page) error {
	steps := []string{
		"window.scrollTo(0, document.body.scrollHeight); true",
		"window.scrollTo(0, 0); true",
	}
	for _, js := range steps {
		var done bool
		if err := page.Evaluate(ctx, js, &done); err != nil {
			n.logger.WithError(err).WithFields(logrus.Fields{
				"component": "navigator",
				"operation": "scroll",
			}).Warn("Failed to scroll page")
			return nil
		}
		if err := page.Sleep(ctx, n.config.ScrollDelay); err != nil {
			return err
		}
	}
	return nil
}
