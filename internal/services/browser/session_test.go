package browser

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestChromeSessions_ShutdownBeforeStart(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	sessions := NewChromeSessions(DefaultConfig(), logger)

	if err := sessions.Shutdown(); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	// Shutdown is idempotent.
	if err := sessions.Shutdown(); err != nil {
		t.Fatalf("unexpected second shutdown error: %v", err)
	}

	called := false
	err := sessions.WithSession(context.Background(), func(context.Context, Page) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown, got %v", err)
	}
	if called {
		t.Error("expected the session callback not to run")
	}
}

func TestNewChromeSessions_DefaultTimeout(t *testing.T) {
	sessions := NewChromeSessions(Config{Headless: true}, logrus.New())
	if sessions.config.NavigationTimeout != 45*time.Second {
		t.Errorf("expected default timeout, got %v", sessions.config.NavigationTimeout)
	}
}

func TestChromePage_Sleep(t *testing.T) {
	page := &chromePage{}

	if err := page.Sleep(context.Background(), 0); err != nil {
		t.Errorf("expected zero sleep to return immediately, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := page.Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

var _ SessionProvider = (*ChromeSessions)(nil)
var _ Page = (*chromePage)(nil)
