package server

import (
	"context"
	"testing"
	"time"

	"github.com/toozej/go-thoroughbred/internal/metrics"
	"github.com/toozej/go-thoroughbred/internal/store"
	"github.com/toozej/go-thoroughbred/pkg/config"
)

func TestNewServer(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 0},
	}
	memory := store.NewMemoryStore()

	server := NewServer(cfg, nil, Dependencies{Store: memory, Metrics: metrics.NewRecorder()})

	if server.config != cfg {
		t.Error("Expected server config to match provided config")
	}
	if server.router == nil {
		t.Error("Expected router to be initialized")
	}
	if server.logger == nil {
		t.Error("Expected logger to be created from configuration")
	}
	if server.rateLimiter == nil || server.securityMiddleware == nil || server.loggingMiddleware == nil {
		t.Error("Expected middleware to be initialized")
	}
	if server.deps.Store != memory {
		t.Error("Expected store dependency to be kept")
	}
}

func TestNewServer_NilConfigPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected NewServer to panic on nil configuration")
		}
	}()
	NewServer(nil, nil, Dependencies{})
}

func TestServer_StopBeforeStart(t *testing.T) {
	server := NewServer(&config.Config{}, nil, Dependencies{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Errorf("Expected stopping an idle server to succeed, got %v", err)
	}
}

func TestServer_StartStop(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
	}
	server := NewServer(cfg, nil, Dependencies{})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Errorf("Failed to stop server: %v", err)
	}

	select {
	case <-serverErr:
	case <-time.After(5 * time.Second):
		t.Error("Server did not return after shutdown")
	}
}
