package middleware

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(0.001, 2) // effectively no refill during the test

	ip := "192.168.1.1"

	if !rl.Allow(ip) {
		t.Error("First request should be allowed")
	}
	if !rl.Allow(ip) {
		t.Error("Second request should be allowed")
	}
	if rl.Allow(ip) {
		t.Error("Third request should be denied")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := NewRateLimiter(20, 1)
	ip := "192.168.1.1"

	if !rl.Allow(ip) {
		t.Fatal("First request should be allowed")
	}
	time.Sleep(100 * time.Millisecond)
	if !rl.Allow(ip) {
		t.Error("Request after refill should be allowed")
	}
}

func TestRateLimiter_DifferentIPs(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)

	ip1 := "192.168.1.1"
	ip2 := "192.168.1.2"

	if !rl.Allow(ip1) {
		t.Error("First IP should be allowed")
	}
	if !rl.Allow(ip2) {
		t.Error("Second IP should be allowed")
	}
	if rl.Allow(ip1) {
		t.Error("First IP should be rate limited")
	}
	if rl.Allow(ip2) {
		t.Error("Second IP should be rate limited")
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	ip := "192.168.1.1"

	if !rl.Allow(ip) {
		t.Error("First request should be allowed")
	}
	if rl.Allow(ip) {
		t.Error("Second request should be denied")
	}

	rl.Reset(ip)

	if !rl.Allow(ip) {
		t.Error("Request after reset should be allowed")
	}
}

func TestRateLimiter_BurstFloor(t *testing.T) {
	rl := NewRateLimiter(1, 0)
	if !rl.Allow("10.0.0.1") {
		t.Error("expected a zero burst to be raised to one")
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	current := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }

	rl.Allow("10.0.0.1")
	current = current.Add(15 * time.Minute)
	rl.Allow("10.0.0.2")

	if removed := rl.Sweep(10 * time.Minute); removed != 1 {
		t.Errorf("expected 1 idle visitor removed, got %d", removed)
	}
	if n := rl.size(); n != 1 {
		t.Errorf("expected 1 visitor left, got %d", n)
	}
}

func TestRateLimiter_RunStopsOnCancel(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		rl.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := NewRateLimiter(0.001, 10)
	ip := "192.168.1.1"

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow(ip) {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Errorf("Expected exactly 10 requests to be allowed, got %d", allowed)
	}
}
