package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiterNoBlockWhenZeroRPS(t *testing.T) {
	limiter := NewLimiter(0, 0.5)

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Errorf("limiter with 0 RPS should not block")
	}
}

func TestLimiterSpacing(t *testing.T) {
	limiter := NewLimiter(10, 0) // 100ms interval
	defer limiter.Stop()

	ctx := context.Background()

	// discard the first tick; the ticker starts counting on creation
	_ = limiter.Wait(ctx)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := time.Since(start)
	if d < 50*time.Millisecond || d > 150*time.Millisecond {
		t.Errorf("expected wait around 100ms, took %v", d)
	}
}

func TestLimiterContextCancellation(t *testing.T) {
	limiter := NewLimiter(0.2, 0) // 5 second interval
	defer limiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := limiter.Wait(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("cancellation should interrupt the wait promptly")
	}
}
