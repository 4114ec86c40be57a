package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNewRateLimiter(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		burst     int
		wantLimit rate.Limit
		wantBurst int
	}{
		{"configured rate and burst", 2.0, 5, rate.Limit(2.0), 5},
		{"zero rate disables limiting", 0, 3, rate.Inf, 3},
		{"negative rate disables limiting", -1, 3, rate.Inf, 3},
		{"zero burst clamped to one", 1.0, 0, rate.Limit(1.0), 1},
		{"negative burst clamped to one", 1.0, -4, rate.Limit(1.0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewRateLimiter(tt.rate, tt.burst)

			if limiter == nil || limiter.limiter == nil {
				t.Fatal("expected initialized limiter")
			}
			if got := limiter.limiter.Limit(); got != tt.wantLimit {
				t.Errorf("expected limit=%v, got %v", tt.wantLimit, got)
			}
			if got := limiter.limiter.Burst(); got != tt.wantBurst {
				t.Errorf("expected burst=%d, got %d", tt.wantBurst, got)
			}
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("TC-1: should allow burst of mail sends immediately", func(t *testing.T) {
		// Arrange
		limiter := NewRateLimiter(2.0, 3)
		ctx := context.Background()

		// Act
		start := time.Now()
		for i := range 3 {
			if err := limiter.Allow(ctx); err != nil {
				t.Fatalf("burst send %d should succeed: %v", i+1, err)
			}
		}

		// Assert
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("expected burst to complete quickly, took %v", elapsed)
		}
	})

	t.Run("TC-2: should reject send that cannot be admitted before deadline", func(t *testing.T) {
		// Arrange
		limiter := NewRateLimiter(1.0, 1)
		if err := limiter.Allow(context.Background()); err != nil {
			t.Fatalf("first send should succeed: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		// Act
		err := limiter.Allow(ctx)

		// Assert
		if err == nil {
			t.Error("expected second send to be rate limited")
		}
	})

	t.Run("TC-3: should return context error when canceled while waiting", func(t *testing.T) {
		// Arrange
		limiter := NewRateLimiter(0.5, 1)
		if err := limiter.Allow(context.Background()); err != nil {
			t.Fatalf("first send should succeed: %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())

		// Act
		errChan := make(chan error, 1)
		go func() {
			errChan <- limiter.Allow(ctx)
		}()
		time.Sleep(50 * time.Millisecond)
		cancel()

		// Assert
		select {
		case err := <-errChan:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Allow did not return after cancellation")
		}
	})

	t.Run("TC-4: should never block when limiting is disabled", func(t *testing.T) {
		// Arrange
		limiter := NewRateLimiter(0, 1)
		ctx := context.Background()

		// Act
		start := time.Now()
		for i := range 100 {
			if err := limiter.Allow(ctx); err != nil {
				t.Fatalf("send %d should succeed: %v", i+1, err)
			}
		}

		// Assert
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("expected unlimited sends to be immediate, took %v", elapsed)
		}
	})
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("reports negligible wait when token is available", func(t *testing.T) {
		limiter := NewRateLimiter(1.0, 1)

		waited, err := limiter.Wait(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if waited > 50*time.Millisecond {
			t.Errorf("expected immediate admission, waited %v", waited)
		}
	})

	t.Run("reports time held back by the limiter", func(t *testing.T) {
		limiter := NewRateLimiter(5.0, 1) // one token every 200ms
		if _, err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("first wait should succeed: %v", err)
		}

		waited, err := limiter.Wait(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if waited < 100*time.Millisecond {
			t.Errorf("expected wait of about 200ms, got %v", waited)
		}
		if waited > time.Second {
			t.Errorf("expected wait of about 200ms, got %v", waited)
		}
	})
}
