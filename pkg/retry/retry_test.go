package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestNew_WithZeroValues(t *testing.T) {
	retrier := New(&Config{})

	if retrier.config.InitialInterval != 1*time.Second {
		t.Errorf("InitialInterval = %v, want 1s (default)", retrier.config.InitialInterval)
	}
	if retrier.config.MaxInterval != 30*time.Second {
		t.Errorf("MaxInterval = %v, want 30s (default)", retrier.config.MaxInterval)
	}
	if retrier.config.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0 (default)", retrier.config.Multiplier)
	}
}

func TestNew_DoesNotMutateCallerConfig(t *testing.T) {
	cfg := &Config{JitterFactor: 3}
	New(cfg)
	if cfg.JitterFactor != 3 {
		t.Errorf("caller config mutated: JitterFactor = %f", cfg.JitterFactor)
	}
}

func TestRetrier_Do(t *testing.T) {
	transient := errors.New("transient")
	fatal := errors.New("fatal")

	tests := []struct {
		name         string
		cfg          *Config
		failures     int
		failWith     error
		wantErr      error
		wantAttempts int
	}{
		{"success first try", fastConfig(3), 0, nil, nil, 1},
		{"success after retries", fastConfig(5), 2, transient, nil, 3},
		{"max retries exceeded", fastConfig(2), 10, transient, ErrMaxRetriesExceeded, 3},
		{"no retries", fastConfig(0), 10, transient, ErrMaxRetriesExceeded, 1},
		{"permanent error stops", fastConfig(5), 10, Permanent(fatal), fatal, 1},
		{
			name: "RetryIf rejects error",
			cfg: func() *Config {
				c := fastConfig(5)
				c.RetryIf = func(err error) bool { return errors.Is(err, transient) }
				return c
			}(),
			failures:     10,
			failWith:     fatal,
			wantErr:      fatal,
			wantAttempts: 1,
		},
		{
			name: "RetryIf accepts error",
			cfg: func() *Config {
				c := fastConfig(5)
				c.RetryIf = func(err error) bool { return errors.Is(err, transient) }
				return c
			}(),
			failures:     1,
			failWith:     transient,
			wantErr:      nil,
			wantAttempts: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			result := New(tt.cfg).Do(context.Background(), func(ctx context.Context) error {
				calls++
				if calls <= tt.failures {
					return tt.failWith
				}
				return nil
			})

			if !errors.Is(result.Err, tt.wantErr) && result.Err != tt.wantErr {
				t.Errorf("Err = %v, want %v", result.Err, tt.wantErr)
			}
			if result.Attempts != tt.wantAttempts {
				t.Errorf("Attempts = %d, want %d", result.Attempts, tt.wantAttempts)
			}
			if calls != tt.wantAttempts {
				t.Errorf("operation called %d times, want %d", calls, tt.wantAttempts)
			}
		})
	}
}

func TestRetrier_Do_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := Do(ctx, fastConfig(3), func(ctx context.Context) error {
		t.Error("operation should not run with a canceled context")
		return nil
	})

	if !errors.Is(result.Err, ErrContextCanceled) {
		t.Errorf("Err = %v, want ErrContextCanceled", result.Err)
	}
}

func TestRetrier_DoWithCallback(t *testing.T) {
	var seen []int
	result := DoWithCallback(context.Background(), fastConfig(3), func(ctx context.Context) error {
		return errors.New("boom")
	}, func(attempt int, err error, next time.Duration) {
		seen = append(seen, attempt)
	})

	if !errors.Is(result.Err, ErrMaxRetriesExceeded) {
		t.Errorf("Err = %v, want ErrMaxRetriesExceeded", result.Err)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Errorf("callback attempts = %v, want [1 2 3]", seen)
	}
	if result.LastError == nil || result.LastError.Error() != "boom" {
		t.Errorf("LastError = %v, want boom", result.LastError)
	}
}

func TestCalculateInterval_Capped(t *testing.T) {
	r := New(&Config{InitialInterval: 10 * time.Millisecond, MaxInterval: 50 * time.Millisecond, Multiplier: 2})

	want := []time.Duration{10, 20, 40, 50, 50}
	for attempt, w := range want {
		if got := r.calculateInterval(attempt); got != w*time.Millisecond {
			t.Errorf("calculateInterval(%d) = %v, want %v", attempt, got, w*time.Millisecond)
		}
	}
}
