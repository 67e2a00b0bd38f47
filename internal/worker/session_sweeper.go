package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/pkg/logger"
	pkgredis "github.com/prohmpiriya/hotel-booking-engine/pkg/redis"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.uber.org/zap"
)

const sweepLockKey = "hotel:payment-sessions:sweep"

// Sweeper expires overdue payment sessions
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Locker hands out a lease so one replica sweeps at a time.
// acquired is false when another holder owns the lease.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// RedisLocker is a Locker backed by a Redis lease
type RedisLocker struct {
	client *pkgredis.Client
}

// NewRedisLocker creates a Locker on client
func NewRedisLocker(client *pkgredis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// TryLock takes the lease on key for ttl
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	lock, err := l.client.AcquireLock(ctx, key, ttl)
	if errors.Is(err, pkgredis.ErrLockNotAcquired) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return lock.Release, true, nil
}

// SessionSweeperConfig contains configuration for the session sweeper
type SessionSweeperConfig struct {
	// Interval is the time between sweeps
	Interval time.Duration
	// LockTTL bounds how long one sweep may hold the lease
	LockTTL time.Duration
}

// DefaultSessionSweeperConfig returns default configuration
func DefaultSessionSweeperConfig() *SessionSweeperConfig {
	return &SessionSweeperConfig{
		Interval: 60 * time.Second,
		LockTTL:  50 * time.Second,
	}
}

// SessionSweeper periodically expires PENDING sessions past their deadline
type SessionSweeper struct {
	sweeper Sweeper
	locker  Locker
	config  *SessionSweeperConfig
	log     *logger.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// Stats
	totalExpired     int64
	skipped          int64
	lastSweepTime    time.Time
	lastExpiredCount int
}

// NewSessionSweeper creates a new session sweeper. A nil locker sweeps
// without coordination, which suits a single replica.
func NewSessionSweeper(sweeper Sweeper, locker Locker, config *SessionSweeperConfig) *SessionSweeper {
	if config == nil {
		config = DefaultSessionSweeperConfig()
	}
	return &SessionSweeper{
		sweeper: sweeper,
		locker:  locker,
		config:  config,
		log:     logger.Get(),
		stopCh:  make(chan struct{}),
	}
}

// Start starts the sweep loop
func (w *SessionSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("session sweeper already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting session sweeper", zap.Duration("interval", w.config.Interval))

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop stops the sweep loop and waits for an in-flight sweep
func (w *SessionSweeper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Session sweeper stopped")
}

func (w *SessionSweeper) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs one sweep if the lease can be taken and returns how many
// sessions it expired
func (w *SessionSweeper) RunOnce(ctx context.Context) (int, error) {
	if w.locker != nil {
		release, acquired, err := w.locker.TryLock(ctx, sweepLockKey, w.config.LockTTL)
		if err != nil {
			w.log.Error("Failed to take sweep lease", zap.Error(err))
			return 0, err
		}
		if !acquired {
			w.mu.Lock()
			w.skipped++
			w.mu.Unlock()
			telemetry.AddSpanEvent(ctx, "sweep.skipped")
			w.log.Debug("Sweep lease held elsewhere, skipping")
			return 0, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				w.log.Warn("Failed to release sweep lease", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	n, err := w.sweeper.SweepExpired(ctx)

	w.mu.Lock()
	w.lastSweepTime = start
	w.lastExpiredCount = n
	w.totalExpired += int64(n)
	w.mu.Unlock()

	if err != nil {
		w.log.Error("Session sweep failed", zap.Error(err), zap.Int("expired", n))
		return n, err
	}
	if n > 0 {
		w.log.Info("Expired payment sessions", zap.Int("count", n))
	}
	return n, nil
}

// GetStats returns worker statistics
func (w *SessionSweeper) GetStats() *SessionSweeperStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &SessionSweeperStats{
		IsRunning:        w.running,
		TotalExpired:     w.totalExpired,
		Skipped:          w.skipped,
		LastSweepTime:    w.lastSweepTime,
		LastExpiredCount: w.lastExpiredCount,
	}
}

// SessionSweeperStats contains worker statistics
type SessionSweeperStats struct {
	IsRunning        bool      `json:"is_running"`
	TotalExpired     int64     `json:"total_expired"`
	Skipped          int64     `json:"skipped"`
	LastSweepTime    time.Time `json:"last_sweep_time"`
	LastExpiredCount int       `json:"last_expired_count"`
}
