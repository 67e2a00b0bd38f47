package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSweeper is a mock implementation of Sweeper
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// fakeLocker grants the lease unless another holder has it
type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	err      error
	released int
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
		return nil
	}, true, nil
}

func TestDefaultSessionSweeperConfig(t *testing.T) {
	cfg := DefaultSessionSweeperConfig()

	assert.Equal(t, time.Minute, cfg.Interval)
	assert.Less(t, cfg.LockTTL, cfg.Interval)
}

func TestSessionSweeper_RunOnce(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("SweepExpired", mock.Anything).Return(3, nil).Once()
	sweeper.On("SweepExpired", mock.Anything).Return(0, nil).Once()
	locker := &fakeLocker{}

	w := NewSessionSweeper(sweeper, locker, nil)

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	stats := w.GetStats()
	assert.Equal(t, int64(3), stats.TotalExpired)
	assert.Equal(t, 0, stats.LastExpiredCount)
	assert.Equal(t, 2, locker.released)
	sweeper.AssertExpectations(t)
}

func TestSessionSweeper_SkipsWhenLeaseHeld(t *testing.T) {
	sweeper := new(MockSweeper)
	locker := &fakeLocker{held: true}

	w := NewSessionSweeper(sweeper, locker, nil)

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(1), w.GetStats().Skipped)
	sweeper.AssertNotCalled(t, "SweepExpired", mock.Anything)
}

func TestSessionSweeper_LockError(t *testing.T) {
	sweeper := new(MockSweeper)
	locker := &fakeLocker{err: errors.New("redis down")}

	w := NewSessionSweeper(sweeper, locker, nil)

	_, err := w.RunOnce(context.Background())
	assert.Error(t, err)
	sweeper.AssertNotCalled(t, "SweepExpired", mock.Anything)
}

func TestSessionSweeper_SweepErrorReleasesLease(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("SweepExpired", mock.Anything).Return(1, errors.New("db timeout"))
	locker := &fakeLocker{}

	w := NewSessionSweeper(sweeper, locker, nil)

	n, err := w.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, locker.released)
	assert.False(t, locker.held)
}

func TestSessionSweeper_NoLocker(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("SweepExpired", mock.Anything).Return(2, nil)

	w := NewSessionSweeper(sweeper, nil, nil)

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSessionSweeper_StartStop(t *testing.T) {
	sweeper := new(MockSweeper)
	swept := make(chan struct{}, 10)
	sweeper.On("SweepExpired", mock.Anything).Return(0, nil).Run(func(mock.Arguments) {
		select {
		case swept <- struct{}{}:
		default:
		}
	})

	w := NewSessionSweeper(sweeper, &fakeLocker{}, &SessionSweeperConfig{
		Interval: 10 * time.Millisecond,
		LockTTL:  time.Second,
	})

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	assert.True(t, w.GetStats().IsRunning)

	for i := 0; i < 2; i++ {
		select {
		case <-swept:
		case <-time.After(time.Second):
			t.Fatal("sweeper did not run")
		}
	}

	w.Stop()
	assert.False(t, w.GetStats().IsRunning)
	// stopping twice is a no-op
	w.Stop()
}
