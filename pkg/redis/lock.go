package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLockNotAcquired is returned when another holder owns the lock
var ErrLockNotAcquired = errors.New("lock not acquired")

const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// Lock is a single-holder lease on a Redis key
type Lock struct {
	client *Client
	key    string
	token  string
}

// AcquireLock takes the lease on key for ttl. Only the holder that acquired
// the lock can release it; an expired lease may be taken by someone else.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.New().String()
	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &Lock{client: c, key: key, token: token}, nil
}

// Key returns the locked key
func (l *Lock) Key() string {
	return l.key
}

// Release drops the lease if it is still held by this lock
func (l *Lock) Release(ctx context.Context) error {
	n, err := l.client.EvalWithFallback(ctx, "release_lock", releaseLockScript, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockNotAcquired
	}
	return nil
}
