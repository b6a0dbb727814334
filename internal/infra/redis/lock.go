// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"time"

	"telegram-channel-subscription/internal/domain"

	"github.com/google/uuid"
)

// RedisLocker is a best-effort distributed lock: SETNX with a random token,
// released only by the holder.
type RedisLocker struct {
	cli     RedisClient
	retries int
	backoff time.Duration
}

func NewLocker(c RedisClient) *RedisLocker {
	return &RedisLocker{cli: c, retries: 3, backoff: 50 * time.Millisecond}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	var lastErr error
	for i := 0; i < l.retries; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl)
		if err != nil {
			lastErr = err
		} else if ok {
			return token, nil
		} else {
			lastErr = domain.ErrSweepInProgress
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.backoff):
		}
	}
	return "", lastErr
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := l.cli.DelIfEquals(ctx, key, token)
	return err
}
