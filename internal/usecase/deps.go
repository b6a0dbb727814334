package usecase

import (
	"context"
	"time"
)

// Translator renders user-facing texts.
type Translator interface {
	T(key string, args ...any) string
}

// Clock returns the current time. Use cases take one so tests can move time.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// Locker guards work that must not overlap across goroutines or processes.
// TryLock returns domain.ErrSweepInProgress when the key is held.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
