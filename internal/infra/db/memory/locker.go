package memory

import (
	"context"
	"sync"
	"time"

	"telegram-channel-subscription/internal/domain"

	"github.com/google/uuid"
)

// Locker is the single-process counterpart of the Redis locker.
type Locker struct {
	mu    sync.Mutex
	held  map[string]lease
	clock func() time.Time
}

type lease struct {
	token   string
	expires time.Time
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]lease), clock: time.Now}
}

func (l *Locker) TryLock(_ context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return "", domain.ErrSweepInProgress
	}
	token := uuid.NewString()
	l.held[key] = lease{token: token, expires: now.Add(ttl)}
	return token, nil
}

func (l *Locker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[key]; ok && cur.token == token {
		delete(l.held, key)
	}
	return nil
}
