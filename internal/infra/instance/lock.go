package instance

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another process holds the lock file.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Guard keeps a single bot process per host. Two pollers on the same token
// would steal updates from each other.
type Guard struct {
	lock *flock.Flock
}

func Acquire(path string) (*Guard, error) {
	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	return &Guard{lock: l}, nil
}

func (g *Guard) Release() error {
	if g == nil || g.lock == nil {
		return nil
	}
	return g.lock.Unlock()
}
