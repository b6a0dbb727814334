package memory

import (
	"context"
	"sync"
	"time"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/repository"
)

var _ repository.PromptRepository = (*PromptRepo)(nil)

type storedPrompt struct {
	prompt model.PendingPrompt
	setAt  time.Time
}

// PromptRepo holds at most one pending prompt per administrator.
type PromptRepo struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	prompts map[int64]storedPrompt
}

// NewPromptRepo creates a store whose prompts lapse ttl after being set (0 disables expiry).
func NewPromptRepo(ttl time.Duration) *PromptRepo {
	return &PromptRepo{ttl: ttl, now: time.Now, prompts: make(map[int64]storedPrompt)}
}

func (r *PromptRepo) SetPrompt(_ context.Context, adminID int64, p *model.PendingPrompt) error {
	if p == nil {
		return domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[adminID] = storedPrompt{prompt: *p, setAt: r.now()}
	return nil
}

func (r *PromptRepo) GetPrompt(_ context.Context, adminID int64) (*model.PendingPrompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.prompts[adminID]
	if !ok {
		return nil, domain.ErrNoPendingPrompt
	}
	if r.ttl > 0 && r.now().Sub(sp.setAt) > r.ttl {
		delete(r.prompts, adminID)
		return nil, domain.ErrNoPendingPrompt
	}
	p := sp.prompt
	return &p, nil
}

func (r *PromptRepo) ClearPrompt(_ context.Context, adminID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.prompts, adminID)
	return nil
}
