package repository

import (
	"context"

	"telegram-channel-subscription/internal/domain/model"
)

// PromptRepository keeps the pending prompt of each administrator.
type PromptRepository interface {
	SetPrompt(ctx context.Context, adminID int64, p *model.PendingPrompt) error
	// GetPrompt returns domain.ErrNoPendingPrompt when nothing is pending.
	GetPrompt(ctx context.Context, adminID int64) (*model.PendingPrompt, error)
	ClearPrompt(ctx context.Context, adminID int64) error
}
