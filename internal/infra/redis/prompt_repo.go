package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/repository"
)

var _ repository.PromptRepository = (*PromptRepo)(nil)

// PromptRepo keeps administrators' pending prompts in Redis.
type PromptRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewPromptRepo(client RedisClient) *PromptRepo {
	return &PromptRepo{
		client: client,
		ttl:    15 * time.Minute, // admins get 15 minutes to answer a prompt
	}
}

func (s *PromptRepo) promptKey(adminID int64) string {
	return fmt.Sprintf("admin_prompt:%d", adminID)
}

func (s *PromptRepo) SetPrompt(ctx context.Context, adminID int64, p *model.PendingPrompt) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.promptKey(adminID), data, s.ttl)
}

func (s *PromptRepo) GetPrompt(ctx context.Context, adminID int64) (*model.PendingPrompt, error) {
	data, err := s.client.Get(ctx, s.promptKey(adminID))
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrNoPendingPrompt
		}
		return nil, err
	}

	var p model.PendingPrompt
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PromptRepo) ClearPrompt(ctx context.Context, adminID int64) error {
	return s.client.Del(ctx, s.promptKey(adminID))
}
