package model

import (
	"strings"
	"time"

	"telegram-channel-subscription/internal/domain"
)

// Channel is a chat destination whose membership is gated by payment.
type Channel struct {
	ID        int64
	Name      string
	AdminID   int64
	Plans     Catalog
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewChannel validates and constructs a channel with an empty catalog.
func NewChannel(id int64, name string, adminID int64) (*Channel, error) {
	name = strings.TrimSpace(name)
	if id == 0 || adminID <= 0 || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Channel{
		ID:        id,
		Name:      name,
		AdminID:   adminID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (c *Channel) IsZero() bool { return c == nil || c.ID == 0 }

// Plan looks up the plan for a duration.
func (c *Channel) Plan(minutes int) (Plan, error) {
	if p, ok := c.Plans.Find(minutes); ok {
		return p, nil
	}
	return Plan{}, domain.ErrPlanNotFound
}
