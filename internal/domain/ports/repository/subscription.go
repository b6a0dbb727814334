package repository

import (
	"context"
	"time"

	"telegram-channel-subscription/internal/domain/model"
)

// SubscriptionRepository is the port for (user, channel) -> expiry rows.
// It is the source of truth for access state.
type SubscriptionRepository interface {
	// Upsert atomically writes the expiry for the pair, replacing any previous one.
	Upsert(ctx context.Context, sub model.Subscription) error
	Find(ctx context.Context, userID, channelID int64) (*model.Subscription, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Subscription, error)
	// ListExpired returns rows with expires_at <= now in (expires_at, user_id, channel_id)
	// order, starting strictly after the cursor (nil = from the start), at most limit rows
	// (0 = no limit).
	ListExpired(ctx context.Context, now time.Time, after *ExpiredCursor, limit int) ([]model.Subscription, error)
	// Delete removes the row only if its expiry still equals expiresAt, so a
	// renewal written after the row was read survives. Reports whether a row was removed.
	Delete(ctx context.Context, userID, channelID int64, expiresAt time.Time) (bool, error)
	CountActive(ctx context.Context, now time.Time) (int, error)
}

// ExpiredCursor is a keyset position in the expired-row ordering.
type ExpiredCursor struct {
	ExpiresAt time.Time
	UserID    int64
	ChannelID int64
}

// CursorAt returns the position of sub.
func CursorAt(sub model.Subscription) *ExpiredCursor {
	return &ExpiredCursor{ExpiresAt: sub.ExpiresAt, UserID: sub.UserID, ChannelID: sub.ChannelID}
}

// Precedes reports whether sub sorts strictly after the cursor.
func (c *ExpiredCursor) Precedes(sub model.Subscription) bool {
	if c == nil {
		return true
	}
	switch {
	case !c.ExpiresAt.Equal(sub.ExpiresAt):
		return c.ExpiresAt.Before(sub.ExpiresAt)
	case c.UserID != sub.UserID:
		return c.UserID < sub.UserID
	default:
		return c.ChannelID < sub.ChannelID
	}
}

// ExpiredLess orders subscriptions the way ListExpired pages through them.
func ExpiredLess(a, b model.Subscription) bool {
	return CursorAt(a).Precedes(b)
}
