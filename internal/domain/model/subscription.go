package model

import (
	"time"
)

// Subscription is the single active expiry for a (user, channel) pair.
// A renewal overwrites ExpiresAt; durations never stack.
type Subscription struct {
	UserID    int64
	ChannelID int64
	ExpiresAt time.Time
}

// Expired reports whether the subscription is due for revocation at now.
func (s Subscription) Expired(now time.Time) bool { return !s.ExpiresAt.After(now) }

// Remaining returns how long access is left, or zero when expired.
func (s Subscription) Remaining(now time.Time) time.Duration {
	if s.Expired(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// PaymentClaim is carried through callback payloads between the user's
// "I have paid" and the administrator's decision. It is never persisted.
type PaymentClaim struct {
	UserID    int64
	ChannelID int64
	Minutes   int
}

// Claimant describes the user asserting payment, for the admin alert.
type Claimant struct {
	ID        int64
	FirstName string
	Username  string
}
