package adapter

import (
	"context"
	"time"
)

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// SendMessageParams describes one outbound message. When Photo is set the
// text is sent as its caption.
type SendMessageParams struct {
	ChatID   int64
	Text     string
	Buttons  [][]InlineButton
	Photo    []byte
	Markdown bool
}

// Notifier delivers messages to users and administrators. Delivery is best-effort.
type Notifier interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
}

// InviteIssuer creates single-use join credentials that stop working at expiresAt.
type InviteIssuer interface {
	CreateInvite(ctx context.Context, channelID int64, expiresAt time.Time) (string, error)
}

// MembershipEnforcer removes a user from a channel without a permanent ban.
// Revoking a user who is no longer a member succeeds.
type MembershipEnforcer interface {
	Revoke(ctx context.Context, channelID, userID int64) error
}

// QRGenerator renders payment payloads as PNG images.
type QRGenerator interface {
	Generate(content string, size int) ([]byte, error)
}
