package model

import "time"

// PromptKind is what the bot is waiting for from an administrator.
type PromptKind string

const (
	PromptAwaitingForward PromptKind = "awaiting_forward"
	PromptAwaitingPlans   PromptKind = "awaiting_plans"
)

// PendingPrompt replaces "treat the next message as the answer" dialogs.
// It is stored per administrator; the next free-text message is interpreted
// according to Kind.
type PendingPrompt struct {
	Kind        PromptKind `json:"kind"`
	ChannelID   int64      `json:"channel_id,omitempty"`
	ChannelName string     `json:"channel_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
