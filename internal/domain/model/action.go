package model

import (
	"fmt"
	"strconv"
	"strings"

	"telegram-channel-subscription/internal/domain"
)

// ActionKind identifies a button press in the subscription flow.
type ActionKind string

const (
	ActionSelectPlan ActionKind = "sel"
	ActionPaid       ActionKind = "paid"
	ActionApprove    ActionKind = "ok"
	ActionReject     ActionKind = "no"
)

// maxCallbackData is Telegram's limit for inline button payloads.
const maxCallbackData = 64

// Action is the stateless payload of a flow button: kind:user:channel:minutes.
// It carries everything needed to resume the flow from the event alone.
type Action struct {
	Kind      ActionKind
	UserID    int64
	ChannelID int64
	Minutes   int
}

// NewAction builds an action for a claim.
func NewAction(kind ActionKind, c PaymentClaim) Action {
	return Action{Kind: kind, UserID: c.UserID, ChannelID: c.ChannelID, Minutes: c.Minutes}
}

// Claim returns the (user, channel, duration) triple carried by the action.
func (a Action) Claim() PaymentClaim {
	return PaymentClaim{UserID: a.UserID, ChannelID: a.ChannelID, Minutes: a.Minutes}
}

func (a Action) Encode() string {
	return fmt.Sprintf("%s:%d:%d:%d", a.Kind, a.UserID, a.ChannelID, a.Minutes)
}

// IsAction reports whether data looks like a flow action payload.
func IsAction(data string) bool {
	kind, _, ok := strings.Cut(data, ":")
	if !ok {
		return false
	}
	switch ActionKind(kind) {
	case ActionSelectPlan, ActionPaid, ActionApprove, ActionReject:
		return true
	}
	return false
}

// ParseAction decodes a payload produced by Encode.
func ParseAction(data string) (Action, error) {
	if len(data) > maxCallbackData {
		return Action{}, fmt.Errorf("%w: payload too long", domain.ErrInvalidCallback)
	}
	parts := strings.Split(data, ":")
	if len(parts) != 4 || !IsAction(data) {
		return Action{}, fmt.Errorf("%w: %q", domain.ErrInvalidCallback, data)
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || userID <= 0 {
		return Action{}, fmt.Errorf("%w: bad user id %q", domain.ErrInvalidCallback, parts[1])
	}
	channelID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || channelID == 0 {
		return Action{}, fmt.Errorf("%w: bad channel id %q", domain.ErrInvalidCallback, parts[2])
	}
	minutes, err := strconv.Atoi(parts[3])
	if err != nil || !ValidMinutes(minutes) {
		return Action{}, fmt.Errorf("%w: bad duration %q", domain.ErrInvalidCallback, parts[3])
	}
	return Action{Kind: ActionKind(parts[0]), UserID: userID, ChannelID: channelID, Minutes: minutes}, nil
}
