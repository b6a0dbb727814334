package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrChannelNotFound  = fmt.Errorf("channel: %w", ErrNotFound)
	ErrPlanNotFound     = fmt.Errorf("plan: %w", ErrNotFound)
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidFormat    = errors.New("invalid plan format")
	ErrUnauthorized     = errors.New("not allowed for this user")
	ErrOperationFailed  = errors.New("storage operation failed")
	ErrReadDatabaseRow  = errors.New("failed to read database row")
	ErrInvalidCallback  = errors.New("invalid callback payload")
	ErrSweepInProgress  = errors.New("sweep already in progress")
	ErrNoPendingPrompt  = fmt.Errorf("pending prompt: %w", ErrNotFound)
	ErrInvalidExecutor  = errors.New("invalid executor passed to repository")
	ErrPlatformResponse = errors.New("unexpected platform response")

	// Kinds of external platform failures.
	ErrIssuer   = errors.New("invite issuer failed")
	ErrEnforcer = errors.New("membership enforcer failed")
)

// PlatformError is returned by the chat platform adapters. It unwraps to both
// its Kind (ErrIssuer or ErrEnforcer) and the underlying platform error.
type PlatformError struct {
	Op        string
	ChannelID int64
	UserID    int64
	Kind      error
	Err       error
}

func (e *PlatformError) Error() string {
	if e.UserID != 0 {
		return fmt.Sprintf("%s channel=%d user=%d: %v: %v", e.Op, e.ChannelID, e.UserID, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s channel=%d: %v: %v", e.Op, e.ChannelID, e.Kind, e.Err)
}

func (e *PlatformError) Unwrap() []error { return []error{e.Kind, e.Err} }

// NewIssuerError wraps a failed invite creation.
func NewIssuerError(channelID int64, err error) error {
	return &PlatformError{Op: "create_invite", ChannelID: channelID, Kind: ErrIssuer, Err: err}
}

// NewEnforcerError wraps a failed membership revocation.
func NewEnforcerError(op string, channelID, userID int64, err error) error {
	return &PlatformError{Op: op, ChannelID: channelID, UserID: userID, Kind: ErrEnforcer, Err: err}
}
