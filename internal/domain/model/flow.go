package model

import (
	"fmt"

	"telegram-channel-subscription/internal/domain"
)

// FlowState is the position of a user's access request for one channel.
//
// No per-claim state is stored: every button carries the whole claim, and the store only
// records approved subscriptions. The transition table is therefore a description of the
// flow the buttons render, not a guard against replays. Replayed or stale buttons are
// handled by the operations themselves (ownership checks, last-write-wins approval).
type FlowState string

const (
	FlowBrowsing       FlowState = "browsing"
	FlowPlanSelected   FlowState = "plan_selected"
	FlowPaymentClaimed FlowState = "payment_claimed"
	FlowApproved       FlowState = "approved"
	FlowRejected       FlowState = "rejected"
)

// Transition is a valid move between flow states.
type Transition struct {
	From FlowState
	To   FlowState
}

var validTransitions = map[Transition]bool{
	{FlowBrowsing, FlowPlanSelected}:       true,
	{FlowPlanSelected, FlowPlanSelected}:   true, // picked another plan
	{FlowPlanSelected, FlowPaymentClaimed}: true,
	{FlowPaymentClaimed, FlowApproved}:     true,
	{FlowPaymentClaimed, FlowRejected}:     true,
}

// CanTransition reports whether from -> to is allowed. Any state may restart at Browsing.
func CanTransition(from, to FlowState) bool {
	if to == FlowBrowsing {
		return true
	}
	return validTransitions[Transition{from, to}]
}

// Terminal reports whether no further transitions happen without a restart.
func (s FlowState) Terminal() bool { return s == FlowApproved || s == FlowRejected }

// StateOf returns the state a flow is in once the action has been accepted.
func StateOf(kind ActionKind) FlowState {
	switch kind {
	case ActionSelectPlan:
		return FlowPlanSelected
	case ActionPaid:
		return FlowPaymentClaimed
	case ActionApprove:
		return FlowApproved
	case ActionReject:
		return FlowRejected
	}
	return FlowBrowsing
}

// precondition is the state an action is pressed from.
func precondition(kind ActionKind) FlowState {
	switch kind {
	case ActionSelectPlan:
		return FlowBrowsing
	case ActionPaid:
		return FlowPlanSelected
	case ActionApprove, ActionReject:
		return FlowPaymentClaimed
	}
	return FlowBrowsing
}

// Advance returns the state an action leads to. The source state is implied by the
// action, so for the four known kinds this always succeeds; the error is for unknown kinds.
func Advance(kind ActionKind) (FlowState, error) {
	from, to := precondition(kind), StateOf(kind)
	if to == FlowBrowsing || !CanTransition(from, to) {
		return from, fmt.Errorf("%w: no transition for %q", domain.ErrInvalidCallback, kind)
	}
	return to, nil
}
