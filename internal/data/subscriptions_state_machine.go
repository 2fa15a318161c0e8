package data

import (
	"fmt"
	"strings"
)

type SubscriptionStatus string

const (
	InitiatedSubscriptionStatus SubscriptionStatus = "INITIATED"
	CompletedSubscriptionStatus SubscriptionStatus = "COMPLETED"
	FailedSubscriptionStatus    SubscriptionStatus = "FAILED"
)

// Validate validates the subscription status
func (status SubscriptionStatus) Validate() error {
	switch SubscriptionStatus(strings.ToUpper(string(status))) {
	case InitiatedSubscriptionStatus, CompletedSubscriptionStatus, FailedSubscriptionStatus:
		return nil
	default:
		return fmt.Errorf("invalid subscription status: %s", status)
	}
}

// TransitionTo transitions the subscription status to the target state
func (status SubscriptionStatus) TransitionTo(targetState SubscriptionStatus) error {
	return SubscriptionStateMachineWithInitialState(status).TransitionTo(targetState.State())
}

// SubscriptionStateMachineWithInitialState returns a state machine for subscription purchases, starting from the
// provided initial state.
func SubscriptionStateMachineWithInitialState(initialState SubscriptionStatus) *StateMachine {
	transitions := []StateTransition{
		{From: InitiatedSubscriptionStatus.State(), To: CompletedSubscriptionStatus.State()}, // settlement confirms the charge
		{From: InitiatedSubscriptionStatus.State(), To: FailedSubscriptionStatus.State()},    // provider rejects or the charge expires
	}

	return NewStateMachine(initialState.State(), transitions)
}

// SubscriptionStatuses returns a list of all possible subscription statuses
func SubscriptionStatuses() []SubscriptionStatus {
	return []SubscriptionStatus{InitiatedSubscriptionStatus, CompletedSubscriptionStatus, FailedSubscriptionStatus}
}

// ToSubscriptionStatus converts a string to a SubscriptionStatus
func ToSubscriptionStatus(s string) (SubscriptionStatus, error) {
	err := SubscriptionStatus(s).Validate()
	if err != nil {
		return "", err
	}

	return SubscriptionStatus(strings.ToUpper(s)), nil
}

// State returns the state of the subscription status
func (status SubscriptionStatus) State() State {
	return State(status)
}
