package data

import (
	"fmt"
	"strings"
)

type WithdrawalStatus string

const (
	PendingWithdrawalStatus  WithdrawalStatus = "PENDING"
	ApprovedWithdrawalStatus WithdrawalStatus = "APPROVED"
	RejectedWithdrawalStatus WithdrawalStatus = "REJECTED"
	PaidWithdrawalStatus     WithdrawalStatus = "PAID"
)

// Validate validates the withdrawal status
func (status WithdrawalStatus) Validate() error {
	switch WithdrawalStatus(strings.ToUpper(string(status))) {
	case PendingWithdrawalStatus, ApprovedWithdrawalStatus, RejectedWithdrawalStatus, PaidWithdrawalStatus:
		return nil
	default:
		return fmt.Errorf("invalid withdrawal status: %s", status)
	}
}

// TransitionTo transitions the withdrawal status to the target state
func (status WithdrawalStatus) TransitionTo(targetState WithdrawalStatus) error {
	return WithdrawalStateMachineWithInitialState(status).TransitionTo(targetState.State())
}

// WithdrawalStateMachineWithInitialState returns a state machine for withdrawal requests initialized with the given state
func WithdrawalStateMachineWithInitialState(initialState WithdrawalStatus) *StateMachine {
	transitions := []StateTransition{
		{From: PendingWithdrawalStatus.State(), To: ApprovedWithdrawalStatus.State()}, // admin approves
		{From: PendingWithdrawalStatus.State(), To: RejectedWithdrawalStatus.State()}, // admin rejects, hold released
		{From: ApprovedWithdrawalStatus.State(), To: PaidWithdrawalStatus.State()},    // payout adapter confirms
	}

	return NewStateMachine(initialState.State(), transitions)
}

// WithdrawalStatuses returns a list of all possible withdrawal statuses
func WithdrawalStatuses() []WithdrawalStatus {
	return []WithdrawalStatus{PendingWithdrawalStatus, ApprovedWithdrawalStatus, RejectedWithdrawalStatus, PaidWithdrawalStatus}
}

// ToWithdrawalStatus converts a string to a WithdrawalStatus
func ToWithdrawalStatus(s string) (WithdrawalStatus, error) {
	err := WithdrawalStatus(s).Validate()
	if err != nil {
		return "", err
	}

	return WithdrawalStatus(strings.ToUpper(s)), nil
}

func (status WithdrawalStatus) State() State {
	return State(status)
}
