package data

import (
	"fmt"
	"strings"
)

type PaymentStatus string

const (
	InitiatedPaymentStatus PaymentStatus = "INITIATED"
	SuccessPaymentStatus   PaymentStatus = "SUCCESS"
	FailedPaymentStatus    PaymentStatus = "FAILED"
)

// Validate validates the payment status
func (status PaymentStatus) Validate() error {
	switch PaymentStatus(strings.ToUpper(string(status))) {
	case InitiatedPaymentStatus, SuccessPaymentStatus, FailedPaymentStatus:
		return nil
	default:
		return fmt.Errorf("invalid payment status: %s", status)
	}
}

// TransitionTo transitions the payment status to the target state
func (status PaymentStatus) TransitionTo(targetState PaymentStatus) error {
	return PaymentStateMachineWithInitialState(status).TransitionTo(targetState.State())
}

// PaymentStateMachineWithInitialState returns a state machine for payments initialized with the given state
func PaymentStateMachineWithInitialState(initialState PaymentStatus) *StateMachine {
	transitions := []StateTransition{
		{From: InitiatedPaymentStatus.State(), To: SuccessPaymentStatus.State()}, // provider settles the charge
		{From: InitiatedPaymentStatus.State(), To: FailedPaymentStatus.State()},  // provider rejects or the charge expires
	}

	return NewStateMachine(initialState.State(), transitions)
}

// PaymentStatuses returns a list of all possible payment statuses
func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{InitiatedPaymentStatus, SuccessPaymentStatus, FailedPaymentStatus}
}

// ToPaymentStatus converts a string to a PaymentStatus
func ToPaymentStatus(s string) (PaymentStatus, error) {
	err := PaymentStatus(s).Validate()
	if err != nil {
		return "", err
	}

	return PaymentStatus(strings.ToUpper(s)), nil
}

func (status PaymentStatus) State() State {
	return State(status)
}
