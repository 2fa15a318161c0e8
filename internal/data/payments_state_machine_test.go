package data

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_PaymentStatus_ToPaymentStatus(t *testing.T) {
	tests := []struct {
		name   string
		actual string
		want   PaymentStatus
		err    error
	}{
		{
			name:   "valid entry",
			actual: "SUCCESS",
			want:   SuccessPaymentStatus,
			err:    nil,
		},
		{
			name:   "valid lower case",
			actual: "initiated",
			want:   InitiatedPaymentStatus,
			err:    nil,
		},
		{
			name:   "valid weird case",
			actual: "FaIlEd",
			want:   FailedPaymentStatus,
			err:    nil,
		},
		{
			name:   "invalid entry",
			actual: "NOT_VALID",
			want:   InitiatedPaymentStatus,
			err:    fmt.Errorf("invalid payment status: NOT_VALID"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToPaymentStatus(tt.actual)

			if tt.err != nil {
				require.EqualError(t, err, tt.err.Error())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func Test_PaymentStatus_TransitionTo(t *testing.T) {
	tests := []struct {
		name   string
		actual PaymentStatus
		target PaymentStatus
		err    error
	}{
		{
			name:   "provider settles the charge",
			actual: InitiatedPaymentStatus,
			target: SuccessPaymentStatus,
			err:    nil,
		},
		{
			name:   "provider rejects the charge",
			actual: InitiatedPaymentStatus,
			target: FailedPaymentStatus,
			err:    nil,
		},
		{
			name:   "settled payments are final",
			actual: SuccessPaymentStatus,
			target: FailedPaymentStatus,
			err:    fmt.Errorf("cannot transition from SUCCESS to FAILED"),
		},
		{
			name:   "failed payments are final",
			actual: FailedPaymentStatus,
			target: SuccessPaymentStatus,
			err:    fmt.Errorf("cannot transition from FAILED to SUCCESS"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.actual.TransitionTo(tt.target)

			if tt.err != nil {
				require.EqualError(t, err, tt.err.Error())
				return
			}
			require.NoError(t, err)
		})
	}
}

func Test_PaymentStatus_PaymentStatuses(t *testing.T) {
	expectedStatuses := []PaymentStatus{InitiatedPaymentStatus, SuccessPaymentStatus, FailedPaymentStatus}
	require.Equal(t, expectedStatuses, PaymentStatuses())
}
