// Package payout abstracts the rail that moves approved withdrawals out of
// the platform. The stub adapter settles everything instantly; real bank and
// mobile-money adapters implement Payouter against the same contract.
package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/fikir-app/fikir-backend/internal/data"
)

// Status is the terminal outcome of one payout attempt.
type Status string

const (
	StatusPaid   Status = "PAID"
	StatusFailed Status = "FAILED"
)

// Result reports what the rail did with the withdrawal.
type Result struct {
	Status      Status
	ProviderRef string
	// FailureReason is set when Status is FAILED.
	FailureReason string
}

type Payouter interface {
	Pay(ctx context.Context, withdrawal *data.Withdrawal) (*Result, error)
}

// StubPayouter settles every withdrawal immediately with a synthetic
// provider reference. It stands in until the bank rails are connected.
type StubPayouter struct {
	nowFn func() time.Time
}

func NewStubPayouter() *StubPayouter {
	return &StubPayouter{nowFn: time.Now}
}

func (p *StubPayouter) Pay(_ context.Context, withdrawal *data.Withdrawal) (*Result, error) {
	if withdrawal == nil {
		return nil, fmt.Errorf("withdrawal is required")
	}

	return &Result{
		Status:      StatusPaid,
		ProviderRef: fmt.Sprintf("STUB-%s-%s", withdrawal.ID, p.nowFn().UTC().Format("20060102150405")),
	}, nil
}

var _ Payouter = (*StubPayouter)(nil)
