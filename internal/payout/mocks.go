package payout

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fikir-app/fikir-backend/internal/data"
)

// MockPayouter is a mock implementation of Payouter
type MockPayouter struct {
	mock.Mock
}

var _ Payouter = new(MockPayouter)

func (p *MockPayouter) Pay(ctx context.Context, withdrawal *data.Withdrawal) (*Result, error) {
	args := p.Called(ctx, withdrawal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

// NewMockPayouter creates a new instance of MockPayouter. It also registers a testing interface on the mock and a
// cleanup function to assert the mocks expectations.
func NewMockPayouter(t testInterface) *MockPayouter {
	mock := &MockPayouter{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
