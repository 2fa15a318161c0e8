package chapa

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of ClientInterface
type MockClient struct {
	mock.Mock
}

var _ ClientInterface = new(MockClient)

func (c *MockClient) InitializePayment(ctx context.Context, paymentRequest PaymentRequest) (*Checkout, error) {
	args := c.Called(ctx, paymentRequest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Checkout), args.Error(1)
}

func (c *MockClient) VerifyTransaction(ctx context.Context, txRef string) (*Verification, error) {
	args := c.Called(ctx, txRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Verification), args.Error(1)
}

func (c *MockClient) GetBanks(ctx context.Context) ([]Bank, error) {
	args := c.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Bank), args.Error(1)
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

// NewMockClient creates a new instance of MockClient. It also registers a testing interface on the mock and a
// cleanup function to assert the mocks expectations.
func NewMockClient(t testInterface) *MockClient {
	mock := &MockClient{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
