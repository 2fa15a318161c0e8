package events

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPublisher is a mock implementation of Publisher.
type MockPublisher struct {
	mock.Mock
}

var _ Publisher = new(MockPublisher)

func (p *MockPublisher) Publish(ctx context.Context, messages ...Message) error {
	args := p.Called(ctx, messages)
	return args.Error(0)
}

func (p *MockPublisher) Close() error {
	args := p.Called()
	return args.Error(0)
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

// NewMockPublisher creates a new instance of MockPublisher. It also registers a testing interface on the mock and a
// cleanup function to assert the mocks expectations.
func NewMockPublisher(t testInterface) *MockPublisher {
	mock := &MockPublisher{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
