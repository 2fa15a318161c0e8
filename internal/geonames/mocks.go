package geonames

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of ClientInterface
type MockClient struct {
	mock.Mock
}

var _ ClientInterface = new(MockClient)

func (c *MockClient) SearchCities(ctx context.Context, countryCode string) ([]City, error) {
	args := c.Called(ctx, countryCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]City), args.Error(1)
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
