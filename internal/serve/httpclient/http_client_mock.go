package httpclient

import (
	"net/http"

	"github.com/stretchr/testify/mock"
)

type HTTPClientMock struct {
	mock.Mock
}

func (h *HTTPClientMock) Do(req *http.Request) (*http.Response, error) {
	args := h.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

// NewHTTPClientMock creates a new instance of HTTPClientMock. It also registers a testing interface on the mock and a
// cleanup function to assert the mocks expectations.
func NewHTTPClientMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *HTTPClientMock {
	mock := &HTTPClientMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

var _ HTTPClientInterface = (*HTTPClientMock)(nil)
