package httpclient

import (
	"net"
	"net/http"
	"time"
)

type HTTPClientInterface interface {
	Do(*http.Request) (*http.Response, error)
}

const TimeoutClientInSeconds = 40

// DefaultClient returns a default HTTP client with a timeout.
func DefaultClient() HTTPClientInterface {
	return &http.Client{Timeout: TimeoutClientInSeconds * time.Second}
}

// PaymentProviderClient returns an HTTP client tuned for payment provider
// calls: 10s to establish the connection, 20s for the whole exchange.
func PaymentProviderClient() HTTPClientInterface {
	return &http.Client{
		Timeout: 20 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

var _ HTTPClientInterface = DefaultClient()
