package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/fikir-app/fikir-backend/internal/monitor"
	"github.com/fikir-app/fikir-backend/internal/serve/httpclient"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

const (
	initializePath = "/v1/transaction/initialize"
	verifyPath     = "/v1/transaction/verify"
	banksPath      = "/v1/banks"
)

type ClientInterface interface {
	InitializePayment(ctx context.Context, paymentRequest PaymentRequest) (*Checkout, error)
	VerifyTransaction(ctx context.Context, txRef string) (*Verification, error)
	GetBanks(ctx context.Context) ([]Bank, error)
}

// Client calls the ChAPA REST API.
type Client struct {
	BasePath       string
	SecretKey      string
	httpClient     httpclient.HTTPClientInterface
	monitorService monitor.MonitorServiceInterface
}

// NewClient creates a new instance of ChAPA Client.
func NewClient(basePath, secretKey string, monitorService monitor.MonitorServiceInterface) *Client {
	return &Client{
		BasePath:       basePath,
		SecretKey:      secretKey,
		httpClient:     httpclient.PaymentProviderClient(),
		monitorService: monitorService,
	}
}

// InitializePayment creates a hosted checkout for the given transaction.
// https://developer.chapa.co/docs/accept-payments.
func (client *Client) InitializePayment(ctx context.Context, paymentRequest PaymentRequest) (*Checkout, error) {
	err := paymentRequest.validate()
	if err != nil {
		return nil, fmt.Errorf("validating payment request: %w", err)
	}

	u, err := url.JoinPath(client.BasePath, initializePath)
	if err != nil {
		return nil, fmt.Errorf("building path: %w", err)
	}

	paymentData, err := json.Marshal(paymentRequest)
	if err != nil {
		return nil, err
	}

	resp, err := client.request(ctx, u, http.MethodPost, "transaction/initialize", bytes.NewBuffer(paymentData))
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}

	env, err := parseEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var checkoutData struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err = json.Unmarshal(env.Data, &checkoutData); err != nil {
		return nil, fmt.Errorf("unmarshalling checkout data: %w", err)
	}
	if checkoutData.CheckoutURL == "" {
		return nil, fmt.Errorf("provider returned no checkout URL for tx_ref %s", paymentRequest.TxRef)
	}

	return &Checkout{CheckoutURL: checkoutData.CheckoutURL, TxRef: paymentRequest.TxRef}, nil
}

// VerifyTransaction asks the provider for the authoritative state of a
// transaction. Transient failures are retried with backoff; business
// rejections are not.
// https://developer.chapa.co/docs/verify-payments.
func (client *Client) VerifyTransaction(ctx context.Context, txRef string) (*Verification, error) {
	if txRef == "" {
		return nil, fmt.Errorf("txRef is required")
	}

	u, err := url.JoinPath(client.BasePath, verifyPath, txRef)
	if err != nil {
		return nil, fmt.Errorf("building path: %w", err)
	}

	var verification *Verification
	err = retry.Do(
		func() error {
			var verifyErr error
			verification, verifyErr = client.verifyOnce(ctx, u)
			if verifyErr != nil {
				if !IsUnavailable(verifyErr) {
					return retry.Unrecoverable(verifyErr)
				}
				return verifyErr
			}
			return nil
		},
		retry.Attempts(3),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("verifying transaction %s: %w", txRef, err)
	}

	return verification, nil
}

func (client *Client) verifyOnce(ctx context.Context, u string) (*Verification, error) {
	resp, err := client.request(ctx, u, http.MethodGet, "transaction/verify", nil)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}

	env, err := parseEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var verification Verification
	if err = json.Unmarshal(env.Data, &verification); err != nil {
		return nil, fmt.Errorf("unmarshalling verification data: %w", err)
	}

	return &verification, nil
}

// GetBanks lists the payout-capable Ethiopian banks.
// https://developer.chapa.co/docs/transfers.
func (client *Client) GetBanks(ctx context.Context) ([]Bank, error) {
	u, err := url.JoinPath(client.BasePath, banksPath)
	if err != nil {
		return nil, fmt.Errorf("building path: %w", err)
	}

	resp, err := client.request(ctx, u, http.MethodGet, "banks", nil)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}

	env, err := parseEnvelope(resp)
	if err != nil {
		return nil, err
	}

	banks := []Bank{}
	if err = json.Unmarshal(env.Data, &banks); err != nil {
		return nil, fmt.Errorf("unmarshalling banks data: %w", err)
	}

	return banks, nil
}

// envelope is the provider's standard response wrapper. The banks endpoint
// omits the outer status field.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func parseEnvelope(resp *http.Response) (*envelope, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		apiError, parseErr := parseAPIError(resp)
		if parseErr != nil {
			return nil, fmt.Errorf("parsing API error: %w", parseErr)
		}
		return nil, fmt.Errorf("API error: %w", apiError)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var env envelope
	if err = json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshalling response body: %w", err)
	}

	if env.Status != "" && env.Status != "success" {
		return nil, fmt.Errorf("API error: %w", &APIError{StatusCode: resp.StatusCode, Status: env.Status, Message: env.Message})
	}
	return &env, nil
}

// request makes an authenticated HTTP request to the ChAPA API and records
// the call on the provider metrics.
func (client *Client) request(ctx context.Context, u, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", client.SecretKey))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	startedAt := time.Now()
	resp, err := client.httpClient.Do(req)
	client.monitorRequest(ctx, method, endpoint, resp, err, time.Since(startedAt))
	return resp, err
}

func (client *Client) monitorRequest(ctx context.Context, method, endpoint string, resp *http.Response, reqErr error, duration time.Duration) {
	if client.monitorService == nil {
		return
	}

	labels := monitor.ChapaLabels{
		Method:   method,
		Endpoint: endpoint,
		Status:   "success",
	}
	if reqErr != nil {
		labels.Status = "error"
	} else {
		labels.StatusCode = strconv.Itoa(resp.StatusCode)
		if resp.StatusCode >= http.StatusBadRequest {
			labels.Status = "error"
		}
	}

	if err := client.monitorService.MonitorHistogram(duration.Seconds(), monitor.ChapaAPIRequestDurationTag, labels.ToMap()); err != nil {
		log.Ctx(ctx).Errorf("monitoring chapa request duration: %v", err)
	}
	if err := client.monitorService.MonitorCounters(monitor.ChapaAPIRequestsTotalTag, labels.ToMap()); err != nil {
		log.Ctx(ctx).Errorf("monitoring chapa request count: %v", err)
	}
}

// IsUnavailable reports whether err should be handled as a provider outage
// (network failure, timeout, 5xx) rather than a business rejection.
func IsUnavailable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return err != nil
}

var _ ClientInterface = (*Client)(nil)
