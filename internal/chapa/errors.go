package chapa

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError represents a non-success response from the ChAPA API.
type APIError struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	// StatusCode is the HTTP status code.
	StatusCode int `json:"status_code,omitempty"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("APIError: StatusCode=%d, Status=%s, Message=%s", e.StatusCode, e.Status, e.Message)
}

// parseAPIError parses the error response from the ChAPA API. Bodies that
// are not the JSON envelope (gateway error pages) still yield a usable error.
func parseAPIError(resp *http.Response) (*APIError, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading error response body: %w", err)
	}
	defer resp.Body.Close()

	apiErr := APIError{StatusCode: resp.StatusCode}
	if unmarshalErr := json.Unmarshal(body, &apiErr); unmarshalErr != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	apiErr.StatusCode = resp.StatusCode

	return &apiErr, nil
}
