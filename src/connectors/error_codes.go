package connectors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Upbit error names that callers branch on.
const (
	UpbitErrInsufficientFunds = "insufficient_funds_bid"
	UpbitErrInsufficientAsk   = "insufficient_funds_ask"
	UpbitErrUnderMinTotal     = "under_min_total_bid"
	UpbitErrOrderNotFound     = "order_not_found"
	UpbitErrInvalidQueryHash  = "invalid_query_payload"
	UpbitErrJwtVerification   = "jwt_verification"
	UpbitErrTooManyRequests   = "too_many_requests"
)

// UpbitAPIError is a non-2xx answer from the exchange. Body keeps the raw payload.
type UpbitAPIError struct {
	StatusCode int
	Body       string
	Name       string
	Message    string
}

func (e *UpbitAPIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("upbit HTTP %d: %s: %s", e.StatusCode, e.Name, e.Message)
	}
	return fmt.Sprintf("upbit HTTP %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an Upbit 404 or an order_not_found answer.
func IsNotFound(err error) bool {
	var apiErr *UpbitAPIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.Name == UpbitErrOrderNotFound
}

func newUpbitAPIError(status int, body []byte) *UpbitAPIError {
	apiErr := &UpbitAPIError{StatusCode: status, Body: string(body)}
	var payload struct {
		Error struct {
			Name    json.RawMessage `json:"name"`
			Message string          `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		// name is a string on most endpoints and a number on a few
		var name string
		if json.Unmarshal(payload.Error.Name, &name) != nil {
			name = string(payload.Error.Name)
		}
		apiErr.Name = name
		apiErr.Message = payload.Error.Message
	}
	return apiErr
}
