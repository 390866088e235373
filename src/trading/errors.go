package trading

import (
	"errors"
	"fmt"
	"net/http"

	"evergreen/src/connectors"
)

// Kind classifies a trading failure independently of transport.
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindConstraintViolation Kind = "CONSTRAINT_VIOLATION"
	KindNotFound            Kind = "NOT_FOUND"
	KindConflict            Kind = "CONFLICT"
	KindUpstream            Kind = "UPSTREAM"
	KindInternal            Kind = "INTERNAL"
)

// Stable machine-readable codes.
const (
	CodeInvalidOrder          = "invalid_order"
	CodeValidationError       = "validation_error"
	CodeInsufficientBalance   = "insufficient_balance"
	CodeMissingReferencePrice = "missing_reference_price"
	CodeOrderNotFound         = "order_not_found"
	CodeCannotCancel          = "cannot_cancel"
	CodeMissingExchangeID     = "missing_exchange_id"
	CodeOrderBlocked          = "order_blocked"
	CodeUpbitError            = "upbit_error"
	CodeInternalError         = "internal_error"
)

// Error is returned by every trading operation that fails for a reason the caller
// can act on. Status is the HTTP status it maps to.
type Error struct {
	Kind           Kind
	Code           string
	Status         int
	Message        string
	Details        []string
	UpstreamStatus int
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}

// CodeOf returns the code of err, CodeInternalError for anything unclassified.
func CodeOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeInternalError
}

func invalidOrder(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidOrder, Status: http.StatusUnprocessableEntity, Message: message}
}

// ValidationFailed reports structurally broken requests, one detail per problem.
func ValidationFailed(details ...string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeValidationError,
		Status:  http.StatusBadRequest,
		Message: "Request validation failed",
		Details: details,
	}
}

func insufficientBalance(message string) *Error {
	return &Error{Kind: KindConstraintViolation, Code: CodeInsufficientBalance, Status: http.StatusUnprocessableEntity, Message: message}
}

func missingReferencePrice() *Error {
	return &Error{
		Kind:    KindConstraintViolation,
		Code:    CodeMissingReferencePrice,
		Status:  http.StatusUnprocessableEntity,
		Message: "Cannot estimate notional for MARKET_SELL without reference price",
	}
}

func orderNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: CodeOrderNotFound, Status: http.StatusNotFound, Message: "Order not found"}
}

func conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Status: http.StatusConflict, Message: message}
}

// upstream wraps an exchange failure. An Upbit HTTP error keeps its status and body.
func upstream(err error) *Error {
	e := &Error{
		Kind:    KindUpstream,
		Code:    CodeUpbitError,
		Status:  http.StatusBadGateway,
		Message: "Upbit request failed",
		Err:     err,
	}

	var apiErr *connectors.UpbitAPIError
	if errors.As(err, &apiErr) {
		e.UpstreamStatus = apiErr.StatusCode
		if apiErr.Body != "" {
			e.Message = apiErr.Body
		}
		if apiErr.StatusCode >= 400 && apiErr.StatusCode <= 599 {
			e.Status = apiErr.StatusCode
		}
	}
	return e
}

func internal(err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    CodeInternalError,
		Status:  http.StatusInternalServerError,
		Message: "Unexpected server error",
		Err:     err,
	}
}
