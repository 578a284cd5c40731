package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Wire error codes carried in the "error" field of error responses.
const (
	ErrCodeInvalidRequest      = "invalid_request"
	ErrCodeUnauthorized        = "unauthorized"
	ErrCodeScopeBlocked        = "scope_blocked"
	ErrCodeNotFound            = "not_found"
	ErrCodeAlreadyTerminal     = "already_terminal"
	ErrCodeConflict            = "conflict"
	ErrCodeUpstreamUnavailable = "upstream_unavailable"
	ErrCodeInternal            = "internal_error"
)

// RequestError is a service-layer failure that maps directly to an HTTP
// response: status, wire error code, reason code, and a human message.
type RequestError struct {
	Status     int
	Code       string
	ReasonCode ReasonCode
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// NewRequestError builds a RequestError.
func NewRequestError(status int, code string, reason ReasonCode, message string) *RequestError {
	return &RequestError{Status: status, Code: code, ReasonCode: reason, Message: message}
}

// BadRequest is the structural-parse failure: 400 invalid_request with the
// first offending field in the message.
func BadRequest(message string) *RequestError {
	return NewRequestError(http.StatusBadRequest, ErrCodeInvalidRequest, ReasonNone, message)
}

// AsRequestError unwraps err into a RequestError, or wraps it as a 500.
func AsRequestError(err error) *RequestError {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr
	}
	return NewRequestError(http.StatusInternalServerError, ErrCodeInternal, ReasonFailedInternalError, err.Error())
}
