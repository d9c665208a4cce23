package client

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned when no API token is supplied. It is
// raised before any network activity.
var ErrMissingCredential = errors.New("missing NCEI API token")

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than auth and 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and an exhausted daily quota.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassAuth represents a rejected or missing token.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassCircuitOpen represents requests refused by the circuit breaker.
	ErrorClassCircuitOpen ErrorClass = "circuit_open"
)

// AuthenticationError reports that the API rejected the token.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("NCEI authentication failed (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("NCEI authentication failed (status %d): %s", e.StatusCode, e.Message)
}

// MalformedResponseError reports a response body that does not have the
// expected shape.
type MalformedResponseError struct {
	Target string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response from %s: %s: %v", e.Target, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed response from %s: %s", e.Target, e.Reason)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// TransportError reports a failed request: a network failure, a non-2xx
// status, an exhausted quota or an open circuit.
type TransportError struct {
	Target     string
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	msg := fmt.Sprintf("NCEI %s error", e.Class)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Target != "" {
		msg += " for " + e.Target
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *TransportError) Retryable() bool {
	return shouldRetry(e.Class)
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// client, auth and circuit_open errors fail fast
		return false
	}
}

// ClassOf returns the ErrorClass of err, or "" if err carries none.
func ClassOf(err error) ErrorClass {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) || errors.Is(err, ErrMissingCredential) {
		return ErrorClassAuth
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return tErr.Class
	}
	return ""
}
