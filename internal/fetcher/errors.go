package fetcher

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents the category of error that occurred while producing a record
type ErrorType string

const (
	// ErrorTypeNetwork indicates a transport failure (connection refused, DNS, timeout)
	ErrorTypeNetwork ErrorType = "NetworkError"
	// ErrorTypeHTTP indicates the quote page answered with a non-2xx status
	ErrorTypeHTTP ErrorType = "HttpError"
	// ErrorTypeParse indicates the page arrived but the snapshot table could not be read
	ErrorTypeParse ErrorType = "ParseError"
)

// FetchError represents a structured error from a fetch operation
type FetchError struct {
	Type       ErrorType
	Retryable  bool
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewNetworkError creates a network error. The message is the cause's text so
// it can be shown to users as-is.
func NewNetworkError(cause error) *FetchError {
	msg := "network request failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &FetchError{
		Type:      ErrorTypeNetwork,
		Retryable: true,
		Message:   msg,
		Cause:     cause,
	}
}

// NewHTTPError creates an error for a non-2xx response. Status errors are
// never retried.
func NewHTTPError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeHTTP,
		Retryable:  false,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
	}
}

// NewParseError creates a parse error
func NewParseError(message string, cause error) *FetchError {
	return &FetchError{
		Type:    ErrorTypeParse,
		Message: message,
		Cause:   cause,
	}
}

// IsTransient reports whether err is a transport-level failure worth retrying.
// Caller cancellation is not transient; anything else the transport surfaces
// (refused, reset, EOF, DNS, per-request deadline) is.
func IsTransient(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}
