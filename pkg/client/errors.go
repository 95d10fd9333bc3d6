package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassOffline represents the offline payload synthesized by the
	// request router when neither network nor cache could answer.
	ErrorClassOffline ErrorClass = "offline"
)

// APIError represents a failed metadata API request.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("API %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsOffline reports whether err carries the offline payload, meaning the
// caller should render an offline state rather than a failure.
func IsOffline(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Class == ErrorClassOffline
}

// classOf returns the class of err, or "" when it is not an *APIError.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ""
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors will fail the same way again
		return false
	case ErrorClassServer:
		return true
	case ErrorClassRateLimit:
		return true
	case ErrorClassNetwork:
		return true
	case ErrorClassOffline:
		// already the router's last fallback
		return false
	default:
		return false
	}
}
