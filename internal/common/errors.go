// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Store errors.
	ErrNotFound = errors.New("not found")

	// Model-service errors.
	ErrModelConnection = errors.New("model service connection failed")
	ErrModelRateLimit  = errors.New("model service rate limit exceeded")

	// Validation errors.
	ErrInvalidToolOutput = errors.New("tool output failed validation")

	// InsufficientData marks a recognized state that must be disclosed to the
	// user, not a failure.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNoMerchant means no merchant could be identified in a concept. It is
	// a soft no-op for callers, never surfaced as a failure.
	ErrNoMerchant = errors.New("no merchant identified")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// ErrorKind buckets an error for user-facing phrasing.
type ErrorKind string

// Error kinds surfaced to users.
const (
	KindAccess     ErrorKind = "access"
	KindValidation ErrorKind = "validation"
	KindData       ErrorKind = "data"
	KindTechnical  ErrorKind = "technical"
)

// ClassifyError maps an error to the bucket used when explaining it to the user.
func ClassifyError(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrModelConnection), errors.Is(err, ErrModelRateLimit),
		errors.Is(err, context.DeadlineExceeded):
		return KindAccess
	case errors.Is(err, ErrInvalidToolOutput):
		return KindValidation
	case errors.Is(err, ErrInsufficientData), errors.Is(err, ErrNotFound):
		return KindData
	default:
		return KindTechnical
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrModelRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
