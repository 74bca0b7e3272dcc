// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Session errors.
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session is processing another action")

	// Oracle errors.
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrMalformedResponse = errors.New("malformed oracle response")

	// Statement errors.
	ErrNoStatement           = errors.New("no statement summary available")
	ErrStatementNotUsable    = errors.New("statement status does not permit categorization")
	ErrNoCategorizedExpenses = errors.New("no categorized expense items")

	// Validation errors.
	ErrEmptySelection = errors.New("at least one objective must be selected")
	ErrNoRoadmap      = errors.New("no roadmap generated yet")
	ErrUnknownStep    = errors.New("unknown roadmap step")

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

// UserMessage extracts the user-facing text from an error chain, falling
// back to the given default for errors with no UserError in the chain.
func UserMessage(err error, fallback string) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	return fallback
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrOracleUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
