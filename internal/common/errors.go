// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Store errors.
	ErrNotFound       = errors.New("not found")
	ErrStoreIntegrity = errors.New("store integrity error")

	// Capture errors.
	ErrInsufficientDetail = errors.New("insufficient palm detail")
	ErrCaptureCancelled   = errors.New("capture cancelled")

	// Verification errors.
	ErrNoEnrolledUsers  = errors.New("no enrolled users")
	ErrNoConfidentMatch = errors.New("no confident match")

	// Ledger errors.
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Configuration errors.
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

// InsufficientFundsError carries the current balance for user-facing
// messaging when a charge cannot be covered.
type InsufficientFundsError struct {
	Balance   float64
	Requested float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %.2f, requested %.2f", e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	// A frame without enough detail is always worth retrying with the next
	// frame; everything else depends on the retryable wrapper.
	if errors.Is(err, ErrInsufficientDetail) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
