package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/palmpay/palmpay/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidUserType = errors.New("invalid user type")
	ErrInvalidTemplate = errors.New("invalid palm template")
	ErrNegativeBalance = errors.New("wallet balance cannot be negative")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTemplate ensures a template has exactly the expected number of
// non-empty descriptor sets.
func validateTemplate(tpl model.Template, frames int) error {
	if tpl == nil {
		return fmt.Errorf("%w: template", ErrNilParameter)
	}
	if len(tpl) != frames {
		return fmt.Errorf("%w: expected %d descriptor sets, got %d", ErrInvalidTemplate, frames, len(tpl))
	}
	for i, set := range tpl {
		if len(set) == 0 {
			return fmt.Errorf("%w: descriptor set %d is empty", ErrInvalidTemplate, i)
		}
	}
	return nil
}

// validateTransaction validates a ledger entry before insert.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.UserID <= 0 {
		return fmt.Errorf("%w: missing user id", ErrNilParameter)
	}
	if txn.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrNilParameter)
	}
	return nil
}
