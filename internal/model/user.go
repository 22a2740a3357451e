// Package model defines the core domain types for the palm wallet.
package model

import "time"

// UserType is the enrollment category for a user.
type UserType string

// Known user categories.
const (
	UserTypePermanent UserType = "Permanent"
	UserTypeTourist   UserType = "Tourist"
)

// Valid reports whether the type is one of the known categories.
func (t UserType) Valid() bool {
	switch t {
	case UserTypePermanent, UserTypeTourist:
		return true
	default:
		return false
	}
}

// User is one enrolled identity with its wallet balance and palm template.
// The ID is assigned by the store; the balance is mutated only through the
// ledger's debit protocol.
type User struct {
	RegisteredAt time.Time
	Name         string
	Type         UserType
	Template     Template
	Balance      float64
	ID           int64
}
