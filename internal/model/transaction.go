package model

import "time"

// Transaction is one append-only ledger entry. Amounts are signed deltas
// against the wallet balance: a debit is stored negative.
type Transaction struct {
	Timestamp time.Time
	ID        int64
	UserID    int64
	Amount    float64
}

// Receipt is returned to the caller after a successful charge. Amount is
// the positive amount that was debited.
type Receipt struct {
	Timestamp  time.Time
	ID         string
	Name       string
	UserID     int64
	Amount     float64
	NewBalance float64
}
