// Package ledger records debits against verified identities.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/palmpay/palmpay/internal/common"
	"github.com/palmpay/palmpay/internal/model"
	"github.com/palmpay/palmpay/internal/service"
)

// Ledger performs the atomic balance-check-and-debit protocol on top of
// the identity store.
type Ledger struct {
	storage service.Storage
}

// New creates a ledger over the given storage.
func New(storage service.Storage) *Ledger {
	return &Ledger{storage: storage}
}

// Charge debits amount from the user's wallet and appends a ledger entry,
// as one storage transaction. Stored amounts are signed deltas: the entry
// for a debit is negative, while the returned receipt carries the positive
// charged amount. If the balance cannot cover the amount, nothing is
// mutated and an insufficient-funds error with the current balance is
// returned. Concurrent charges against the same user serialize on the
// conditional debit; at most one of two competing charges that together
// exceed the balance can succeed.
func (l *Ledger) Charge(ctx context.Context, userID int64, amount float64) (*model.Receipt, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: charge amount must be positive, got %.2f", common.ErrInvalidAmount, amount)
	}

	tx, err := l.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin charge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	newBalance, err := tx.DebitBalance(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	txn := &model.Transaction{
		UserID:    userID,
		Amount:    -amount,
		Timestamp: time.Now().UTC(),
	}
	if err := tx.SaveTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit charge: %w", err)
	}

	slog.Info("charge committed",
		"user_id", userID,
		"amount", amount,
		"new_balance", newBalance,
		"transaction_id", txn.ID)

	return &model.Receipt{
		ID:         uuid.NewString(),
		UserID:     userID,
		Amount:     amount,
		NewBalance: newBalance,
		Timestamp:  txn.Timestamp,
	}, nil
}

// History returns the user's recorded transactions, oldest first. It
// fails with a not-found error for unknown users rather than returning an
// empty history.
func (l *Ledger) History(ctx context.Context, userID int64) ([]model.Transaction, error) {
	if _, err := l.storage.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return l.storage.GetTransactionsByUser(ctx, userID)
}
