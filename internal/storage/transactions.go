package storage

import (
	"context"
	"fmt"

	"github.com/palmpay/palmpay/internal/model"
)

// SaveTransaction appends one ledger entry and fills in its assigned id.
// Entries are append-only; there is no update or single-row delete.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.saveTransactionTx(ctx, s.db, txn)
}

func (s *SQLiteStorage) saveTransactionTx(ctx context.Context, exec executor, txn *model.Transaction) error {
	if err := validateTransaction(txn); err != nil {
		return err
	}

	result, err := exec.ExecContext(ctx, `
		INSERT INTO transactions (user_id, amount, timestamp)
		VALUES (?, ?, ?)
	`, txn.UserID, txn.Amount, txn.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction id: %w", err)
	}
	txn.ID = id
	return nil
}

// GetTransactionsByUser returns a user's ledger entries, oldest first.
func (s *SQLiteStorage) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getTransactionsByUserTx(ctx, s.db, userID)
}

func (s *SQLiteStorage) getTransactionsByUserTx(ctx context.Context, exec executor, userID int64) ([]model.Transaction, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT transaction_id, user_id, amount, timestamp
		FROM transactions WHERE user_id = ? ORDER BY transaction_id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		if err := rows.Scan(&txn.ID, &txn.UserID, &txn.Amount, &txn.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}
