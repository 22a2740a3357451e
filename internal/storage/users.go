package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/palmpay/palmpay/internal/common"
	"github.com/palmpay/palmpay/internal/model"
)

// CreateUser persists a new enrollment. The store assigns the user id and
// the registration timestamp; the caller supplies the starting balance.
func (s *SQLiteStorage) CreateUser(ctx context.Context, name string, userType model.UserType, template model.Template, startingBalance float64) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.createUserTx(ctx, s.db, name, userType, template, startingBalance)
}

func (s *SQLiteStorage) createUserTx(ctx context.Context, exec executor, name string, userType model.UserType, template model.Template, startingBalance float64) (*model.User, error) {
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	if !userType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUserType, userType)
	}
	if err := validateTemplate(template, s.templateFrames); err != nil {
		return nil, err
	}
	if startingBalance < 0 {
		return nil, fmt.Errorf("%w: %.2f", ErrNegativeBalance, startingBalance)
	}

	registeredAt := time.Now().UTC()
	result, err := exec.ExecContext(ctx, `
		INSERT INTO users (name, user_type, wallet_balance, palm_template, registration_date)
		VALUES (?, ?, ?, ?, ?)
	`, name, string(userType), startingBalance, template.Encode(), registeredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user id: %w", err)
	}

	return &model.User{
		ID:           id,
		Name:         name,
		Type:         userType,
		Balance:      startingBalance,
		Template:     template,
		RegisteredAt: registeredAt,
	}, nil
}

// GetUser fetches a single user by id.
func (s *SQLiteStorage) GetUser(ctx context.Context, id int64) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getUserTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getUserTx(ctx context.Context, exec executor, id int64) (*model.User, error) {
	row := exec.QueryRowContext(ctx, `
		SELECT user_id, name, user_type, wallet_balance, palm_template, registration_date
		FROM users WHERE user_id = ?
	`, id)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns every enrolled user in ascending id order. The single
// SELECT gives the matcher a consistent snapshot and a deterministic scan
// order for its first-max tie-break.
func (s *SQLiteStorage) ListUsers(ctx context.Context) ([]model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listUsersTx(ctx, s.db)
}

func (s *SQLiteStorage) listUsersTx(ctx context.Context, exec executor) ([]model.User, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT user_id, name, user_type, wallet_balance, palm_template, registration_date
		FROM users ORDER BY user_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user     model.User
		userType string
		blob     []byte
	)
	if err := row.Scan(&user.ID, &user.Name, &userType, &user.Balance, &blob, &user.RegisteredAt); err != nil {
		return nil, err
	}
	user.Type = model.UserType(userType)

	tpl, err := model.DecodeTemplate(blob)
	if err != nil {
		// Corrupted persisted state; halt operations on this record.
		return nil, fmt.Errorf("%w: user %d: %v", common.ErrStoreIntegrity, user.ID, err)
	}
	user.Template = tpl
	return &user, nil
}

// UpdateBalance sets a user's wallet balance. Negative balances are
// rejected before touching the database.
func (s *SQLiteStorage) UpdateBalance(ctx context.Context, id int64, newBalance float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.updateBalanceTx(ctx, s.db, id, newBalance)
}

func (s *SQLiteStorage) updateBalanceTx(ctx context.Context, exec executor, id int64, newBalance float64) error {
	if newBalance < 0 {
		return fmt.Errorf("%w: %.2f", ErrNegativeBalance, newBalance)
	}

	result, err := exec.ExecContext(ctx, `UPDATE users SET wallet_balance = ? WHERE user_id = ?`, newBalance, id)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// DebitBalance subtracts amount from the wallet only if it is covered,
// in one conditional UPDATE so no concurrent charge can act on a stale
// balance. It returns the new balance.
func (s *SQLiteStorage) DebitBalance(ctx context.Context, id int64, amount float64) (float64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.debitBalanceTx(ctx, s.db, id, amount)
}

func (s *SQLiteStorage) debitBalanceTx(ctx context.Context, exec executor, id int64, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: debit must be positive, got %.2f", common.ErrInvalidAmount, amount)
	}

	result, err := exec.ExecContext(ctx, `
		UPDATE users SET wallet_balance = wallet_balance - ?
		WHERE user_id = ? AND wallet_balance >= ?
	`, amount, id, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to debit balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check debit result: %w", err)
	}

	if affected == 0 {
		// Either the user is missing or the balance cannot cover the
		// amount; probe to tell the two apart.
		var balance float64
		scanErr := exec.QueryRowContext(ctx, `SELECT wallet_balance FROM users WHERE user_id = ?`, id).Scan(&balance)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return 0, fmt.Errorf("user %d: %w", id, common.ErrNotFound)
		}
		if scanErr != nil {
			return 0, fmt.Errorf("failed to read balance: %w", scanErr)
		}
		return 0, &common.InsufficientFundsError{Balance: balance, Requested: amount}
	}

	var newBalance float64
	if err := exec.QueryRowContext(ctx, `SELECT wallet_balance FROM users WHERE user_id = ?`, id).Scan(&newBalance); err != nil {
		return 0, fmt.Errorf("failed to read new balance: %w", err)
	}
	return newBalance, nil
}

// DeleteUser removes the user and every transaction referencing it in one
// database transaction, so a crash mid-delete can never leave orphaned
// ledger entries.
func (s *SQLiteStorage) DeleteUser(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.deleteUserTx(ctx, tx, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) deleteUserTx(ctx context.Context, exec executor, id int64) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete transactions for user %d: %w", id, err)
	}

	result, err := exec.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", id, common.ErrNotFound)
	}
	return nil
}
