package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/palmpay/palmpay/internal/common"
	"github.com/palmpay/palmpay/internal/model"
)

const testFrames = 5

// Helper function to create a migrated in-memory test storage.
func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:", testFrames)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Helper function to build a valid deterministic template.
func makeTestTemplate(seed byte, frames, count int) model.Template {
	tpl := make(model.Template, frames)
	for f := range tpl {
		set := make(model.DescriptorSet, count)
		for i := range set {
			for j := range set[i] {
				set[i][j] = seed + byte(f) + byte(i*3+j)
			}
		}
		tpl[f] = set
	}
	return tpl
}

func createTestUser(t *testing.T, store *SQLiteStorage, name string, balance float64) *model.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), name, model.UserTypePermanent, makeTestTemplate(1, testFrames, 4), balance)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func TestCreateUserAndGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	tpl := makeTestTemplate(7, testFrames, 6)
	created, err := store.CreateUser(ctx, "Asha", model.UserTypeTourist, tpl, 500.00)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if created.ID <= 0 {
		t.Errorf("Expected assigned user id, got %d", created.ID)
	}
	if created.RegisteredAt.IsZero() {
		t.Error("Expected registration timestamp to be set")
	}

	got, err := store.GetUser(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Name != "Asha" {
		t.Errorf("Name = %q, want %q", got.Name, "Asha")
	}
	if got.Type != model.UserTypeTourist {
		t.Errorf("Type = %q, want %q", got.Type, model.UserTypeTourist)
	}
	if got.Balance != 500.00 {
		t.Errorf("Balance = %.2f, want 500.00", got.Balance)
	}
	if len(got.Template) != testFrames {
		t.Fatalf("Template length = %d, want %d", len(got.Template), testFrames)
	}
	for f := range tpl {
		for i := range tpl[f] {
			if got.Template[f][i] != tpl[f][i] {
				t.Fatalf("Template descriptor %d/%d did not round-trip", f, i)
			}
		}
	}
}

func TestCreateUserValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	valid := makeTestTemplate(1, testFrames, 4)

	shortTpl := makeTestTemplate(1, testFrames-1, 4)
	emptySetTpl := makeTestTemplate(1, testFrames, 4)
	emptySetTpl[2] = model.DescriptorSet{}

	tests := []struct {
		wantErr  error
		template model.Template
		name     string
		userName string
		userType model.UserType
		balance  float64
	}{
		{name: "empty name", userName: "  ", userType: model.UserTypePermanent, template: valid, balance: 500, wantErr: ErrEmptyString},
		{name: "invalid user type", userName: "Asha", userType: model.UserType("Admin"), template: valid, balance: 500, wantErr: ErrInvalidUserType},
		{name: "nil template", userName: "Asha", userType: model.UserTypePermanent, template: nil, balance: 500, wantErr: ErrNilParameter},
		{name: "wrong frame count", userName: "Asha", userType: model.UserTypePermanent, template: shortTpl, balance: 500, wantErr: ErrInvalidTemplate},
		{name: "empty descriptor set", userName: "Asha", userType: model.UserTypePermanent, template: emptySetTpl, balance: 500, wantErr: ErrInvalidTemplate},
		{name: "negative balance", userName: "Asha", userType: model.UserTypePermanent, template: valid, balance: -1, wantErr: ErrNegativeBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.CreateUser(ctx, tt.userName, tt.userType, tt.template, tt.balance)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateUser error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("Expected no users after failed creates, got %d", len(users))
	}
}

func TestGetUserNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetUser(context.Background(), 999)
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListUsersAscendingOrder(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("Expected empty store, got %d users", len(users))
	}

	createTestUser(t, store, "Asha", 500)
	createTestUser(t, store, "Ravi", 500)
	createTestUser(t, store, "Meera", 500)

	users, err = store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("Expected 3 users, got %d", len(users))
	}
	for i := 1; i < len(users); i++ {
		if users[i].ID <= users[i-1].ID {
			t.Errorf("Users out of order: id %d followed by %d", users[i-1].ID, users[i].ID)
		}
	}
}

func TestUpdateBalance(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	user := createTestUser(t, store, "Asha", 500)

	if err := store.UpdateBalance(ctx, user.ID, 123.45); err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}

	got, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Balance != 123.45 {
		t.Errorf("Balance = %.2f, want 123.45", got.Balance)
	}

	if err := store.UpdateBalance(ctx, user.ID, -0.01); !errors.Is(err, ErrNegativeBalance) {
		t.Errorf("Expected ErrNegativeBalance, got %v", err)
	}
	if err := store.UpdateBalance(ctx, 999, 10); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDebitBalance(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	user := createTestUser(t, store, "Asha", 500)

	newBalance, err := store.DebitBalance(ctx, user.ID, 120)
	if err != nil {
		t.Fatalf("DebitBalance failed: %v", err)
	}
	if newBalance != 380 {
		t.Errorf("New balance = %.2f, want 380.00", newBalance)
	}

	// Draining the wallet exactly is allowed.
	newBalance, err = store.DebitBalance(ctx, user.ID, 380)
	if err != nil {
		t.Fatalf("DebitBalance to zero failed: %v", err)
	}
	if newBalance != 0 {
		t.Errorf("New balance = %.2f, want 0.00", newBalance)
	}
}

func TestDebitBalanceInsufficientFunds(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	user := createTestUser(t, store, "Asha", 100)

	_, err := store.DebitBalance(ctx, user.ID, 100.01)
	var insufficient *common.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientFundsError, got %v", err)
	}
	if insufficient.Balance != 100 {
		t.Errorf("Reported balance = %.2f, want 100.00", insufficient.Balance)
	}
	if !errors.Is(err, common.ErrInsufficientFunds) {
		t.Error("Expected error to unwrap to ErrInsufficientFunds")
	}

	// Balance untouched after the refused debit.
	got, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Balance != 100 {
		t.Errorf("Balance = %.2f, want 100.00", got.Balance)
	}
}

func TestDebitBalanceErrors(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if _, err := store.DebitBalance(ctx, 999, 10); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	user := createTestUser(t, store, "Asha", 500)
	if _, err := store.DebitBalance(ctx, user.ID, 0); !errors.Is(err, common.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for zero debit, got %v", err)
	}
	if _, err := store.DebitBalance(ctx, user.ID, -5); !errors.Is(err, common.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for negative debit, got %v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	user := createTestUser(t, store, "Asha", 500)
	other := createTestUser(t, store, "Ravi", 500)

	for i := 0; i < 2; i++ {
		txn := &model.Transaction{UserID: user.ID, Amount: -50, Timestamp: time.Now().UTC()}
		if err := store.SaveTransaction(ctx, txn); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}
	}
	otherTxn := &model.Transaction{UserID: other.ID, Amount: -25, Timestamp: time.Now().UTC()}
	if err := store.SaveTransaction(ctx, otherTxn); err != nil {
		t.Fatalf("SaveTransaction failed: %v", err)
	}

	if err := store.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	if _, err := store.GetUser(ctx, user.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected deleted user to be gone, got %v", err)
	}
	txns, err := store.GetTransactionsByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetTransactionsByUser failed: %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("Expected cascade to remove transactions, got %d", len(txns))
	}

	// The other user's ledger is untouched.
	txns, err = store.GetTransactionsByUser(ctx, other.ID)
	if err != nil {
		t.Fatalf("GetTransactionsByUser failed: %v", err)
	}
	if len(txns) != 1 {
		t.Errorf("Expected 1 surviving transaction, got %d", len(txns))
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	store := newTestStorage(t)

	if err := store.DeleteUser(context.Background(), 999); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSaveTransactionAssignsID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	user := createTestUser(t, store, "Asha", 500)

	first := &model.Transaction{UserID: user.ID, Amount: -120, Timestamp: time.Now().UTC()}
	if err := store.SaveTransaction(ctx, first); err != nil {
		t.Fatalf("SaveTransaction failed: %v", err)
	}
	if first.ID <= 0 {
		t.Errorf("Expected assigned transaction id, got %d", first.ID)
	}

	second := &model.Transaction{UserID: user.ID, Amount: -80, Timestamp: time.Now().UTC()}
	if err := store.SaveTransaction(ctx, second); err != nil {
		t.Fatalf("SaveTransaction failed: %v", err)
	}

	txns, err := store.GetTransactionsByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetTransactionsByUser failed: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(txns))
	}
	if txns[0].ID != first.ID || txns[1].ID != second.ID {
		t.Errorf("Transactions out of insert order: %d, %d", txns[0].ID, txns[1].ID)
	}
	if txns[0].Amount != -120 || txns[1].Amount != -80 {
		t.Errorf("Amounts = %.2f, %.2f; want -120.00, -80.00", txns[0].Amount, txns[1].Amount)
	}
}

func TestSaveTransactionValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		txn  *model.Transaction
		name string
	}{
		{name: "nil transaction", txn: nil},
		{name: "missing user id", txn: &model.Transaction{Amount: -10, Timestamp: time.Now().UTC()}},
		{name: "missing timestamp", txn: &model.Transaction{UserID: 1, Amount: -10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.SaveTransaction(ctx, tt.txn); !errors.Is(err, ErrNilParameter) {
				t.Errorf("Expected ErrNilParameter, got %v", err)
			}
		})
	}
}

func TestTransactionRollbackAndCommit(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	user, err := tx.CreateUser(ctx, "Rolled", model.UserTypePermanent, makeTestTemplate(1, testFrames, 4), 500)
	if err != nil {
		t.Fatalf("CreateUser in tx failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if _, err := store.GetUser(ctx, user.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected rolled-back user to be absent, got %v", err)
	}

	tx, err = store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	user, err = tx.CreateUser(ctx, "Committed", model.UserTypePermanent, makeTestTemplate(2, testFrames, 4), 500)
	if err != nil {
		t.Fatalf("CreateUser in tx failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	got, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Name != "Committed" {
		t.Errorf("Name = %q, want %q", got.Name, "Committed")
	}
}

func TestTransactionRejectsNestedOperations(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.BeginTx(ctx); err == nil {
		t.Error("Expected nested BeginTx to fail")
	}
	if err := tx.Migrate(ctx); err == nil {
		t.Error("Expected Migrate inside transaction to fail")
	}
	if err := tx.Close(); err == nil {
		t.Error("Expected Close on transaction to fail")
	}
}

func TestGetUserCorruptTemplate(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{name: "garbage blob", blob: []byte("not a template")},
		// A valid header claiming 4 billion sets must fail decoding, not
		// size an allocation off the lie.
		{name: "oversized set count", blob: []byte("PTPL\x01\xff\xff\xff\xff")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStorage(t)
			ctx := context.Background()

			// Write the corrupt row straight into the table.
			result, err := store.db.ExecContext(ctx, `
				INSERT INTO users (name, user_type, wallet_balance, palm_template, registration_date)
				VALUES (?, ?, ?, ?, ?)
			`, "Corrupt", string(model.UserTypePermanent), 500.0, tt.blob, time.Now().UTC())
			if err != nil {
				t.Fatalf("Failed to insert corrupt row: %v", err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				t.Fatalf("Failed to get id: %v", err)
			}

			if _, err := store.GetUser(ctx, id); !errors.Is(err, common.ErrStoreIntegrity) {
				t.Errorf("Expected ErrStoreIntegrity from GetUser, got %v", err)
			}
			if _, err := store.ListUsers(ctx); !errors.Is(err, common.ErrStoreIntegrity) {
				t.Errorf("Expected ErrStoreIntegrity from ListUsers, got %v", err)
			}
		})
	}
}

func TestNewSQLiteStorageValidation(t *testing.T) {
	if _, err := NewSQLiteStorage("", testFrames); err == nil {
		t.Error("Expected error for empty database path")
	}
	if _, err := NewSQLiteStorage(":memory:", 0); err == nil {
		t.Error("Expected error for non-positive template frames")
	}
}
