// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"image"
	"time"

	"github.com/palmpay/palmpay/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// User operations. CreateUser assigns the id and registration time;
	// ListUsers returns a consistent snapshot in ascending id order.
	CreateUser(ctx context.Context, name string, userType model.UserType, template model.Template, startingBalance float64) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateBalance(ctx context.Context, id int64, newBalance float64) error

	// DebitBalance atomically subtracts amount from the wallet if it is
	// covered, returning the new balance.
	DebitBalance(ctx context.Context, id int64, amount float64) (float64, error)

	// DeleteUser removes the user and every transaction referencing it as
	// one atomic operation.
	DeleteUser(ctx context.Context, id int64) error

	// Transaction operations.
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error)

	// Database management.
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// Frame is a single raw image captured from the palm scanner.
type Frame = image.Image

// FrameSource yields frames from an acquired capture device. Next blocks
// until a frame is available or the context ends.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// CaptureDevice is the exclusive scanner resource. Only one capture
// session may hold it at a time; the acquired source must be closed on
// every exit path before the device can be acquired again.
type CaptureDevice interface {
	Acquire(ctx context.Context) (FrameSource, error)
}

// Extractor converts one frame into a binary descriptor set. It returns
// an insufficient-detail error when fewer than minKeypoints keypoints are
// found; minimums differ between enrollment and verification.
type Extractor interface {
	Extract(frame Frame, minKeypoints int) (model.DescriptorSet, error)
}

// StatusSink receives user-facing progress from long-running capture
// sessions. Implementations run on the caller's side of the worker
// boundary; the core never blocks on them.
type StatusSink interface {
	Status(msg string)
	Progress(done, total int)
}

// StatusFunc adapts a plain function to a StatusSink with no progress
// reporting.
type StatusFunc func(msg string)

// Status implements StatusSink.
func (f StatusFunc) Status(msg string) { f(msg) }

// Progress implements StatusSink.
func (f StatusFunc) Progress(_, _ int) {}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
