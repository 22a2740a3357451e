// Package engine orchestrates palm enrollment and pay-by-palm
// verification sessions over the capture, matching, storage and ledger
// services.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/palmpay/palmpay/internal/biometric"
	"github.com/palmpay/palmpay/internal/common"
	"github.com/palmpay/palmpay/internal/ledger"
	"github.com/palmpay/palmpay/internal/model"
	"github.com/palmpay/palmpay/internal/service"
)

// Config holds the tunables for capture and matching sessions.
type Config struct {
	// Frames is the template length N; every enrollment captures exactly
	// this many qualifying frames.
	Frames int
	// EnrollMinKeypoints gates enrollment frames; it is stricter than the
	// verification minimum.
	EnrollMinKeypoints int
	// VerifyMinKeypoints gates live verification frames.
	VerifyMinKeypoints int
	// MaxDistance and AcceptanceThreshold configure the matcher.
	MaxDistance         int
	AcceptanceThreshold float64
	// StartingBalance is assigned to every new enrollment.
	StartingBalance float64
	// CaptureTimeout bounds how long a capture session may wait for
	// qualifying frames before giving up.
	CaptureTimeout time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Frames:              5,
		EnrollMinKeypoints:  50,
		VerifyMinKeypoints:  30,
		MaxDistance:         50,
		AcceptanceThreshold: 35.0,
		StartingBalance:     500.00,
		CaptureTimeout:      30 * time.Second,
	}
}

// Engine wires the capture device, extractor, matcher, store and ledger
// into the two entry points: enrollment and verified payment.
type Engine struct {
	storage   service.Storage
	device    service.CaptureDevice
	extractor service.Extractor
	status    service.StatusSink
	matcher   *biometric.Matcher
	ledger    *ledger.Ledger
	config    Config
}

// New creates an engine with the given dependencies. A nil status sink
// discards progress messages.
func New(storage service.Storage, device service.CaptureDevice, extractor service.Extractor, status service.StatusSink, cfg Config) *Engine {
	if status == nil {
		status = service.StatusFunc(func(string) {})
	}
	return &Engine{
		storage:   storage,
		device:    device,
		extractor: extractor,
		status:    status,
		matcher: biometric.NewMatcher(biometric.Config{
			Frames:              cfg.Frames,
			MaxDistance:         cfg.MaxDistance,
			AcceptanceThreshold: cfg.AcceptanceThreshold,
		}),
		ledger: ledger.New(storage),
		config: cfg,
	}
}

// Ledger exposes the engine's ledger for history queries.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// EnrollUser captures a full template from the scanner and persists the
// new identity with the configured starting balance. On cancellation or
// timeout nothing is persisted.
func (e *Engine) EnrollUser(ctx context.Context, name string, userType model.UserType) (*model.User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, common.NewUserError("name cannot be empty", common.ErrInvalidConfig)
	}
	if !userType.Valid() {
		return nil, common.NewUserError(fmt.Sprintf("unknown user type %q", userType), common.ErrInvalidConfig)
	}

	src, err := e.acquireDevice(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	e.status.Status(fmt.Sprintf("Position your palm. Capturing %d frames...", e.config.Frames))

	captureCtx, cancel := context.WithTimeout(ctx, e.config.CaptureTimeout)
	defer cancel()

	agg := biometric.NewAggregator(e.extractor, e.config.EnrollMinKeypoints)
	tpl, err := agg.Aggregate(captureCtx, src, e.config.Frames, func(captured, target int) {
		e.status.Progress(captured, target)
	})
	if err != nil {
		return nil, err
	}

	// Release the scanner before hitting the store.
	_ = src.Close()

	user, err := e.storage.CreateUser(ctx, name, userType, tpl, e.config.StartingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to persist enrollment: %w", err)
	}

	slog.Info("user enrolled",
		"user_id", user.ID,
		"name", user.Name,
		"type", user.Type,
		"balance", user.Balance)
	e.status.Status(fmt.Sprintf("%s %q registered successfully!", user.Type, user.Name))

	return user, nil
}

// ChargeVerifiedUser identifies the palm currently presented to the
// scanner and debits amount from the matched wallet. Each call is a
// single stateless verification: snapshot the enrolled users, capture
// live frames until one both qualifies and matches confidently, then run
// the atomic charge. The scanner is released before the ledger work.
func (e *Engine) ChargeVerifiedUser(ctx context.Context, amount float64) (*model.Receipt, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: charge amount must be positive, got %.2f", common.ErrInvalidAmount, amount)
	}

	users, err := e.storage.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrolled users: %w", err)
	}
	if len(users) == 0 {
		return nil, common.ErrNoEnrolledUsers
	}

	// ListUsers returns ascending id order, which fixes the matcher's
	// first-max tie-break.
	candidates := make([]biometric.Candidate, len(users))
	for i, u := range users {
		candidates[i] = biometric.Candidate{UserID: u.ID, Name: u.Name, Template: u.Template}
	}

	result, err := e.verifyLive(ctx, candidates)
	if err != nil {
		return nil, err
	}

	receipt, err := e.ledger.Charge(ctx, result.UserID, amount)
	if err != nil {
		return nil, err
	}
	receipt.Name = result.Name
	return receipt, nil
}

// verifyLive runs the live-capture loop: read a frame, extract, match.
// Frames without enough detail and frames that do not match confidently
// are retried until the capture window closes.
func (e *Engine) verifyLive(ctx context.Context, candidates []biometric.Candidate) (model.MatchResult, error) {
	src, err := e.acquireDevice(ctx)
	if err != nil {
		return model.MatchResult{}, err
	}
	defer func() { _ = src.Close() }()

	e.status.Status("Position palm for verification...")

	captureCtx, cancel := context.WithTimeout(ctx, e.config.CaptureTimeout)
	defer cancel()

	for {
		if err := captureCtx.Err(); err != nil {
			return model.MatchResult{}, verifyErr(err)
		}

		frame, err := src.Next(captureCtx)
		if err != nil {
			return model.MatchResult{}, verifyErr(err)
		}

		live, err := e.extractor.Extract(frame, e.config.VerifyMinKeypoints)
		if err != nil {
			if common.IsRetryable(err) {
				e.status.Status("Present palm clearly...")
				continue
			}
			return model.MatchResult{}, fmt.Errorf("failed to extract features: %w", err)
		}

		result, err := e.matcher.Identify(captureCtx, live, candidates)
		if err != nil {
			return model.MatchResult{}, verifyErr(err)
		}
		if result.Matched() {
			slog.Info("identity verified", "user_id", result.UserID, "score", result.Score)
			e.status.Status(fmt.Sprintf("Verified: %s", result.Name))
			return result, nil
		}

		e.status.Status("Verifying... hold steady.")
	}
}

// verifyErr maps context termination to the verification taxonomy: a
// user abort is a cancellation, an expired capture window means no
// confident match was found in time.
func verifyErr(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", common.ErrCaptureCancelled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: capture window expired", common.ErrNoConfidentMatch)
	default:
		return err
	}
}

// acquireDevice opens the scanner with a short retry; cameras commonly
// need a moment to settle after the previous session released them.
func (e *Engine) acquireDevice(ctx context.Context) (service.FrameSource, error) {
	var src service.FrameSource
	err := common.WithRetry(ctx, func() error {
		var acquireErr error
		src, acquireErr = e.device.Acquire(ctx)
		return acquireErr
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire capture device: %w", err)
	}
	return src, nil
}
