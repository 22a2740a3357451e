package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/palmpay/palmpay/internal/capture"
	"github.com/palmpay/palmpay/internal/common"
	"github.com/palmpay/palmpay/internal/config"
	"github.com/palmpay/palmpay/internal/engine"
	"github.com/palmpay/palmpay/internal/service"
	"github.com/palmpay/palmpay/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/palmpay/palmpay.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath, viper.GetInt("palm.frames"))
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// closeStorage closes the store at the end of a command, logging rather
// than failing the command on close errors.
func closeStorage(store service.Storage, command string) {
	if err := store.Close(); err != nil {
		common.LogError(err, "failed to close storage", common.Fields{"command": command})
	}
}

// engineConfig builds the capture/matching configuration from viper.
func engineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Frames = viper.GetInt("palm.frames")
	cfg.EnrollMinKeypoints = viper.GetInt("palm.enroll_min_keypoints")
	cfg.VerifyMinKeypoints = viper.GetInt("palm.verify_min_keypoints")
	cfg.MaxDistance = viper.GetInt("match.max_distance")
	cfg.AcceptanceThreshold = viper.GetFloat64("match.threshold")
	cfg.StartingBalance = viper.GetFloat64("wallet.starting_balance")
	if timeout := viper.GetDuration("capture.timeout"); timeout > 0 {
		cfg.CaptureTimeout = timeout
	}
	return cfg
}

// newEngine wires the webcam, ORB extractor and engine. The returned
// cleanup releases the detector.
func newEngine(store service.Storage, status service.StatusSink) (*engine.Engine, func()) {
	device := capture.NewWebcam(viper.GetInt("capture.device"))
	extractor := capture.NewORBExtractor(viper.GetInt("palm.max_features"))
	eng := engine.New(store, device, extractor, status, engineConfig())
	return eng, func() { _ = extractor.Close() }
}
