package main

import (
	"context"
	"fmt"

	"kitscan/internal/config"
	"kitscan/internal/history"
	"kitscan/internal/service"
	"kitscan/internal/storage"
)

// openLedger initializes the day ledger from the loaded settings. Dry runs
// swap in an in-memory ledger so nothing touches the data directory.
func openLedger(settings config.Settings) (service.Ledger, error) {
	if settings.DryRun {
		return storage.NewMemoryLedger(), nil
	}

	ledger, err := storage.NewFileLedger(settings.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	return ledger, nil
}

// openRecorder initializes the scan history recorder. History can be
// disabled entirely in config; scanning still works without it.
func openRecorder(ctx context.Context, settings config.Settings) (service.Recorder, error) {
	if !settings.HistoryEnabled {
		return history.NopRecorder{}, nil
	}

	recorder, err := history.NewSQLiteRecorder(settings.HistoryPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := recorder.Migrate(ctx); err != nil {
		_ = recorder.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return recorder, nil
}
