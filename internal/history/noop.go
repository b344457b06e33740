package history

import (
	"context"

	"kitscan/internal/model"
)

// NopRecorder discards every event. It stands in for the SQLite recorder
// when history is disabled.
type NopRecorder struct{}

// RecordScan discards the event.
func (NopRecorder) RecordScan(_ context.Context, _ model.ScanEvent) error { return nil }

// RecentEvents always returns an empty history.
func (NopRecorder) RecentEvents(_ context.Context, _ int) ([]model.ScanEvent, error) {
	return nil, nil
}

// Close is a no-op.
func (NopRecorder) Close() error { return nil }
