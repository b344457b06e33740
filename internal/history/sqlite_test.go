package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"kitscan/internal/model"
	"kitscan/internal/service"
)

var (
	_ service.Recorder = (*SQLiteRecorder)(nil)
	_ service.Recorder = NopRecorder{}
)

// Helper function to create a migrated test recorder.
func createTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")

	recorder, err := NewSQLiteRecorder(dbPath)
	if err != nil {
		t.Fatalf("Failed to create recorder: %v", err)
	}
	t.Cleanup(func() { _ = recorder.Close() })

	if err := recorder.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return recorder
}

func TestNewSQLiteRecorderValidation(t *testing.T) {
	if _, err := NewSQLiteRecorder(""); err != ErrEmptyPath {
		t.Errorf("NewSQLiteRecorder(\"\") error = %v, want ErrEmptyPath", err)
	}
	if _, err := NewSQLiteRecorder("   "); err != ErrEmptyPath {
		t.Errorf("NewSQLiteRecorder(blank) error = %v, want ErrEmptyPath", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	recorder := createTestRecorder(t)

	if err := recorder.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestRecordScanAndRecentEvents(t *testing.T) {
	recorder := createTestRecorder(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	events := []model.ScanEvent{
		{At: base, Mode: "checkout", Raw: "USER123", Class: model.ClassUser, Outcome: "USER_CAPTURED"},
		{At: base.Add(time.Minute), Mode: "checkout", Raw: "KIT456", Class: model.ClassKit, Outcome: "COMMITTED", Detail: "USER123 + KIT456"},
		{At: base.Add(2 * time.Minute), Mode: "kit", Raw: "G0G3481234", Class: model.ClassOther, Outcome: "COMPONENT_ASSIGNED", Detail: "glasses"},
	}
	for _, event := range events {
		if err := recorder.RecordScan(ctx, event); err != nil {
			t.Fatalf("RecordScan() error = %v", err)
		}
	}

	got, err := recorder.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEvents() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}

	// Most recent first.
	if got[0].Raw != "G0G3481234" || got[2].Raw != "USER123" {
		t.Errorf("events out of order: %q, %q, %q", got[0].Raw, got[1].Raw, got[2].Raw)
	}
	if got[1].Detail != "USER123 + KIT456" {
		t.Errorf("detail = %q", got[1].Detail)
	}
	if got[0].Class != model.ClassOther {
		t.Errorf("class = %q, want OTHER", got[0].Class)
	}
	if got[0].ID == 0 {
		t.Error("event ID was not assigned")
	}
}

func TestRecentEventsLimit(t *testing.T) {
	recorder := createTestRecorder(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		event := model.ScanEvent{Mode: "checkout", Raw: "USER1", Class: model.ClassUser, Outcome: "USER_CAPTURED"}
		if err := recorder.RecordScan(ctx, event); err != nil {
			t.Fatalf("RecordScan() error = %v", err)
		}
	}

	got, err := recorder.RecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("RecentEvents() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d events, want 2", len(got))
	}
}

func TestRecentEventsSameTimestampOrder(t *testing.T) {
	recorder := createTestRecorder(t)
	ctx := context.Background()

	at := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	for _, raw := range []string{"FIRST", "SECOND", "THIRD"} {
		event := model.ScanEvent{At: at, Mode: "kit", Raw: raw, Class: model.ClassOther, Outcome: "REJECTED"}
		if err := recorder.RecordScan(ctx, event); err != nil {
			t.Fatalf("RecordScan() error = %v", err)
		}
	}

	got, err := recorder.RecentEvents(ctx, 0)
	if err != nil {
		t.Fatalf("RecentEvents() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[0].Raw != "THIRD" || got[1].Raw != "SECOND" || got[2].Raw != "FIRST" {
		t.Errorf("tie order wrong: %q, %q, %q", got[0].Raw, got[1].Raw, got[2].Raw)
	}
}

func TestRecordScanStampsZeroTime(t *testing.T) {
	recorder := createTestRecorder(t)
	ctx := context.Background()

	if err := recorder.RecordScan(ctx, model.ScanEvent{Mode: "checkout", Raw: "X", Class: model.ClassOther, Outcome: "REJECTED"}); err != nil {
		t.Fatalf("RecordScan() error = %v", err)
	}

	got, err := recorder.RecentEvents(ctx, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("RecentEvents() = %d events, %v", len(got), err)
	}
	if got[0].At.IsZero() {
		t.Error("zero At was stored without a stamp")
	}
}

func TestNopRecorder(t *testing.T) {
	var recorder NopRecorder
	ctx := context.Background()

	if err := recorder.RecordScan(ctx, model.ScanEvent{Raw: "X"}); err != nil {
		t.Errorf("RecordScan() error = %v", err)
	}
	events, err := recorder.RecentEvents(ctx, 10)
	if err != nil {
		t.Errorf("RecentEvents() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("NopRecorder returned %d events", len(events))
	}
	if err := recorder.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
