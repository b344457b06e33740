// Package service defines the interfaces the scanning engines depend on.
package service

import (
	"context"
	"time"

	"kitscan/internal/model"
)

// Ledger is the persistence collaborator for finalized records. Records are
// append-only: the only mutation ever performed is deleting the most recent
// record of a type (undo). Implementations serialize their own
// read-modify-write cycles; callers never assume atomic append.
type Ledger interface {
	// Checkout operations
	AppendCheckout(ctx context.Context, record model.CheckoutRecord) (model.CheckoutRecord, error)
	CheckoutsForDate(ctx context.Context, date time.Time) ([]model.CheckoutRecord, error)
	DeleteMostRecentCheckout(ctx context.Context, date time.Time, recordType model.RecordType) (bool, error)

	// Kit operations
	AppendKit(ctx context.Context, record model.KitRecord) (model.KitRecord, error)
	KitsForDate(ctx context.Context, date time.Time) ([]model.KitRecord, error)
	DeleteMostRecentKit(ctx context.Context, date time.Time) (bool, error)
}

// Recorder receives one event per processed scan for the operator-facing
// history view. Recording is fire and forget: engines log a failed
// RecordScan and move on, it never blocks or fails a transition.
type Recorder interface {
	RecordScan(ctx context.Context, event model.ScanEvent) error
	RecentEvents(ctx context.Context, limit int) ([]model.ScanEvent, error)
	Close() error
}

// ComponentPrompter is the confirmation/selection collaborator for kit
// assembly. Each method blocks until the human answers and must resolve to
// exactly one of the engine's entry points via its return value.
type ComponentPrompter interface {
	// ResolveDetection presents a detection that needs a human decision:
	// confirm as suggested, pick a slot, or cancel.
	ResolveDetection(ctx context.Context, detection model.ComponentDetectionResult, available []model.SlotID) (DetectionResolution, error)

	// ResolveConflict presents a duplicate-slot conflict with the ignore
	// and reassign options.
	ResolveConflict(ctx context.Context, conflict model.DuplicateComponentConflict) (ConflictResolution, error)
}

// DetectionResolution is the human's answer to a component detection.
type DetectionResolution struct {
	Slot    model.SlotID // slot to assign; required unless cancelled
	Confirm bool
}

// ConflictResolution is the human's answer to a duplicate-slot conflict.
type ConflictResolution struct {
	Reassign bool // false means ignore the incoming scan
}
