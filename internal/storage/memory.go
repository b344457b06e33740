package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"kitscan/internal/model"
)

// MemoryLedger is an in-memory Ledger implementation. It backs dry runs,
// where scans should exercise the full pipeline without touching the day
// files, and tests.
type MemoryLedger struct {
	checkouts map[string][]model.CheckoutRecord
	kits      map[string][]model.KitRecord
	mu        sync.Mutex
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		checkouts: make(map[string][]model.CheckoutRecord),
		kits:      make(map[string][]model.KitRecord),
	}
}

// AppendCheckout stores a checkout record under today's date.
func (m *MemoryLedger) AppendCheckout(ctx context.Context, record model.CheckoutRecord) (model.CheckoutRecord, error) {
	if err := validateContext(ctx); err != nil {
		return model.CheckoutRecord{}, err
	}
	if err := validateCheckoutRecord(record); err != nil {
		return model.CheckoutRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	record.ID = uuid.NewString()
	record.Timestamp = now.Format(time.RFC3339)

	stamp := now.Format(dateStampLayout)
	m.checkouts[stamp] = append(m.checkouts[stamp], record)
	return record, nil
}

// CheckoutsForDate returns the checkout records stored under the date.
func (m *MemoryLedger) CheckoutsForDate(ctx context.Context, date time.Time) ([]model.CheckoutRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stamp := date.Format(dateStampLayout)
	out := make([]model.CheckoutRecord, len(m.checkouts[stamp]))
	copy(out, m.checkouts[stamp])
	return out, nil
}

// DeleteMostRecentCheckout removes the most recently timestamped record of
// the given type under the date.
func (m *MemoryLedger) DeleteMostRecentCheckout(ctx context.Context, date time.Time, recordType model.RecordType) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stamp := date.Format(dateStampLayout)
	records := m.checkouts[stamp]

	target := -1
	var latest time.Time
	for i, rec := range records {
		if rec.Type != recordType {
			continue
		}
		if t := rec.Time(); target < 0 || !t.Before(latest) {
			target = i
			latest = t
		}
	}
	if target < 0 {
		return false, nil
	}

	m.checkouts[stamp] = append(records[:target], records[target+1:]...)
	return true, nil
}

// AppendKit stores a kit record under today's date.
func (m *MemoryLedger) AppendKit(ctx context.Context, record model.KitRecord) (model.KitRecord, error) {
	if err := validateContext(ctx); err != nil {
		return model.KitRecord{}, err
	}
	if err := validateKitRecord(record); err != nil {
		return model.KitRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	record.ID = uuid.NewString()
	record.Timestamp = now.Format(time.RFC3339)

	stamp := now.Format(dateStampLayout)
	m.kits[stamp] = append(m.kits[stamp], record)
	return record, nil
}

// KitsForDate returns the kit records stored under the date.
func (m *MemoryLedger) KitsForDate(ctx context.Context, date time.Time) ([]model.KitRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stamp := date.Format(dateStampLayout)
	out := make([]model.KitRecord, len(m.kits[stamp]))
	copy(out, m.kits[stamp])
	return out, nil
}

// DeleteMostRecentKit removes the most recently timestamped kit record
// under the date.
func (m *MemoryLedger) DeleteMostRecentKit(ctx context.Context, date time.Time) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stamp := date.Format(dateStampLayout)
	records := m.kits[stamp]

	target := -1
	var latest time.Time
	for i, rec := range records {
		if t := rec.Time(); target < 0 || !t.Before(latest) {
			target = i
			latest = t
		}
	}
	if target < 0 {
		return false, nil
	}

	m.kits[stamp] = append(records[:target], records[target+1:]...)
	return true, nil
}
