package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"kitscan/internal/common"
	"kitscan/internal/model"
)

// Day file name layouts.
const (
	checkoutFilePattern = "checkouts-%s.json"
	kitFilePattern      = "kits-%s.json"
	dateStampLayout     = "2006-01-02"
)

// FileLedger stores finalized records as one JSON array per day and record
// kind. Every write is a full load-modify-store of that day's list,
// serialized by a single mutex, so no two writes to the same file are ever
// in flight together. A file that fails to parse is left untouched: the
// ledger surfaces the error rather than clobbering records it cannot read.
type FileLedger struct {
	dir string
	mu  sync.Mutex
}

// NewFileLedger creates a ledger rooted at dir, creating it if needed.
func NewFileLedger(dir string) (*FileLedger, error) {
	if err := validateString(dir, "dir"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FileLedger{dir: dir}, nil
}

// AppendCheckout appends a checkout record to today's file, assigning its
// ID and timestamp. Returns the stored record.
func (l *FileLedger) AppendCheckout(ctx context.Context, record model.CheckoutRecord) (model.CheckoutRecord, error) {
	if err := validateContext(ctx); err != nil {
		return model.CheckoutRecord{}, err
	}
	if err := validateCheckoutRecord(record); err != nil {
		return model.CheckoutRecord{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	path := l.checkoutPath(now)

	records, err := readDayFile[model.CheckoutRecord](path)
	if err != nil {
		return model.CheckoutRecord{}, err
	}

	record.ID = uuid.NewString()
	record.Timestamp = now.Format(time.RFC3339)
	records = append(records, record)

	if err := writeDayFile(path, records); err != nil {
		return model.CheckoutRecord{}, err
	}
	return record, nil
}

// CheckoutsForDate returns the checkout records for the given date.
// A missing day file is an empty day, not an error.
func (l *FileLedger) CheckoutsForDate(ctx context.Context, date time.Time) ([]model.CheckoutRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return readDayFile[model.CheckoutRecord](l.checkoutPath(date))
}

// DeleteMostRecentCheckout removes the most recently timestamped record of
// the given type from the date's file. Returns false when no record of that
// type exists; timestamp ties go to the later entry in the file.
func (l *FileLedger) DeleteMostRecentCheckout(ctx context.Context, date time.Time, recordType model.RecordType) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if !recordType.Valid() {
		return false, fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, recordType)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.checkoutPath(date)
	records, err := readDayFile[model.CheckoutRecord](path)
	if err != nil {
		return false, err
	}

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

	records = append(records[:target], records[target+1:]...)
	if err := writeDayFile(path, records); err != nil {
		return false, err
	}
	return true, nil
}

// AppendKit appends a kit record to today's file, assigning its ID and
// timestamp. Returns the stored record.
func (l *FileLedger) AppendKit(ctx context.Context, record model.KitRecord) (model.KitRecord, error) {
	if err := validateContext(ctx); err != nil {
		return model.KitRecord{}, err
	}
	if err := validateKitRecord(record); err != nil {
		return model.KitRecord{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	path := l.kitPath(now)

	records, err := readDayFile[model.KitRecord](path)
	if err != nil {
		return model.KitRecord{}, err
	}

	record.ID = uuid.NewString()
	record.Timestamp = now.Format(time.RFC3339)
	records = append(records, record)

	if err := writeDayFile(path, records); err != nil {
		return model.KitRecord{}, err
	}
	return record, nil
}

// KitsForDate returns the kit records for the given date. A missing day
// file is an empty day, not an error.
func (l *FileLedger) KitsForDate(ctx context.Context, date time.Time) ([]model.KitRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return readDayFile[model.KitRecord](l.kitPath(date))
}

// DeleteMostRecentKit removes the most recently timestamped kit record from
// the date's file. Returns false when the day holds no kits.
func (l *FileLedger) DeleteMostRecentKit(ctx context.Context, date time.Time) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.kitPath(date)
	records, err := readDayFile[model.KitRecord](path)
	if err != nil {
		return false, err
	}

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

	records = append(records[:target], records[target+1:]...)
	if err := writeDayFile(path, records); err != nil {
		return false, err
	}
	return true, nil
}

func (l *FileLedger) checkoutPath(date time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf(checkoutFilePattern, date.Format(dateStampLayout)))
}

func (l *FileLedger) kitPath(date time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf(kitFilePattern, date.Format(dateStampLayout)))
}

// readDayFile loads one day's record list. Missing files read as empty.
func readDayFile[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrLedgerCorrupted, filepath.Base(path), err)
	}
	return records, nil
}

// writeDayFile replaces one day's record list. The new content lands in a
// temp file first and is renamed into place, so a crash mid-write cannot
// leave a half-written ledger behind.
func writeDayFile[T any](path string, records []T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger file: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}
