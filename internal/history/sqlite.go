// Package history records every processed scan to a local SQLite database
// backing the operator-facing history view. The recorder is an explicit
// collaborator handed to each engine; engines treat it as fire and forget.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"kitscan/internal/model"
)

// DefaultRecentLimit is used when RecentEvents is called with no limit.
const DefaultRecentLimit = 20

// Recorder errors.
var (
	ErrEmptyPath  = errors.New("database path cannot be empty")
	ErrNilContext = errors.New("context cannot be nil")
)

// SQLiteRecorder implements the Recorder interface using SQLite.
type SQLiteRecorder struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteRecorder creates a recorder backed by the database at dbPath.
// Call Migrate before recording.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, ErrEmptyPath
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	return &SQLiteRecorder{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

// RecordScan appends one scan event. A zero At is stamped with the current
// time.
func (r *SQLiteRecorder) RecordScan(ctx context.Context, event model.ScanEvent) error {
	if ctx == nil {
		return ErrNilContext
	}

	at := event.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scan_events (at, mode, raw, class, outcome, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		at, event.Mode, event.Raw, string(event.Class), event.Outcome, event.Detail)
	if err != nil {
		return fmt.Errorf("failed to record scan event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, most recent first. Events
// sharing a timestamp come back in reverse insertion order.
func (r *SQLiteRecorder) RecentEvents(ctx context.Context, limit int) ([]model.ScanEvent, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, at, mode, raw, class, outcome, detail
		 FROM scan_events
		 ORDER BY at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.ScanEvent
	for rows.Next() {
		var event model.ScanEvent
		var class string
		var detail sql.NullString
		if err := rows.Scan(&event.ID, &event.At, &event.Mode, &event.Raw, &class, &event.Outcome, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		event.Class = model.IdentifierClass(class)
		event.Detail = detail.String
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan events: %w", err)
	}

	return events, nil
}
