// Package storage provides the JSON day-file persistence layer for
// finalized checkout and kit records.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kitscan/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrInvalidRecord    = errors.New("invalid checkout record")
	ErrInvalidKitRecord = errors.New("invalid kit record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCheckoutRecord validates a checkout record before append.
func validateCheckoutRecord(record model.CheckoutRecord) error {
	if !record.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, record.Type)
	}
	if strings.TrimSpace(record.Value) == "" {
		return fmt.Errorf("%w: missing value", ErrInvalidRecord)
	}
	if record.Type != model.RecordOther {
		if strings.TrimSpace(record.UserID) == "" {
			return fmt.Errorf("%w: missing user id", ErrInvalidRecord)
		}
		if strings.TrimSpace(record.KitID) == "" {
			return fmt.Errorf("%w: missing kit id", ErrInvalidRecord)
		}
	}
	return nil
}

// validateKitRecord validates a kit record before append. A kit record must
// carry at least one component; empty bundles are never persisted.
func validateKitRecord(record model.KitRecord) error {
	if strings.TrimSpace(record.KitID) == "" {
		return fmt.Errorf("%w: missing kit id", ErrInvalidKitRecord)
	}
	if strings.TrimSpace(record.BaseKitCode) == "" {
		return fmt.Errorf("%w: missing base kit code", ErrInvalidKitRecord)
	}
	if record.ComponentCount() == 0 {
		return fmt.Errorf("%w: no components", ErrInvalidKitRecord)
	}
	return nil
}
