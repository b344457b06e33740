// Package classify determines what a scanned identifier is: a user badge,
// a kit code, or something else, and separately infers component types from
// device serial numbers with a confidence tier.
package classify

import (
	"regexp"
	"strings"

	"kitscan/internal/model"
)

// Manual entry bounds, applied after whitespace is stripped.
const (
	ManualEntryMinLength = 8
	ManualEntryMaxLength = 20
)

var manualEntryChars = regexp.MustCompile(`^[A-Z0-9-]+$`)

// Identifier classifies a sanitized identifier by prefix: U for users, K
// for kits, anything else is Other. This is a prefix heuristic, not a
// grammar; an unrelated identifier that happens to start with U or K will
// misclassify, which is a known limitation of the badge and kit code
// scheme.
func Identifier(raw string) model.IdentifierClass {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(upper, "U"):
		return model.ClassUser
	case strings.HasPrefix(upper, "K"):
		return model.ClassKit
	default:
		return model.ClassOther
	}
}

// ValidateManualEntry normalizes and validates a hand-typed serial. It is
// the fallback acceptance gate when both barcode and OCR paths fail, not a
// classifier: it checks shape only, never infers a component type.
func ValidateManualEntry(text string) model.ValidationResult {
	normalized := strings.ToUpper(strings.Join(strings.Fields(text), ""))

	switch {
	case normalized == "":
		return model.ValidationResult{Reason: "serial is required"}
	case len(normalized) < ManualEntryMinLength:
		return model.ValidationResult{Reason: "serial must be at least 8 characters"}
	case len(normalized) > ManualEntryMaxLength:
		return model.ValidationResult{Reason: "serial must be at most 20 characters"}
	case !manualEntryChars.MatchString(normalized):
		return model.ValidationResult{Reason: "serial may only contain letters, digits and hyphens"}
	}

	return model.ValidationResult{Valid: true, Normalized: normalized}
}
