// Package sanitize gates raw scanner input before any classification or
// state transition. Rejection here is always local: callers emit a failure
// signal and carry on, no engine state changes.
package sanitize

import (
	"errors"
	"regexp"
	"strings"
)

// MaxInputLength bounds raw scan payloads. Longer input is rejected, never
// truncated.
const MaxInputLength = 200

// Sanitization errors.
var (
	ErrEmpty               = errors.New("empty input")
	ErrTooLong             = errors.New("input exceeds maximum length")
	ErrDisallowedCharacter = errors.New("input contains disallowed characters")
	ErrInjectionPattern    = errors.New("input matches an injection pattern")
)

// allowedChars whitelists the characters that appear in real identifier
// payloads: serials, kit codes, user badges and free-form asset tags.
var allowedChars = regexp.MustCompile(`^[A-Za-z0-9 ._/:#-]+$`)

// injectionPatterns blacklists script, SQL, template and path-traversal
// tokens. Checked after the charset whitelist, so only patterns expressible
// in the allowed charset can fire in practice; the rest stay as a second
// gate for callers that skip the whitelist.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*/?\s*script`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)\b(?:select\s+.+\s+from|insert\s+into|update\s+\w+\s+set|delete\s+from|drop\s+(?:table|database)|union\s+select)\b`),
	regexp.MustCompile(`\$\{|\{\{|<%`),
	regexp.MustCompile(`\.\./`),
}

// Clean trims surrounding whitespace and validates the payload against the
// length bound, charset whitelist and injection blacklist, in that order.
// Returns the trimmed payload on success.
func Clean(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	if trimmed == "" {
		return "", ErrEmpty
	}
	if len(trimmed) > MaxInputLength {
		return "", ErrTooLong
	}
	if !allowedChars.MatchString(trimmed) {
		return "", ErrDisallowedCharacter
	}
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(trimmed) {
			return "", ErrInjectionPattern
		}
	}

	return trimmed, nil
}

// Reason maps a sanitization error to a short operator-facing message.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrEmpty):
		return "empty scan"
	case errors.Is(err, ErrTooLong):
		return "scan too long"
	case errors.Is(err, ErrDisallowedCharacter):
		return "scan contains invalid characters"
	case errors.Is(err, ErrInjectionPattern):
		return "scan rejected"
	default:
		return "invalid scan"
	}
}
