package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"kitscan/internal/model"
)

// maxPrefixDistance bounds how far a scanned prefix may sit from a canonical
// pattern prefix before correction is even considered.
const maxPrefixDistance = 2

// correctionPenalty is subtracted from a pattern's base confidence when the
// match only succeeded after OCR correction, so corrected reads route
// through confirmation instead of auto-assignment.
const correctionPenalty = 0.05

// compiledDSNPattern holds a compiled serial pattern with metadata.
type compiledDSNPattern struct {
	compiledRegex *regexp.Regexp
	DSNPattern
}

// Detector implements pattern-based component type inference. Immutable
// after construction; safe for concurrent readers.
type Detector struct {
	patterns []compiledDSNPattern
}

// NewDetector creates a detector from the given patterns, compiled and
// ordered by descending priority.
func NewDetector(patterns []DSNPattern) (*Detector, error) {
	compiled := make([]compiledDSNPattern, 0, len(patterns))

	for _, p := range patterns {
		regex, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %s: %w", p.Name, err)
		}

		compiled = append(compiled, compiledDSNPattern{
			DSNPattern:    p,
			compiledRegex: regex,
		})
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority > compiled[j].Priority
	})

	return &Detector{patterns: compiled}, nil
}

// NewDefaultDetector creates a detector loaded with DefaultPatterns.
func NewDefaultDetector() (*Detector, error) {
	return NewDetector(DefaultPatterns())
}

// PatternCount returns the number of loaded patterns.
func (d *Detector) PatternCount() int {
	return len(d.patterns)
}

// Detection is the result of inferring a component type from a serial.
type Detection struct {
	Normalized  string // uppercased serial with any prefix correction applied
	PatternName string
	Type        model.ComponentType
	Confidence  float64
	Corrected   bool
}

// InferComponentType guesses the component category purely from string
// shape. Matching is case-insensitive. Before each pattern is tried, the
// serial's head is checked for an O/0 near miss of that pattern's canonical
// prefix and corrected when one is found; correction never applies to
// strings that are not already near misses of a known prefix. Returns nil
// when no pattern matches, which callers must treat as "ask the human".
func (d *Detector) InferComponentType(raw string) *Detection {
	candidate := strings.ToUpper(strings.TrimSpace(raw))
	if candidate == "" {
		return nil
	}

	for _, pattern := range d.patterns {
		serial := candidate
		corrected := false

		if !pattern.compiledRegex.MatchString(serial) {
			fixed, ok := correctPrefix(serial, pattern.Prefix)
			if !ok || !pattern.compiledRegex.MatchString(fixed) {
				continue
			}
			serial = fixed
			corrected = true
		}

		confidence := pattern.Confidence
		if corrected {
			confidence -= correctionPenalty
		}

		return &Detection{
			Normalized:  serial,
			PatternName: pattern.Name,
			Type:        pattern.Type,
			Confidence:  confidence,
			Corrected:   corrected,
		}
	}

	return nil
}

// DetectionConfidence combines pattern confidence with the decoder-reported
// confidence. The combination is the minimum: a perfect pattern match on an
// uncertain OCR read must not auto-assign, and a certain barcode read of a
// vague pattern must not either.
func DetectionConfidence(patternConfidence, ocrConfidence float64) float64 {
	if ocrConfidence < patternConfidence {
		return ocrConfidence
	}
	return patternConfidence
}

// correctPrefix rewrites the serial's head to the canonical prefix when the
// head is an O/0 near miss of it: same length, within edit distance
// maxPrefixDistance, and identical once letter O and digit 0 are folded
// together. Any other difference leaves the serial untouched.
func correctPrefix(serial, canonical string) (string, bool) {
	if canonical == "" || len(serial) < len(canonical) {
		return serial, false
	}

	head := serial[:len(canonical)]
	if head == canonical {
		return serial, false
	}
	if levenshtein.ComputeDistance(head, canonical) > maxPrefixDistance {
		return serial, false
	}
	if foldZero(head) != foldZero(canonical) {
		return serial, false
	}

	return canonical + serial[len(canonical):], true
}

func foldZero(s string) string {
	return strings.ReplaceAll(s, "O", "0")
}
