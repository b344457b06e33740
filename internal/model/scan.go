// Package model defines the core domain types shared by the scanning engines.
package model

import "time"

// IdentifierClass is the coarse category of a scanned identifier.
type IdentifierClass string

// Identifier classes.
const (
	ClassUser  IdentifierClass = "USER"
	ClassKit   IdentifierClass = "KIT"
	ClassOther IdentifierClass = "OTHER"
)

// FormatOCR marks candidates produced by text recognition rather than a
// barcode decoder. OCR candidates are the only ones eligible for character
// correction.
const FormatOCR = "OCR"

// ScanCandidate is one decoded text candidate delivered by a frame source.
// Candidates are ephemeral: they are consumed by an engine immediately or
// dropped.
type ScanCandidate struct {
	Raw        string
	Format     string  // decoder-reported symbology, e.g. "CODE_128", "QR_CODE", "OCR"
	Confidence float64 // decode confidence in [0,1]
}

// IsOCR reports whether the candidate came from text recognition.
func (c ScanCandidate) IsOCR() bool {
	return c.Format == FormatOCR
}

// NewBarcodeCandidate builds a candidate from a barcode decoder. Barcode
// decodes either succeed or fail outright, so confidence is always 1.0.
func NewBarcodeCandidate(raw, format string) ScanCandidate {
	return ScanCandidate{Raw: raw, Format: format, Confidence: 1.0}
}

// NewOCRCandidate builds a candidate from an OCR engine with its reported
// confidence, clamped to [0,1].
func NewOCRCandidate(raw string, confidence float64) ScanCandidate {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return ScanCandidate{Raw: raw, Format: FormatOCR, Confidence: confidence}
}

// ConfidenceTier buckets a combined detection score for routing: High
// auto-assigns, Medium asks for confirmation, Low falls back to manual
// selection.
type ConfidenceTier string

// Confidence tiers.
const (
	TierHigh   ConfidenceTier = "HIGH"
	TierMedium ConfidenceTier = "MEDIUM"
	TierLow    ConfidenceTier = "LOW"
)

// Tier thresholds on the combined detection score.
const (
	HighConfidenceThreshold   = 0.95
	MediumConfidenceThreshold = 0.80
)

// TierFor buckets a combined score into a confidence tier.
func TierFor(score float64) ConfidenceTier {
	switch {
	case score >= HighConfidenceThreshold:
		return TierHigh
	case score >= MediumConfidenceThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// ScanEvent is one processed scan as recorded by the history collaborator.
type ScanEvent struct {
	At      time.Time
	Mode    string // engine that processed the scan: "checkout", "checkin" or "kit"
	Raw     string
	Class   IdentifierClass
	Outcome string
	Detail  string
	ID      int64
}
