package classify

import "kitscan/internal/model"

// DSNPattern represents a device-serial-number classification pattern.
type DSNPattern struct {
	Name       string
	Type       model.ComponentType
	Prefix     string // canonical serial prefix, anchor for OCR correction
	Regex      string
	Priority   int     // Higher priority patterns are checked first
	Confidence float64 // Base confidence when pattern matches (0.0-1.0)
}

// DefaultPatterns returns the default set of device serial patterns. Exact
// vendor prefixes score high enough to auto-assign from a clean barcode
// read; the shorter family prefixes catch partial or unusual serials at a
// confidence that routes to human confirmation. Pads and spare slots have
// no serial pattern and are only ever filled through manual selection.
func DefaultPatterns() []DSNPattern {
	return []DSNPattern{
		// Exact vendor prefixes - highest priority
		{
			Name:       "Glasses Serial",
			Type:       model.ComponentGlasses,
			Prefix:     "G0G348",
			Regex:      `^G0G348[A-Z0-9]{2,14}$`,
			Priority:   100,
			Confidence: 0.98,
		},
		{
			Name:       "Controller Serial",
			Type:       model.ComponentController,
			Prefix:     "G0G46K",
			Regex:      `^G0G46K[A-Z0-9]{2,14}$`,
			Priority:   100,
			Confidence: 0.97,
		},
		{
			Name:       "Battery Serial",
			Type:       model.ComponentBattery1,
			Prefix:     "G0G4NU",
			Regex:      `^G0G4NU[A-Z0-9]{2,14}$`,
			Priority:   100,
			Confidence: 0.97,
		},

		// Family prefixes - catch serials one revision off the exact form
		{
			Name:       "Glasses Family",
			Type:       model.ComponentGlasses,
			Prefix:     "G0G34",
			Regex:      `^G0G34[A-Z0-9]{3,15}$`,
			Priority:   60,
			Confidence: 0.86,
		},
		{
			Name:       "Controller Family",
			Type:       model.ComponentController,
			Prefix:     "G0G46",
			Regex:      `^G0G46[A-Z0-9]{3,15}$`,
			Priority:   60,
			Confidence: 0.85,
		},
		{
			Name:       "Battery Family",
			Type:       model.ComponentBattery1,
			Prefix:     "G0G4N",
			Regex:      `^G0G4N[A-Z0-9]{3,15}$`,
			Priority:   60,
			Confidence: 0.85,
		},
	}
}
