package model

import (
	"strings"
	"time"
)

// RecordType distinguishes the three kinds of checkout ledger entries.
type RecordType string

const (
	RecordCheckout RecordType = "CHECKOUT"
	RecordCheckin  RecordType = "CHECKIN"
	RecordOther    RecordType = "OTHER"
)

// Valid reports whether the record type is one of the known kinds.
func (r RecordType) Valid() bool {
	switch r {
	case RecordCheckout, RecordCheckin, RecordOther:
		return true
	}
	return false
}

// CheckoutRecord is one append-only entry in a day's checkout ledger.
// For CHECKOUT and CHECKIN records UserID and KitID carry the pair; for
// OTHER records Value carries the raw identifier and the pair fields stay
// empty. Records are never mutated after append.
type CheckoutRecord struct {
	ID        string     `json:"id,omitempty"`
	Type      RecordType `json:"type"`
	UserID    string     `json:"userId,omitempty"`
	KitID     string     `json:"kitId,omitempty"`
	Value     string     `json:"value"`
	Timestamp string     `json:"timestamp"`
}

// Time parses the record's RFC3339 timestamp. Zero time on parse failure.
func (r CheckoutRecord) Time() time.Time {
	t, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// KitDateLayout is the MM/DD layout embedded in composite kit IDs.
const KitDateLayout = "01/02"

// GenerateKitID builds the composite kit identifier from a base kit code and
// an assembly date: baseKitCode + "-" + MM/DD.
func GenerateKitID(baseKitCode string, t time.Time) string {
	return baseKitCode + "-" + t.Format(KitDateLayout)
}

// ExtractBaseKitCode returns the base code portion of a composite kit ID.
// The date suffix is everything after the last hyphen, so base codes may
// themselves contain hyphens. IDs without a hyphen are returned unchanged.
func ExtractBaseKitCode(kitID string) string {
	i := strings.LastIndex(kitID, "-")
	if i < 0 {
		return kitID
	}
	return kitID[:i]
}

// ExtractCreationDate returns the MM/DD suffix of a composite kit ID, or ""
// when the ID has no date suffix.
func ExtractCreationDate(kitID string) string {
	i := strings.LastIndex(kitID, "-")
	if i < 0 || i == len(kitID)-1 {
		return ""
	}
	return kitID[i+1:]
}

// KitRecord is one append-only entry in a day's kit ledger. Component fields
// hold raw identifiers; empty fields are omitted from the stored JSON.
type KitRecord struct {
	ID           string `json:"id,omitempty"`
	KitID        string `json:"kitId"`
	BaseKitCode  string `json:"baseKitCode"`
	CreationDate string `json:"creationDate"`
	Glasses      string `json:"glasses,omitempty"`
	Controller   string `json:"controller,omitempty"`
	Battery1     string `json:"battery01,omitempty"`
	Battery2     string `json:"battery02,omitempty"`
	Battery3     string `json:"battery03,omitempty"`
	Pads         string `json:"pads,omitempty"`
	Unused1      string `json:"unused01,omitempty"`
	Unused2      string `json:"unused02,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// Component returns the identifier occupying the slot, or "" when empty.
func (k KitRecord) Component(slot SlotID) string {
	switch slot {
	case SlotGlasses:
		return k.Glasses
	case SlotController:
		return k.Controller
	case SlotBattery1:
		return k.Battery1
	case SlotBattery2:
		return k.Battery2
	case SlotBattery3:
		return k.Battery3
	case SlotPads:
		return k.Pads
	case SlotUnused1:
		return k.Unused1
	case SlotUnused2:
		return k.Unused2
	}
	return ""
}

// SetComponent stores an identifier into the named slot.
func (k *KitRecord) SetComponent(slot SlotID, identifier string) {
	switch slot {
	case SlotGlasses:
		k.Glasses = identifier
	case SlotController:
		k.Controller = identifier
	case SlotBattery1:
		k.Battery1 = identifier
	case SlotBattery2:
		k.Battery2 = identifier
	case SlotBattery3:
		k.Battery3 = identifier
	case SlotPads:
		k.Pads = identifier
	case SlotUnused1:
		k.Unused1 = identifier
	case SlotUnused2:
		k.Unused2 = identifier
	}
}

// ComponentCount returns the number of occupied slots.
func (k KitRecord) ComponentCount() int {
	n := 0
	for _, slot := range AllSlots {
		if k.Component(slot) != "" {
			n++
		}
	}
	return n
}

// Time parses the record's RFC3339 timestamp. Zero time on parse failure.
func (k KitRecord) Time() time.Time {
	t, err := time.Parse(time.RFC3339, k.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
