package model

import "time"

// ComponentType is the inferred category of a scanned kit component.
type ComponentType string

// Component types. The three battery variants are interchangeable members of
// one family; each physical battery still occupies exactly one numbered slot.
const (
	ComponentGlasses    ComponentType = "GLASSES"
	ComponentController ComponentType = "CONTROLLER"
	ComponentBattery1   ComponentType = "BATTERY1"
	ComponentBattery2   ComponentType = "BATTERY2"
	ComponentBattery3   ComponentType = "BATTERY3"
	ComponentPads       ComponentType = "PADS"
	ComponentUnused1    ComponentType = "UNUSED1"
	ComponentUnused2    ComponentType = "UNUSED2"
)

// IsBattery reports whether the type belongs to the battery family.
func (c ComponentType) IsBattery() bool {
	return c == ComponentBattery1 || c == ComponentBattery2 || c == ComponentBattery3
}

// SlotID names one of the eight fixed positions in a kit bundle.
type SlotID string

// Kit slots, in declaration order.
const (
	SlotGlasses    SlotID = "glasses"
	SlotController SlotID = "controller"
	SlotBattery1   SlotID = "battery01"
	SlotBattery2   SlotID = "battery02"
	SlotBattery3   SlotID = "battery03"
	SlotPads       SlotID = "pads"
	SlotUnused1    SlotID = "unused01"
	SlotUnused2    SlotID = "unused02"
)

// AllSlots lists every slot in declaration order.
var AllSlots = []SlotID{
	SlotGlasses,
	SlotController,
	SlotBattery1,
	SlotBattery2,
	SlotBattery3,
	SlotPads,
	SlotUnused1,
	SlotUnused2,
}

// BatterySlots lists the battery slots in first-fit order.
var BatterySlots = []SlotID{SlotBattery1, SlotBattery2, SlotBattery3}

var slotDisplayNames = map[SlotID]string{
	SlotGlasses:    "Glasses",
	SlotController: "Controller",
	SlotBattery1:   "Battery 1",
	SlotBattery2:   "Battery 2",
	SlotBattery3:   "Battery 3",
	SlotPads:       "Pads",
	SlotUnused1:    "Spare 1",
	SlotUnused2:    "Spare 2",
}

// DisplayName returns the human-readable name of the slot.
func (s SlotID) DisplayName() string {
	if name, ok := slotDisplayNames[s]; ok {
		return name
	}
	return string(s)
}

// Valid reports whether s is one of the eight kit slots.
func (s SlotID) Valid() bool {
	_, ok := slotDisplayNames[s]
	return ok
}

var slotComponentTypes = map[SlotID]ComponentType{
	SlotGlasses:    ComponentGlasses,
	SlotController: ComponentController,
	SlotBattery1:   ComponentBattery1,
	SlotBattery2:   ComponentBattery2,
	SlotBattery3:   ComponentBattery3,
	SlotPads:       ComponentPads,
	SlotUnused1:    ComponentUnused1,
	SlotUnused2:    ComponentUnused2,
}

// ComponentTypeForSlot returns the component type a slot holds. A battery
// assigned by first fit takes the type of the slot it landed in.
func ComponentTypeForSlot(s SlotID) ComponentType {
	return slotComponentTypes[s]
}

// SingletonSlot maps a non-battery component type to its fixed slot.
// Battery types have no fixed slot; they are placed first-fit.
func SingletonSlot(t ComponentType) (SlotID, bool) {
	switch t {
	case ComponentGlasses:
		return SlotGlasses, true
	case ComponentController:
		return SlotController, true
	case ComponentPads:
		return SlotPads, true
	case ComponentUnused1:
		return SlotUnused1, true
	case ComponentUnused2:
		return SlotUnused2, true
	default:
		return "", false
	}
}

// ScannedComponent is one identifier committed to a slot during kit
// assembly. Immutable once created: replacing a slot's occupant means
// removing this value and adding a new one.
type ScannedComponent struct {
	CapturedAt    time.Time
	RawIdentifier string
	Type          ComponentType
	Slot          SlotID
}

// ComponentDetectionResult is surfaced to the confirmation collaborator when
// a detection cannot be auto-assigned. RequiresManualSlot marks low-tier
// detections where the human picks the slot as well.
type ComponentDetectionResult struct {
	RawIdentifier      string
	Type               ComponentType // empty when no pattern matched
	Pattern            string        // name of the matched serial pattern, if any
	SuggestedSlot      SlotID        // empty when no slot could be suggested
	Tier               ConfidenceTier
	Confidence         float64
	RequiresManualSlot bool
}

// DuplicateComponentConflict is surfaced when a detected component's slot is
// already occupied by a different identifier. Resolution is either "ignore"
// (drop the incoming scan) or "reassign" (evict the occupant and install the
// incoming scan in its place). AlternateSlot, when set, is a still-free slot
// the incoming component could otherwise use; it is informational.
type DuplicateComponentConflict struct {
	Slot               SlotID
	ExistingIdentifier string
	IncomingIdentifier string
	IncomingType       ComponentType
	AlternateSlot      SlotID
}

// ValidationResult is the outcome of validating a manually entered serial.
type ValidationResult struct {
	Normalized string
	Reason     string
	Valid      bool
}
