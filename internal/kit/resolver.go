package kit

import (
	"kitscan/internal/model"
)

// MinBatteries is the number of filled battery slots a complete kit needs.
const MinBatteries = 2

// AssemblyState tracks one in-progress kit bundle: the base kit code, the
// slot occupancy map, and the set of identifiers already consumed.
//
// Invariants: at most one component per slot, and an identifier is in the
// consumed set exactly when it occupies some slot.
type AssemblyState struct {
	baseKitCode string
	components  map[model.SlotID]model.ScannedComponent
	seen        map[string]struct{}
}

func newAssemblyState(baseKitCode string) *AssemblyState {
	return &AssemblyState{
		baseKitCode: baseKitCode,
		components:  make(map[model.SlotID]model.ScannedComponent),
		seen:        make(map[string]struct{}),
	}
}

// BaseKitCode returns the kit code this assembly was opened with.
func (s *AssemblyState) BaseKitCode() string {
	return s.baseKitCode
}

// Component returns the occupant of the slot, if any.
func (s *AssemblyState) Component(slot model.SlotID) (model.ScannedComponent, bool) {
	component, ok := s.components[slot]
	return component, ok
}

// Components returns a copy of the slot occupancy map.
func (s *AssemblyState) Components() map[model.SlotID]model.ScannedComponent {
	out := make(map[model.SlotID]model.ScannedComponent, len(s.components))
	for slot, component := range s.components {
		out[slot] = component
	}
	return out
}

// ComponentCount returns the number of occupied slots.
func (s *AssemblyState) ComponentCount() int {
	return len(s.components)
}

// IsDuplicate reports whether the identifier already occupies a slot in
// this assembly.
func (s *AssemblyState) IsDuplicate(rawIdentifier string) bool {
	_, ok := s.seen[rawIdentifier]
	return ok
}

// assign installs a component into its slot, evicting any current occupant.
func (s *AssemblyState) assign(component model.ScannedComponent) {
	s.removeSlot(component.Slot)
	s.components[component.Slot] = component
	s.seen[component.RawIdentifier] = struct{}{}
}

// removeSlot empties a slot and releases its occupant's identifier.
func (s *AssemblyState) removeSlot(slot model.SlotID) {
	occupant, ok := s.components[slot]
	if !ok {
		return
	}
	delete(s.components, slot)
	delete(s.seen, occupant.RawIdentifier)
}

// SuggestSlot proposes a slot for the component type: the fixed slot for
// singleton types (even when occupied; the caller detects the conflict),
// or the first unoccupied battery slot for any battery-family type. False
// when no type was inferred or every battery slot is taken, in which case
// the caller falls back to manual selection.
func (s *AssemblyState) SuggestSlot(componentType model.ComponentType) (model.SlotID, bool) {
	if slot, ok := model.SingletonSlot(componentType); ok {
		return slot, true
	}
	if componentType.IsBattery() {
		for _, slot := range model.BatterySlots {
			if _, occupied := s.components[slot]; !occupied {
				return slot, true
			}
		}
	}
	return "", false
}

// AvailableSlots lists the unoccupied slots in declaration order.
func (s *AssemblyState) AvailableSlots() []model.SlotID {
	out := make([]model.SlotID, 0, len(model.AllSlots)-len(s.components))
	for _, slot := range model.AllSlots {
		if _, occupied := s.components[slot]; !occupied {
			out = append(out, slot)
		}
	}
	return out
}

// AlternateSlot finds a still-free slot of the same family as a contested
// one, shown alongside a conflict. Only the battery family can have one;
// singleton types have exactly one home.
func (s *AssemblyState) AlternateSlot(componentType model.ComponentType, contested model.SlotID) (model.SlotID, bool) {
	if !componentType.IsBattery() {
		return "", false
	}
	for _, slot := range model.BatterySlots {
		if slot == contested {
			continue
		}
		if _, occupied := s.components[slot]; !occupied {
			return slot, true
		}
	}
	return "", false
}

// Requirements is the computed fulfillment status of the kit minimums.
// Never stored; recomputed from slot occupancy on demand.
type Requirements struct {
	HasGlasses    bool
	HasController bool
	BatteryCount  int
	HasBatteries  bool
	Complete      bool
}

// Requirements reports fulfillment of the kit minimums: at least one
// glasses, one controller and two batteries.
func (s *AssemblyState) Requirements() Requirements {
	_, hasGlasses := s.components[model.SlotGlasses]
	_, hasController := s.components[model.SlotController]

	batteries := 0
	for _, slot := range model.BatterySlots {
		if _, occupied := s.components[slot]; occupied {
			batteries++
		}
	}

	return Requirements{
		HasGlasses:    hasGlasses,
		HasController: hasController,
		BatteryCount:  batteries,
		HasBatteries:  batteries >= MinBatteries,
		Complete:      hasGlasses && hasController && batteries >= MinBatteries,
	}
}
