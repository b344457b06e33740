// Package kit implements the kit assembly state machine: a kit code opens
// an assembly, component scans are classified and routed by confidence
// tier (auto-assign, confirm, manual select), duplicates and slot
// conflicts are caught before mutation, and an explicit save persists one
// kit record.
package kit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kitscan/internal/classify"
	"kitscan/internal/common"
	"kitscan/internal/model"
	"kitscan/internal/sanitize"
	"kitscan/internal/service"
)

// Phase is the engine's current position in the assembly protocol.
type Phase string

// Engine phases. Readiness to save is not a phase: it is computed from
// requirement fulfillment, and scanning continues past it.
const (
	PhaseAwaitingKitCode Phase = "AWAITING_KIT_CODE"
	PhaseAssembling      Phase = "ASSEMBLING"
)

// OutcomeKind tags every result an engine entry point can produce.
// Consumers switch over the kind; there are no other signals.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeRejected              OutcomeKind = "REJECTED"
	OutcomeIgnored               OutcomeKind = "IGNORED"
	OutcomeKitCodeAccepted       OutcomeKind = "KIT_CODE_ACCEPTED"
	OutcomeComponentAssigned     OutcomeKind = "COMPONENT_ASSIGNED"
	OutcomeConfirmationRequested OutcomeKind = "CONFIRMATION_REQUESTED"
	OutcomeManualSelectRequested OutcomeKind = "MANUAL_SELECT_REQUESTED"
	OutcomeDuplicateIdentifier   OutcomeKind = "DUPLICATE_IDENTIFIER"
	OutcomeConflictDetected      OutcomeKind = "CONFLICT_DETECTED"
	OutcomeConflictIgnored       OutcomeKind = "CONFLICT_IGNORED"
	OutcomeConflictReassigned    OutcomeKind = "CONFLICT_REASSIGNED"
	OutcomeDetectionCancelled    OutcomeKind = "DETECTION_CANCELLED"
	OutcomeEmptyKit              OutcomeKind = "EMPTY_KIT"
	OutcomeSaved                 OutcomeKind = "SAVED"
	OutcomeSaveFailed            OutcomeKind = "SAVE_FAILED"
	OutcomeCancelled             OutcomeKind = "CANCELLED"
	OutcomeUndone                OutcomeKind = "UNDONE"
	OutcomeNothingToUndo         OutcomeKind = "NOTHING_TO_UNDO"
	OutcomeUndoFailed            OutcomeKind = "UNDO_FAILED"
)

// Outcome is the sealed result of one engine entry point. The engine never
// panics or returns bare errors across its public surface; every call
// lands here.
type Outcome struct {
	Err       error
	Record    *model.KitRecord                  // set when a kit was persisted
	Component *model.ScannedComponent           // set when a slot was filled
	Detection *model.ComponentDetectionResult   // set when human resolution is needed
	Conflict  *model.DuplicateComponentConflict // set when a slot is contested
	Kind      OutcomeKind
	Message   string
	Raw       string
}

// Config holds configuration options for the engine.
type Config struct {
	SettleDelay time.Duration
}

// DefaultConfig returns the default configuration: a 300ms settle window
// between scans.
func DefaultConfig() Config {
	return Config{SettleDelay: 300 * time.Millisecond}
}

// Progress is a snapshot of the current assembly for display.
type Progress struct {
	BaseKitCode  string
	FilledSlots  int
	TotalSlots   int
	Requirements Requirements
	ReadyToSave  bool
}

// Engine is the kit assembly state machine. A mutex serializes entry
// points, so one scan or resolution callback runs to completion before the
// next, and snapshot getters are safe for concurrent readers. While a
// detection or conflict awaits resolution the engine stops accepting
// scans; the settle window after each processed scan drops re-decodes of
// the same physical barcode.
type Engine struct {
	now              func() time.Time
	ledger           service.Ledger
	recorder         service.Recorder
	detector         *classify.Detector
	state            *AssemblyState
	pendingDetection *model.ComponentDetectionResult
	pendingConflict  *model.DuplicateComponentConflict
	suspendedUntil   time.Time
	phase            Phase
	config           Config
	mu               sync.Mutex
}

// New creates an engine with the default serial pattern table.
func New(ledger service.Ledger, recorder service.Recorder, config Config) (*Engine, error) {
	detector, err := classify.NewDefaultDetector()
	if err != nil {
		return nil, fmt.Errorf("failed to build detector: %w", err)
	}
	return NewWithDetector(ledger, recorder, detector, config), nil
}

// NewWithDetector creates an engine with a caller-supplied detector.
func NewWithDetector(ledger service.Ledger, recorder service.Recorder, detector *classify.Detector, config Config) *Engine {
	return &Engine{
		ledger:   ledger,
		recorder: recorder,
		detector: detector,
		config:   config,
		phase:    PhaseAwaitingKitCode,
		now:      time.Now,
	}
}

// Phase returns the current protocol phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// BaseKitCode returns the open assembly's kit code, or "" when none.
func (e *Engine) BaseKitCode() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ""
	}
	return e.state.BaseKitCode()
}

// Accepting reports whether a new scan would be processed right now. It is
// false while a detection or conflict awaits resolution and for the settle
// window after each processed scan.
func (e *Engine) Accepting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accepting()
}

func (e *Engine) accepting() bool {
	if e.pendingDetection != nil || e.pendingConflict != nil {
		return false
	}
	return !e.now().Before(e.suspendedUntil)
}

// Progress returns a snapshot of the current assembly.
func (e *Engine) Progress() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress()
}

func (e *Engine) progress() Progress {
	if e.state == nil {
		return Progress{TotalSlots: len(model.AllSlots)}
	}
	requirements := e.state.Requirements()
	return Progress{
		BaseKitCode:  e.state.BaseKitCode(),
		FilledSlots:  e.state.ComponentCount(),
		TotalSlots:   len(model.AllSlots),
		Requirements: requirements,
		ReadyToSave:  requirements.Complete,
	}
}

// Components returns a copy of the slot occupancy map.
func (e *Engine) Components() map[model.SlotID]model.ScannedComponent {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return map[model.SlotID]model.ScannedComponent{}
	}
	return e.state.Components()
}

// AvailableSlots lists the unoccupied slots in declaration order.
func (e *Engine) AvailableSlots() []model.SlotID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return append([]model.SlotID(nil), model.AllSlots...)
	}
	return e.state.AvailableSlots()
}

// PendingDetection returns the detection awaiting resolution, if any.
func (e *Engine) PendingDetection() (model.ComponentDetectionResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pendingDetection == nil {
		return model.ComponentDetectionResult{}, false
	}
	return *e.pendingDetection, true
}

// PendingConflict returns the slot conflict awaiting resolution, if any.
func (e *Engine) PendingConflict() (model.DuplicateComponentConflict, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pendingConflict == nil {
		return model.DuplicateComponentConflict{}, false
	}
	return *e.pendingConflict, true
}

// StatusLine returns the operator-facing description of the current state.
func (e *Engine) StatusLine() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.phase == PhaseAwaitingKitCode:
		return "scan a kit code"
	case e.pendingConflict != nil:
		return fmt.Sprintf("resolve conflict for %s", e.pendingConflict.Slot.DisplayName())
	case e.pendingDetection != nil:
		return fmt.Sprintf("resolve detection for %s", e.pendingDetection.RawIdentifier)
	default:
		progress := e.progress()
		return fmt.Sprintf("kit %s: %d/%d slots filled", progress.BaseKitCode, progress.FilledSlots, progress.TotalSlots)
	}
}

// ProcessScan runs one candidate through sanitize, duplicate detection,
// type inference and tier routing. Invalid input never mutates state.
// After any processed scan the engine stops accepting for the settle
// window.
func (e *Engine) ProcessScan(ctx context.Context, candidate model.ScanCandidate) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.accepting() {
		return Outcome{Kind: OutcomeIgnored, Message: "scanner settling", Raw: candidate.Raw}
	}

	outcome := e.transition(candidate)
	e.suspendedUntil = e.now().Add(e.config.SettleDelay)
	e.recordEvent(ctx, outcome)
	return outcome
}

func (e *Engine) transition(candidate model.ScanCandidate) Outcome {
	cleaned, err := sanitize.Clean(candidate.Raw)
	if err != nil {
		return Outcome{Kind: OutcomeRejected, Message: sanitize.Reason(err), Raw: candidate.Raw, Err: err}
	}

	if e.phase == PhaseAwaitingKitCode {
		e.state = newAssemblyState(cleaned)
		e.phase = PhaseAssembling
		return Outcome{
			Kind:    OutcomeKitCodeAccepted,
			Message: fmt.Sprintf("kit %s opened, scan components", cleaned),
			Raw:     cleaned,
		}
	}

	return e.intake(cleaned, candidate.Confidence)
}

// intake routes one component scan by confidence tier. The duplicate check
// runs against both the scanned form and the corrected form, so an OCR
// misread of an already-consumed serial cannot sneak in twice.
func (e *Engine) intake(cleaned string, decodeConfidence float64) Outcome {
	if e.state.IsDuplicate(cleaned) {
		return duplicateOutcome(cleaned)
	}

	detection := e.detector.InferComponentType(cleaned)
	if detection == nil {
		return e.requestResolution(model.ComponentDetectionResult{
			RawIdentifier:      cleaned,
			Tier:               model.TierLow,
			RequiresManualSlot: true,
		})
	}

	if detection.Normalized != cleaned && e.state.IsDuplicate(detection.Normalized) {
		return duplicateOutcome(detection.Normalized)
	}

	combined := classify.DetectionConfidence(detection.Confidence, decodeConfidence)
	tier := model.TierFor(combined)
	suggested, hasSlot := e.state.SuggestSlot(detection.Type)

	result := model.ComponentDetectionResult{
		RawIdentifier: detection.Normalized,
		Type:          detection.Type,
		Pattern:       detection.PatternName,
		SuggestedSlot: suggested,
		Tier:          tier,
		Confidence:    combined,
	}

	switch tier {
	case model.TierHigh:
		if !hasSlot {
			result.RequiresManualSlot = true
			return e.requestResolution(result)
		}
		return e.assignOrConflict(detection.Normalized, detection.Type, suggested)
	case model.TierMedium:
		result.RequiresManualSlot = !hasSlot
		return e.requestResolution(result)
	default:
		result.RequiresManualSlot = true
		return e.requestResolution(result)
	}
}

func duplicateOutcome(identifier string) Outcome {
	return Outcome{Kind: OutcomeDuplicateIdentifier, Message: "already scanned in this kit", Raw: identifier}
}

// requestResolution parks a detection for the confirmation collaborator.
// No state mutation happens until the collaborator calls back.
func (e *Engine) requestResolution(result model.ComponentDetectionResult) Outcome {
	e.pendingDetection = &result
	if result.RequiresManualSlot {
		return Outcome{
			Kind:      OutcomeManualSelectRequested,
			Message:   fmt.Sprintf("select a slot for %s", result.RawIdentifier),
			Raw:       result.RawIdentifier,
			Detection: &result,
		}
	}
	return Outcome{
		Kind:      OutcomeConfirmationRequested,
		Message:   fmt.Sprintf("confirm %s as %s", result.RawIdentifier, result.SuggestedSlot.DisplayName()),
		Raw:       result.RawIdentifier,
		Detection: &result,
	}
}

// assignOrConflict installs the identifier into the slot, or raises a
// conflict when a different identifier already holds it.
func (e *Engine) assignOrConflict(identifier string, componentType model.ComponentType, slot model.SlotID) Outcome {
	if occupant, occupied := e.state.Component(slot); occupied {
		return e.raiseConflict(identifier, componentType, slot, occupant)
	}

	component := model.ScannedComponent{
		CapturedAt:    e.now(),
		RawIdentifier: identifier,
		Type:          resolvedType(componentType, slot),
		Slot:          slot,
	}
	e.state.assign(component)

	return Outcome{
		Kind:      OutcomeComponentAssigned,
		Message:   fmt.Sprintf("%s assigned to %s", identifier, slot.DisplayName()),
		Raw:       identifier,
		Component: &component,
	}
}

func (e *Engine) raiseConflict(identifier string, componentType model.ComponentType, slot model.SlotID, occupant model.ScannedComponent) Outcome {
	alternate, _ := e.state.AlternateSlot(componentType, slot)
	conflict := model.DuplicateComponentConflict{
		Slot:               slot,
		ExistingIdentifier: occupant.RawIdentifier,
		IncomingIdentifier: identifier,
		IncomingType:       componentType,
		AlternateSlot:      alternate,
	}
	e.pendingConflict = &conflict
	return Outcome{
		Kind:     OutcomeConflictDetected,
		Message:  fmt.Sprintf("%s already holds %s", slot.DisplayName(), occupant.RawIdentifier),
		Raw:      identifier,
		Conflict: &conflict,
	}
}

// resolvedType picks the type stored with an assigned component. A battery
// placed by first fit takes the numbered type of the slot it landed in; a
// manual assignment with no inferred type takes the slot's own type.
func resolvedType(inferred model.ComponentType, slot model.SlotID) model.ComponentType {
	if inferred == "" {
		return model.ComponentTypeForSlot(slot)
	}
	if inferred.IsBattery() {
		if slotType := model.ComponentTypeForSlot(slot); slotType.IsBattery() {
			return slotType
		}
	}
	return inferred
}

// ConfirmComponentAssignment resolves a pending detection by installing
// its identifier into the given slot. Assigning onto an occupied slot
// raises a conflict instead of overwriting.
func (e *Engine) ConfirmComponentAssignment(ctx context.Context, rawIdentifier string, slot model.SlotID) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingDetection == nil {
		return Outcome{Kind: OutcomeIgnored, Message: "no detection pending"}
	}
	if rawIdentifier != e.pendingDetection.RawIdentifier {
		return Outcome{Kind: OutcomeIgnored, Message: "stale confirmation", Raw: rawIdentifier}
	}
	if !slot.Valid() {
		return Outcome{Kind: OutcomeRejected, Message: fmt.Sprintf("unknown slot %q", slot), Raw: rawIdentifier}
	}

	detection := *e.pendingDetection
	e.pendingDetection = nil

	outcome := e.assignOrConflict(detection.RawIdentifier, detection.Type, slot)
	e.suspendedUntil = e.now().Add(e.config.SettleDelay)
	e.recordEvent(ctx, outcome)
	return outcome
}

// CancelComponentDetection discards the pending detection without mutating
// the assembly and resumes accepting immediately.
func (e *Engine) CancelComponentDetection() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingDetection == nil {
		return Outcome{Kind: OutcomeIgnored, Message: "no detection pending"}
	}
	raw := e.pendingDetection.RawIdentifier
	e.pendingDetection = nil
	e.suspendedUntil = time.Time{}
	return Outcome{Kind: OutcomeDetectionCancelled, Message: "detection cancelled", Raw: raw}
}

// IgnoreDuplicateComponent resolves a pending conflict by dropping the
// incoming scan. The slot keeps its occupant; nothing mutates.
func (e *Engine) IgnoreDuplicateComponent() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingConflict == nil {
		return Outcome{Kind: OutcomeIgnored, Message: "no conflict pending"}
	}
	conflict := *e.pendingConflict
	e.pendingConflict = nil
	e.suspendedUntil = time.Time{}
	return Outcome{
		Kind:    OutcomeConflictIgnored,
		Message: fmt.Sprintf("kept %s in %s", conflict.ExistingIdentifier, conflict.Slot.DisplayName()),
		Raw:     conflict.IncomingIdentifier,
	}
}

// ReassignDuplicateComponent resolves a pending conflict by evicting the
// slot's occupant and installing the incoming scan in its place. The
// evicted identifier leaves the consumed set and may be rescanned.
func (e *Engine) ReassignDuplicateComponent(ctx context.Context) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingConflict == nil {
		return Outcome{Kind: OutcomeIgnored, Message: "no conflict pending"}
	}
	conflict := *e.pendingConflict
	e.pendingConflict = nil

	component := model.ScannedComponent{
		CapturedAt:    e.now(),
		RawIdentifier: conflict.IncomingIdentifier,
		Type:          resolvedType(conflict.IncomingType, conflict.Slot),
		Slot:          conflict.Slot,
	}
	e.state.assign(component)

	outcome := Outcome{
		Kind:      OutcomeConflictReassigned,
		Message:   fmt.Sprintf("%s replaced %s in %s", component.RawIdentifier, conflict.ExistingIdentifier, conflict.Slot.DisplayName()),
		Raw:       component.RawIdentifier,
		Component: &component,
	}
	e.suspendedUntil = e.now().Add(e.config.SettleDelay)
	e.recordEvent(ctx, outcome)
	return outcome
}

// SaveKitBundle persists the assembly as one kit record. A partial bundle
// may be saved as long as one component is present; completeness gating
// belongs to the caller. On success the engine resets for the next kit; on
// failure it stays in place so no scanned work is lost.
func (e *Engine) SaveKitBundle(ctx context.Context) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseAssembling {
		return Outcome{Kind: OutcomeIgnored, Message: "no kit in progress"}
	}
	if e.pendingDetection != nil || e.pendingConflict != nil {
		return Outcome{Kind: OutcomeIgnored, Message: "resolve the pending component first"}
	}
	if e.state.ComponentCount() == 0 {
		return Outcome{Kind: OutcomeEmptyKit, Message: "scan at least one component before saving"}
	}

	now := e.now()
	record := model.KitRecord{
		KitID:        model.GenerateKitID(e.state.BaseKitCode(), now),
		BaseKitCode:  e.state.BaseKitCode(),
		CreationDate: now.Format(model.KitDateLayout),
	}
	for slot, component := range e.state.Components() {
		record.SetComponent(slot, component.RawIdentifier)
	}

	stored, err := e.ledger.AppendKit(ctx, record)
	if err != nil {
		common.LogError(err, "failed to save kit", common.Fields{"kit_id": record.KitID})
		return Outcome{
			Kind:    OutcomeSaveFailed,
			Message: "failed to save kit, progress kept",
			Err:     err,
		}
	}

	count := stored.ComponentCount()
	common.LogInfo("kit saved", common.Fields{"kit_id": stored.KitID, "components": count})

	e.state = nil
	e.phase = PhaseAwaitingKitCode

	outcome := Outcome{
		Kind:    OutcomeSaved,
		Message: fmt.Sprintf("kit %s saved with %d components", stored.KitID, count),
		Raw:     stored.KitID,
		Record:  &stored,
	}
	e.suspendedUntil = now.Add(e.config.SettleDelay)
	e.recordEvent(ctx, outcome)
	return outcome
}

// ClearState discards the assembly and any pending resolution from any
// phase and resumes accepting immediately.
func (e *Engine) ClearState() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = nil
	e.phase = PhaseAwaitingKitCode
	e.pendingDetection = nil
	e.pendingConflict = nil
	e.suspendedUntil = time.Time{}
	return Outcome{Kind: OutcomeCancelled, Message: "cleared"}
}

// UndoLast deletes the most recently timestamped kit record from today's
// ledger. Last-writer-only: there is no undo stack.
func (e *Engine) UndoLast(ctx context.Context) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	deleted, err := e.ledger.DeleteMostRecentKit(ctx, e.now())
	if err != nil {
		common.LogError(err, "failed to undo", common.Fields{"type": "kit"})
		return Outcome{Kind: OutcomeUndoFailed, Message: "failed to undo", Err: err}
	}
	if !deleted {
		return Outcome{Kind: OutcomeNothingToUndo, Message: "nothing to undo"}
	}
	return Outcome{Kind: OutcomeUndone, Message: "last kit removed"}
}

// recordEvent reports a processed scan to the history collaborator.
// Failures are logged and dropped; history never blocks a transition.
func (e *Engine) recordEvent(ctx context.Context, outcome Outcome) {
	if e.recorder == nil {
		return
	}

	raw := outcome.Raw
	if len(raw) > sanitize.MaxInputLength {
		raw = raw[:sanitize.MaxInputLength]
	}
	event := model.ScanEvent{
		At:      e.now(),
		Mode:    "kit",
		Raw:     raw,
		Class:   classify.Identifier(raw),
		Outcome: string(outcome.Kind),
		Detail:  outcome.Message,
	}
	if err := e.recorder.RecordScan(ctx, event); err != nil {
		common.LogDebug("failed to record scan event", common.Fields{"error": err.Error()})
	}
}
