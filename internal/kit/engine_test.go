package kit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitscan/internal/model"
	"kitscan/internal/service"
	"kitscan/internal/storage"
)

// Serials used throughout; the exact vendor prefixes score high enough to
// auto-assign from a barcode read.
const (
	glassesSerial    = "G0G3481234"
	glassesSerialAlt = "G0G3485678"
	controllerSerial = "G0G46K5678"
	batterySerial1   = "G0G4NU0001"
	batterySerial2   = "G0G4NU0002"
	batterySerial3   = "G0G4NU0003"
	batterySerial4   = "G0G4NU0004"
	unknownSerial    = "ZX-900-441"
)

// testClock drives the engine's settle window deterministically.
type testClock struct {
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Now()}
}

func (c *testClock) Now() time.Time {
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

// failingLedger wraps a real ledger with injectable failures.
type failingLedger struct {
	service.Ledger
	appendErr error
	deleteErr error
}

func (f *failingLedger) AppendKit(ctx context.Context, record model.KitRecord) (model.KitRecord, error) {
	if f.appendErr != nil {
		return model.KitRecord{}, f.appendErr
	}
	return f.Ledger.AppendKit(ctx, record)
}

func (f *failingLedger) DeleteMostRecentKit(ctx context.Context, date time.Time) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	return f.Ledger.DeleteMostRecentKit(ctx, date)
}

// recordingRecorder captures history events for assertions.
type recordingRecorder struct {
	err    error
	events []model.ScanEvent
	mu     sync.Mutex
}

func (r *recordingRecorder) RecordScan(_ context.Context, event model.ScanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingRecorder) RecentEvents(_ context.Context, _ int) ([]model.ScanEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ScanEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

func (r *recordingRecorder) Close() error { return nil }

func newTestEngine(t *testing.T) (*Engine, *storage.MemoryLedger, *testClock) {
	t.Helper()
	ledger := storage.NewMemoryLedger()
	clock := newTestClock()
	e, err := New(ledger, nil, DefaultConfig())
	require.NoError(t, err)
	e.now = clock.Now
	return e, ledger, clock
}

// scanSettled advances past the settle window before scanning a barcode.
func scanSettled(e *Engine, clock *testClock, raw string) Outcome {
	clock.Advance(time.Second)
	return e.ProcessScan(context.Background(), model.NewBarcodeCandidate(raw, "CODE_128"))
}

func scanOCR(e *Engine, clock *testClock, raw string, confidence float64) Outcome {
	clock.Advance(time.Second)
	return e.ProcessScan(context.Background(), model.NewOCRCandidate(raw, confidence))
}

// openKit starts an assembly for K100.
func openKit(t *testing.T, e *Engine, clock *testClock) {
	t.Helper()
	outcome := scanSettled(e, clock, "K100")
	require.Equal(t, OutcomeKitCodeAccepted, outcome.Kind)
}

func TestKitCodeOpensAssembly(t *testing.T) {
	e, _, clock := newTestEngine(t)

	assert.Equal(t, PhaseAwaitingKitCode, e.Phase())
	outcome := scanSettled(e, clock, "K100")

	assert.Equal(t, OutcomeKitCodeAccepted, outcome.Kind)
	assert.Equal(t, PhaseAssembling, e.Phase())
	assert.Equal(t, "K100", e.BaseKitCode())
	assert.Empty(t, e.Components())
}

func TestInvalidKitCodeRejectedThenRecovers(t *testing.T) {
	e, _, clock := newTestEngine(t)

	outcome := scanSettled(e, clock, "   ")
	assert.Equal(t, OutcomeRejected, outcome.Kind)
	assert.Equal(t, PhaseAwaitingKitCode, e.Phase())

	outcome = scanSettled(e, clock, "K100")
	assert.Equal(t, OutcomeKitCodeAccepted, outcome.Kind)
}

func TestCompleteKitAssemblyAndSave(t *testing.T) {
	e, ledger, clock := newTestEngine(t)
	ctx := context.Background()
	openKit(t, e, clock)

	for _, serial := range []string{glassesSerial, controllerSerial, batterySerial1} {
		outcome := scanSettled(e, clock, serial)
		require.Equal(t, OutcomeComponentAssigned, outcome.Kind, "serial %s", serial)
		assert.False(t, e.Progress().ReadyToSave)
	}

	outcome := scanSettled(e, clock, batterySerial2)
	require.Equal(t, OutcomeComponentAssigned, outcome.Kind)

	progress := e.Progress()
	assert.True(t, progress.ReadyToSave)
	assert.Equal(t, 4, progress.FilledSlots)
	assert.Equal(t, 8, progress.TotalSlots)

	wantKitID := model.GenerateKitID("K100", clock.Now())
	saved := e.SaveKitBundle(ctx)
	require.Equal(t, OutcomeSaved, saved.Kind)
	require.NotNil(t, saved.Record)
	assert.Equal(t, wantKitID, saved.Record.KitID)
	assert.Equal(t, "K100", saved.Record.BaseKitCode)
	assert.Equal(t, glassesSerial, saved.Record.Glasses)
	assert.Equal(t, controllerSerial, saved.Record.Controller)
	assert.Equal(t, batterySerial1, saved.Record.Battery1)
	assert.Equal(t, batterySerial2, saved.Record.Battery2)
	assert.Empty(t, saved.Record.Battery3)
	assert.Empty(t, saved.Record.Pads)

	// The engine resets for the next kit.
	assert.Equal(t, PhaseAwaitingKitCode, e.Phase())
	assert.Empty(t, e.BaseKitCode())

	records, err := ledger.KitsForDate(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, wantKitID, records[0].KitID)
}

func TestBatteryFirstFit(t *testing.T) {
	e, _, clock := newTestEngine(t)
	openKit(t, e, clock)

	first := scanSettled(e, clock, batterySerial1)
	require.Equal(t, OutcomeComponentAssigned, first.Kind)
	assert.Equal(t, model.SlotBattery1, first.Component.Slot)
	assert.Equal(t, model.ComponentBattery1, first.Component.Type)

	second := scanSettled(e, clock, batterySerial2)
	require.Equal(t, OutcomeComponentAssigned, second.Kind)
	assert.Equal(t, model.SlotBattery2, second.Component.Slot)
	assert.Equal(t, model.ComponentBattery2, second.Component.Type)

	third := scanSettled(e, clock, batterySerial3)
	require.Equal(t, OutcomeComponentAssigned, third.Kind)
	assert.Equal(t, model.SlotBattery3, third.Component.Slot)

	// With the bank full a fourth battery has no suggestion and routes to
	// manual selection instead of failing.
	fourth := scanSettled(e, clock, batterySerial4)
	assert.Equal(t, OutcomeManualSelectRequested, fourth.Kind)
	require.NotNil(t, fourth.Detection)
	assert.True(t, fourth.Detection.RequiresManualSlot)
	assert.Equal(t, model.ComponentBattery1, fourth.Detection.Type)
}

func TestDuplicateIdentifierRejected(t *testing.T) {
	e, _, clock := newTestEngine(t)
	openKit(t, e, clock)

	first := scanSettled(e, clock, glassesSerial)
	require.Equal(t, OutcomeComponentAssigned, first.Kind)
	before := e.Components()

	again := scanSettled(e, clock, glassesSerial)
	assert.Equal(t, OutcomeDuplicateIdentifier, again.Kind)
	assert.Equal(t, before, e.Components(), "duplicate must not mutate")

	// Still rejected after further assignments.
	scanSettled(e, clock, controllerSerial)
	third := scanSettled(e, clock, glassesSerial)
	assert.Equal(t, OutcomeDuplicateIdentifier, third.Kind)
}

// An OCR misread of an already-consumed serial corrects to the same
// identifier and must be caught as a duplicate, not assigned twice.
func TestDuplicateDetectedThroughCorrectedSerial(t *testing.T) {
	e, _, clock := newTestEngine(t)
	openKit(t, e, clock)

	first := scanSettled(e, clock, glassesSerial)
	require.Equal(t, OutcomeComponentAssigned, first.Kind)

	misread := scanOCR(e, clock, "GOG3481234", 0.99)
	assert.Equal(t, OutcomeDuplicateIdentifier, misread.Kind)
	assert.Len(t, e.Components(), 1)
}

func TestMediumTierHoldsForConfirmation(t *testing.T) {
	e, _, clock := newTestEngine(t)
	ctx := context.Background()
	openKit(t, e, clock)

	// A perfect pattern on an uncertain OCR read lands in the medium tier.
	outcome := scanOCR(e, clock, glassesSerial, 0.85)
	require.Equal(t, OutcomeConfirmationRequested, outcome.Kind)
	require.NotNil(t, outcome.Detection)
	assert.Equal(t, model.TierMedium, outcome.Detection.Tier)
	assert.Equal(t, model.SlotGlasses, outcome.Detection.SuggestedSlot)
	assert.False(t, outcome.Detection.RequiresManualSlot)
	assert.Empty(t, e.Components(), "no mutation before confirmation")

	// The engine will not take another scan until the human answers.
	assert.False(t, e.Accepting())
	clock.Advance(time.Second)
	assert.False(t, e.Accepting())
	dropped := e.ProcessScan(ctx, model.NewBarcodeCandidate(controllerSerial, "CODE_128"))
	assert.Equal(t, OutcomeIgnored, dropped.Kind)

	confirmed := e.ConfirmComponentAssignment(ctx, glassesSerial, model.SlotGlasses)
	require.Equal(t, OutcomeComponentAssigned, confirmed.Kind)
	require.NotNil(t, confirmed.Component)
	assert.Equal(t, model.SlotGlasses, confirmed.Component.Slot)
	assert.Equal(t, glassesSerial, e.Components()[model.SlotGlasses].RawIdentifier)
}

func TestConfirmationStaleIdentifierIgnored(t *testing.T) {
	e, _, clock := newTestEngine(t)
	ctx := context.Background()
	openKit(t, e, clock)

	scanOCR(e, clock, glassesSerial, 0.85)

	stale := e.ConfirmComponentAssignment(ctx, glassesSerialAlt, model.SlotGlasses)
	assert.Equal(t, OutcomeIgnored, stale.Kind)
	assert.Empty(t, e.Components())

	// The original detection is still pending and resolvable.
	_, pending := e.PendingDetection()
	assert.True(t, pending)
	confirmed := e.ConfirmComponentAssignment(ctx, glassesSerial, model.SlotGlasses)
	assert.Equal(t, OutcomeComponentAssigned, confirmed.Kind)
}

func TestConfirmationRejectsUnknownSlot(t *testing.T) {
	e, _, clock := newTestEngine(t)
	ctx := context.Background()
	openKit(t, e, clock)

	scanOCR(e, clock, glassesSerial, 0.85)

	outcome := e.ConfirmComponentAssignment(ctx, glassesSerial, model.SlotID("battery04"))
	assert.Equal(t, OutcomeRejected, outcome.Kind)
	assert.Empty(t, e.Components())
}

func TestCancelComponentDetection(t *testing.T) {
	e, _, clock := newTestEngine(t)
	openKit(t, e, clock)

	scanOCR(e, clock, glassesSerial, 0.85)
	require.False(t, e.Accepting())

	cancelled := e.CancelComponentDetection()
	assert.Equal(t, OutcomeDetectionCancelled, cancelled.Kind)
	assert.Empty(t, e.Components())
	assert.True(t, e.Accepting(), "cancel must restore acceptance immediately")

	// The same serial may be rescanned afterwards.
	outcome := scanSettled(e, clock, glassesSerial)
	assert.Equal(t, OutcomeComponentAssigned, outcome.Kind)
}

func TestUnknownSerialRoutesToManualSelection(t *testing.T) {
	e, _, clock := newTestEngine(t)
	ctx := context.Background()
	openKit(t, e, clock)

	outcome := scanSettled(e, clock, unknownSerial)
	require.Equal(t, OutcomeManualSelectRequested, outcome.Kind)
	require.NotNil(t, outcome.Detection)
	assert.Equal(t, model.TierLow, outcome.Detection.Tier)
	assert.True(t, outcome.Detection.RequiresManualSlot)
	assert.Empty(t, outcome.Detection.Type)
	assert.Empty(t, e.Components())

	// The human picks pads; the component takes the slot's own type.
	confirmed := e.ConfirmComponentAssignment(ctx, unknownSerial, model.SlotPads)
	require.Equal(t, OutcomeComponentAssigned, confirmed.Kind)
	assert.Equal(t, model.ComponentPads, confirmed.Component.Type)
	assert.Equal(t, unknownSerial, e.Components()[model.SlotPads].RawIdentifier)
}

func TestHighTierConflictOnOccupiedSlot(t *testing.T) {
	e, _, clock := newTestEngine(t)
	openKit(t, e, clock)

	require.Equal(t, OutcomeComponentAssigned, scanSettled(e, clock, glassesSerial).Kind)

	outcome := scanSettled(e, clock, glassesSerialAlt)
	require.Equal(t, OutcomeConflictDetected, outcome.Kind)
	require.NotNil(t, outcome.Conflict)
	assert.Equal(t, model.SlotGlasses, outcome.Conflict.Slot)
	assert.Equal(t, glassesSerial, outcome.Conflict.ExistingIdentifier)
	assert.Equal(t, glassesSerialAlt, outcome.Conflict.IncomingIdentifier)
	assert.Empty(t, outcome.Conflict.AlternateSlot, "glasses has exactly one home")
	assert.False(t, e.Accepting())
	assert.Len(t, e.Components(), 1, "conflict must not mutate")
}

func TestConflictIgnoreKeepsOccupant(t *testing.T) {
	e, _, clock := newTestEngine(t)
	openKit(t, e, clock)

	scanSettled(e, clock, glassesSerial)
	scanSettled(e, clock, glassesSerialAlt)
	require.NotNil(t, e.pendingConflict)

	outcome := e.IgnoreDuplicateComponent()
	assert.Equal(t, OutcomeConflictIgnored, outcome.Kind)
	assert.Equal(t, glassesSerial, e.Components()[model.SlotGlasses].RawIdentifier)
	assert.True(t, e.Accepting())

	// The ignored scan was never consumed; rescanning raises the conflict
	// again rather than reporting a duplicate.
	again := scanSettled(e, clock, glassesSerialAlt)
	assert.Equal(t, OutcomeConflictDetected, again.Kind)
}

func TestConflictReassignEvictsOccupant(t *testing.T) {
	e, _, clock := newTestEngine(t)
	ctx := context.Background()
	openKit(t, e, clock)

	scanSettled(e, clock, glassesSerial)
	scanSettled(e, clock, glassesSerialAlt)

	outcome := e.ReassignDuplicateComponent(ctx)
	require.Equal(t, OutcomeConflictReassigned, outcome.Kind)
	require.NotNil(t, outcome.Component)
	assert.Equal(t, glassesSerialAlt, e.Components()[model.SlotGlasses].RawIdentifier)
	assert.Len(t, e.Components(), 1, "reassignment swaps exactly one occupant")

	// The evicted identifier is released and may be scanned again.
	again := scanSettled(e, clock, glassesSerial)
	assert.Equal(t, OutcomeConflictDetected, again.Kind)
}

// A confirmed assignment into an occupied battery slot conflicts and offers
// the free battery slot as the alternate.
func TestManualBatteryConflictOffersAlternate(t *testing.T) {
	e, _, clock := newTestEngine(t)
	ctx := context.Background()
	openKit(t, e, clock)

	require.Equal(t, OutcomeComponentAssigned, scanSettled(e, clock, batterySerial1).Kind)

	medium := scanOCR(e, clock, batterySerial2, 0.85)
	require.Equal(t, OutcomeConfirmationRequested, medium.Kind)
	assert.Equal(t, model.SlotBattery2, medium.Detection.SuggestedSlot)

	// The operator overrides the suggestion onto the occupied slot.
	outcome := e.ConfirmComponentAssignment(ctx, batterySerial2, model.SlotBattery1)
	require.Equal(t, OutcomeConflictDetected, outcome.Kind)
	require.NotNil(t, outcome.Conflict)
	assert.Equal(t, model.SlotBattery1, outcome.Conflict.Slot)
	assert.Equal(t, model.SlotBattery2, outcome.Conflict.AlternateSlot)

	reassigned := e.ReassignDuplicateComponent(ctx)
	require.Equal(t, OutcomeConflictReassigned, reassigned.Kind)
	assert.Equal(t, batterySerial2, e.Components()[model.SlotBattery1].RawIdentifier)
	assert.Equal(t, model.ComponentBattery1, e.Components()[model.SlotBattery1].Type)
}

func TestCompletenessSurvivesExtraComponents(t *testing.T) {
	e, _, clock := newTestEngine(t)
	openKit(t, e, clock)

	scanSettled(e, clock, glassesSerial)
	scanSettled(e, clock, controllerSerial)
	scanSettled(e, clock, batterySerial1)
	scanSettled(e, clock, batterySerial2)
	require.True(t, e.Progress().ReadyToSave)

	// Scanning continues past completion and never revokes it.
	third := scanSettled(e, clock, batterySerial3)
	assert.Equal(t, OutcomeComponentAssigned, third.Kind)
	assert.True(t, e.Progress().ReadyToSave)
	assert.Equal(t, 5, e.Progress().FilledSlots)
}

func TestSaveRequiresAComponent(t *testing.T) {
	e, ledger, clock := newTestEngine(t)
	ctx := context.Background()
	openKit(t, e, clock)

	outcome := e.SaveKitBundle(ctx)
	assert.Equal(t, OutcomeEmptyKit, outcome.Kind)
	assert.Equal(t, PhaseAssembling, e.Phase())

	records, err := ledger.KitsForDate(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPartialBundleSaves(t *testing.T) {
	e, _, clock := newTestEngine(t)
	ctx := context.Background()
	openKit(t, e, clock)

	scanSettled(e, clock, glassesSerial)
	require.False(t, e.Progress().ReadyToSave)

	outcome := e.SaveKitBundle(ctx)
	require.Equal(t, OutcomeSaved, outcome.Kind)
	assert.Equal(t, glassesSerial, outcome.Record.Glasses)
	assert.Equal(t, 1, outcome.Record.ComponentCount())
}

func TestSaveFailureKeepsProgress(t *testing.T) {
	failing := &failingLedger{Ledger: storage.NewMemoryLedger(), appendErr: errors.New("disk full")}
	clock := newTestClock()
	e, err := New(failing, nil, DefaultConfig())
	require.NoError(t, err)
	e.now = clock.Now
	ctx := context.Background()
	openKit(t, e, clock)

	scanSettled(e, clock, glassesSerial)
	scanSettled(e, clock, controllerSerial)

	outcome := e.SaveKitBundle(ctx)
	assert.Equal(t, OutcomeSaveFailed, outcome.Kind)
	assert.Error(t, outcome.Err)
	assert.Equal(t, PhaseAssembling, e.Phase(), "failed save must not discard scans")
	assert.Len(t, e.Components(), 2)

	// The ledger heals and the same assembly saves.
	failing.appendErr = nil
	saved := e.SaveKitBundle(ctx)
	require.Equal(t, OutcomeSaved, saved.Kind)
	assert.Equal(t, 2, saved.Record.ComponentCount())
	assert.Equal(t, PhaseAwaitingKitCode, e.Phase())
}

func TestSaveBlockedWhileResolutionPending(t *testing.T) {
	e, _, clock := newTestEngine(t)
	ctx := context.Background()
	openKit(t, e, clock)

	scanSettled(e, clock, glassesSerial)
	scanOCR(e, clock, controllerSerial, 0.85)
	require.NotNil(t, e.pendingDetection)

	outcome := e.SaveKitBundle(ctx)
	assert.Equal(t, OutcomeIgnored, outcome.Kind)
	assert.Equal(t, PhaseAssembling, e.Phase())
}

func TestSaveWithoutOpenKitIgnored(t *testing.T) {
	e, _, _ := newTestEngine(t)
	outcome := e.SaveKitBundle(context.Background())
	assert.Equal(t, OutcomeIgnored, outcome.Kind)
}

func TestSettleWindowDropsImmediateRescan(t *testing.T) {
	e, _, clock := newTestEngine(t)
	ctx := context.Background()
	openKit(t, e, clock)

	first := scanSettled(e, clock, glassesSerial)
	require.Equal(t, OutcomeComponentAssigned, first.Kind)
	assert.False(t, e.Accepting())

	dropped := e.ProcessScan(ctx, model.NewBarcodeCandidate(glassesSerial, "CODE_128"))
	assert.Equal(t, OutcomeIgnored, dropped.Kind)

	clock.Advance(301 * time.Millisecond)
	assert.True(t, e.Accepting())
	accepted := e.ProcessScan(ctx, model.NewBarcodeCandidate(controllerSerial, "CODE_128"))
	assert.Equal(t, OutcomeComponentAssigned, accepted.Kind)
}

func TestClearStateFromAnyPhase(t *testing.T) {
	e, _, clock := newTestEngine(t)
	openKit(t, e, clock)
	scanSettled(e, clock, glassesSerial)
	scanOCR(e, clock, controllerSerial, 0.85)

	outcome := e.ClearState()
	assert.Equal(t, OutcomeCancelled, outcome.Kind)
	assert.Equal(t, PhaseAwaitingKitCode, e.Phase())
	assert.Empty(t, e.BaseKitCode())
	assert.Empty(t, e.Components())
	assert.True(t, e.Accepting())
	_, pending := e.PendingDetection()
	assert.False(t, pending)
}

func TestUndoLast(t *testing.T) {
	e, ledger, clock := newTestEngine(t)
	ctx := context.Background()
	openKit(t, e, clock)
	scanSettled(e, clock, glassesSerial)
	require.Equal(t, OutcomeSaved, e.SaveKitBundle(ctx).Kind)

	outcome := e.UndoLast(ctx)
	assert.Equal(t, OutcomeUndone, outcome.Kind)

	records, err := ledger.KitsForDate(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, records)

	again := e.UndoLast(ctx)
	assert.Equal(t, OutcomeNothingToUndo, again.Kind)
}

func TestUndoFailure(t *testing.T) {
	failing := &failingLedger{Ledger: storage.NewMemoryLedger(), deleteErr: errors.New("locked")}
	e, err := New(failing, nil, DefaultConfig())
	require.NoError(t, err)

	outcome := e.UndoLast(context.Background())
	assert.Equal(t, OutcomeUndoFailed, outcome.Kind)
	assert.Error(t, outcome.Err)
}

func TestHistoryEventsRecorded(t *testing.T) {
	recorder := &recordingRecorder{}
	ledger := storage.NewMemoryLedger()
	clock := newTestClock()
	e, err := New(ledger, recorder, DefaultConfig())
	require.NoError(t, err)
	e.now = clock.Now
	ctx := context.Background()

	scanSettled(e, clock, "K100")
	scanSettled(e, clock, glassesSerial)
	scanSettled(e, clock, glassesSerial) // duplicate
	e.SaveKitBundle(ctx)

	events, err := recorder.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "KIT_CODE_ACCEPTED", events[0].Outcome)
	assert.Equal(t, "kit", events[0].Mode)
	assert.Equal(t, "COMPONENT_ASSIGNED", events[1].Outcome)
	assert.Equal(t, "DUPLICATE_IDENTIFIER", events[2].Outcome)
	assert.Equal(t, "SAVED", events[3].Outcome)
}

func TestRecorderFailureDoesNotAffectOutcome(t *testing.T) {
	recorder := &recordingRecorder{err: errors.New("history down")}
	e, err := New(storage.NewMemoryLedger(), recorder, DefaultConfig())
	require.NoError(t, err)
	clock := newTestClock()
	e.now = clock.Now

	outcome := scanSettled(e, clock, "K100")
	assert.Equal(t, OutcomeKitCodeAccepted, outcome.Kind)
	assert.Equal(t, PhaseAssembling, e.Phase())
}

func TestStatusLine(t *testing.T) {
	e, _, clock := newTestEngine(t)
	assert.Contains(t, e.StatusLine(), "scan a kit code")

	openKit(t, e, clock)
	assert.Contains(t, e.StatusLine(), "K100")

	scanOCR(e, clock, glassesSerial, 0.85)
	assert.Contains(t, e.StatusLine(), glassesSerial)

	e.CancelComponentDetection()
	scanSettled(e, clock, glassesSerial)
	scanSettled(e, clock, glassesSerialAlt)
	assert.Contains(t, e.StatusLine(), "conflict")
}

func TestAvailableSlotsShrinkWithAssignments(t *testing.T) {
	e, _, clock := newTestEngine(t)
	assert.Equal(t, model.AllSlots, e.AvailableSlots())

	openKit(t, e, clock)
	scanSettled(e, clock, glassesSerial)

	available := e.AvailableSlots()
	assert.Len(t, available, 7)
	assert.NotContains(t, available, model.SlotGlasses)
}
