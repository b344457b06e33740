// Package checkout implements the dual-scan state machine that pairs a user
// badge with a kit code into one checkout or check-in record. Scans arrive
// in any order; the reconciler accumulates the pending pair, detects
// completion, and emits exactly one persisted record per completed pair.
package checkout

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

// Phase is the reconciler's current position in the dual-scan protocol.
type Phase string

// Reconciler phases.
const (
	PhaseIdle          Phase = "IDLE"
	PhaseUserScanned   Phase = "USER_SCANNED"
	PhaseKitScanned    Phase = "KIT_SCANNED"
	PhaseReviewPending Phase = "REVIEW_PENDING"
)

// Mode selects which record type a completed pair produces.
type Mode string

// Reconciler modes.
const (
	ModeCheckout Mode = "checkout"
	ModeCheckin  Mode = "checkin"
)

// RecordType returns the record type a completed pair produces in this mode.
func (m Mode) RecordType() model.RecordType {
	if m == ModeCheckin {
		return model.RecordCheckin
	}
	return model.RecordCheckout
}

// OutcomeKind tags every result a reconciler entry point can produce.
// Consumers switch over the kind; there are no other signals.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeRejected      OutcomeKind = "REJECTED"
	OutcomeIgnored       OutcomeKind = "IGNORED"
	OutcomeUserCaptured  OutcomeKind = "USER_CAPTURED"
	OutcomeUserReplaced  OutcomeKind = "USER_REPLACED"
	OutcomeKitCaptured   OutcomeKind = "KIT_CAPTURED"
	OutcomeKitReplaced   OutcomeKind = "KIT_REPLACED"
	OutcomeOtherRecorded OutcomeKind = "OTHER_RECORDED"
	OutcomeReviewReady   OutcomeKind = "REVIEW_READY"
	OutcomeCommitted     OutcomeKind = "COMMITTED"
	OutcomeSaveFailed    OutcomeKind = "SAVE_FAILED"
	OutcomeCancelled     OutcomeKind = "CANCELLED"
	OutcomeUndone        OutcomeKind = "UNDONE"
	OutcomeNothingToUndo OutcomeKind = "NOTHING_TO_UNDO"
	OutcomeUndoFailed    OutcomeKind = "UNDO_FAILED"
)

// Outcome is the sealed result of one reconciler entry point. The engine
// never panics or returns bare errors across its public surface; every call
// lands here.
type Outcome struct {
	Err     error
	Record  *model.CheckoutRecord // set when a record was persisted
	Kind    OutcomeKind
	Message string
	Raw     string
	Class   model.IdentifierClass
}

// Pending is the transient pair state between the first scan and
// completion or cancellation.
type Pending struct {
	UserID string
	KitID  string
}

// Config holds configuration options for the reconciler.
type Config struct {
	Mode          Mode
	SettleDelay   time.Duration
	ReviewEnabled bool
}

// DefaultConfig returns the default configuration: checkout mode with the
// review step enabled and a 300ms settle window between scans.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeCheckout,
		SettleDelay:   300 * time.Millisecond,
		ReviewEnabled: true,
	}
}

// Reconciler is the dual-scan engine. A mutex serializes entry points, so
// one scan or callback runs to completion before the next is accepted, and
// snapshot getters are safe for concurrent readers. The settle window
// after each processed scan drops re-decodes of the same physical barcode.
type Reconciler struct {
	now            func() time.Time
	ledger         service.Ledger
	recorder       service.Recorder
	suspendedUntil time.Time
	pending        Pending
	phase          Phase
	config         Config
	mu             sync.Mutex
}

// New creates a reconciler with the given collaborators.
func New(ledger service.Ledger, recorder service.Recorder, config Config) *Reconciler {
	if config.Mode == "" {
		config.Mode = ModeCheckout
	}
	return &Reconciler{
		ledger:   ledger,
		recorder: recorder,
		config:   config,
		phase:    PhaseIdle,
		now:      time.Now,
	}
}

// Phase returns the current protocol phase.
func (r *Reconciler) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Pending returns the pair accumulated so far.
func (r *Reconciler) Pending() Pending {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Accepting reports whether a new scan would be processed right now. It is
// false for the settle window after each processed scan.
func (r *Reconciler) Accepting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accepting()
}

func (r *Reconciler) accepting() bool {
	return !r.now().Before(r.suspendedUntil)
}

// StatusLine returns the operator-facing description of the current state.
func (r *Reconciler) StatusLine() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.phase {
	case PhaseUserScanned:
		return fmt.Sprintf("user %s captured, scan kit", r.pending.UserID)
	case PhaseKitScanned:
		return fmt.Sprintf("kit %s captured, scan user badge", r.pending.KitID)
	case PhaseReviewPending:
		return fmt.Sprintf("review %s + %s, confirm or cancel", r.pending.UserID, r.pending.KitID)
	default:
		return "scan a user badge or kit code"
	}
}

// ProcessScan runs one raw scan through sanitize, classify and the
// transition rules. Invalid input never mutates state. After any processed
// scan the engine stops accepting for the settle window.
func (r *Reconciler) ProcessScan(ctx context.Context, raw string) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.accepting() {
		return Outcome{Kind: OutcomeIgnored, Message: "scanner settling", Raw: raw}
	}

	outcome := r.transition(ctx, raw)
	r.suspendedUntil = r.now().Add(r.config.SettleDelay)
	r.recordEvent(ctx, outcome)
	return outcome
}

func (r *Reconciler) transition(ctx context.Context, raw string) Outcome {
	cleaned, err := sanitize.Clean(raw)
	if err != nil {
		return Outcome{Kind: OutcomeRejected, Message: sanitize.Reason(err), Raw: raw, Err: err}
	}

	class := classify.Identifier(cleaned)
	switch class {
	case model.ClassOther:
		return r.recordOther(ctx, cleaned)
	case model.ClassUser:
		return r.captureUser(ctx, cleaned)
	default:
		return r.captureKit(ctx, cleaned)
	}
}

// recordOther persists an Other-class identifier immediately, as a side
// channel that never disturbs the pending pair.
func (r *Reconciler) recordOther(ctx context.Context, cleaned string) Outcome {
	record := model.CheckoutRecord{Type: model.RecordOther, Value: cleaned}
	stored, err := r.ledger.AppendCheckout(ctx, record)
	if err != nil {
		common.LogError(err, "failed to record item", common.Fields{"value": cleaned})
		return Outcome{
			Kind:    OutcomeSaveFailed,
			Message: "failed to record item",
			Raw:     cleaned,
			Class:   model.ClassOther,
			Err:     err,
		}
	}
	return Outcome{
		Kind:    OutcomeOtherRecorded,
		Message: fmt.Sprintf("recorded item %s", cleaned),
		Raw:     cleaned,
		Class:   model.ClassOther,
		Record:  &stored,
	}
}

func (r *Reconciler) captureUser(ctx context.Context, cleaned string) Outcome {
	// A scan during review replaces the editable field in place.
	if r.phase == PhaseReviewPending {
		r.pending.UserID = cleaned
		return Outcome{
			Kind:    OutcomeUserReplaced,
			Message: fmt.Sprintf("review %s + %s", r.pending.UserID, r.pending.KitID),
			Raw:     cleaned,
			Class:   model.ClassUser,
		}
	}

	replaced := r.phase == PhaseUserScanned
	r.pending.UserID = cleaned
	r.phase = PhaseUserScanned

	if r.pending.KitID != "" {
		return r.complete(ctx, cleaned, model.ClassUser)
	}
	if replaced {
		return Outcome{
			Kind:    OutcomeUserReplaced,
			Message: fmt.Sprintf("user replaced with %s", cleaned),
			Raw:     cleaned,
			Class:   model.ClassUser,
		}
	}
	return Outcome{
		Kind:    OutcomeUserCaptured,
		Message: fmt.Sprintf("user %s captured, scan kit", cleaned),
		Raw:     cleaned,
		Class:   model.ClassUser,
	}
}

func (r *Reconciler) captureKit(ctx context.Context, cleaned string) Outcome {
	if r.phase == PhaseReviewPending {
		r.pending.KitID = cleaned
		return Outcome{
			Kind:    OutcomeKitReplaced,
			Message: fmt.Sprintf("review %s + %s", r.pending.UserID, r.pending.KitID),
			Raw:     cleaned,
			Class:   model.ClassKit,
		}
	}

	replaced := r.phase == PhaseKitScanned
	r.pending.KitID = cleaned
	r.phase = PhaseKitScanned

	if r.pending.UserID != "" {
		return r.complete(ctx, cleaned, model.ClassKit)
	}
	if replaced {
		return Outcome{
			Kind:    OutcomeKitReplaced,
			Message: fmt.Sprintf("kit replaced with %s", cleaned),
			Raw:     cleaned,
			Class:   model.ClassKit,
		}
	}
	return Outcome{
		Kind:    OutcomeKitCaptured,
		Message: fmt.Sprintf("kit %s captured, scan user badge", cleaned),
		Raw:     cleaned,
		Class:   model.ClassKit,
	}
}

// complete handles a full pair: route to review when enabled, otherwise
// commit immediately.
func (r *Reconciler) complete(ctx context.Context, raw string, class model.IdentifierClass) Outcome {
	if r.config.ReviewEnabled {
		r.phase = PhaseReviewPending
		return Outcome{
			Kind:    OutcomeReviewReady,
			Message: fmt.Sprintf("review %s + %s", r.pending.UserID, r.pending.KitID),
			Raw:     raw,
			Class:   class,
		}
	}
	outcome := r.commit(ctx)
	outcome.Raw = raw
	outcome.Class = class
	return outcome
}

// commit persists the pending pair and resets to Idle. A failed save also
// resets: the attempt is terminal and the operator simply rescans.
func (r *Reconciler) commit(ctx context.Context) Outcome {
	record := model.CheckoutRecord{
		Type:   r.config.Mode.RecordType(),
		UserID: r.pending.UserID,
		KitID:  r.pending.KitID,
		Value:  r.pending.KitID,
	}

	userID, kitID := r.pending.UserID, r.pending.KitID
	r.pending = Pending{}
	r.phase = PhaseIdle

	stored, err := r.ledger.AppendCheckout(ctx, record)
	if err != nil {
		common.LogError(err, "failed to save record", common.Fields{
			"type":    record.Type,
			"user_id": userID,
			"kit_id":  kitID,
		})
		return Outcome{
			Kind:    OutcomeSaveFailed,
			Message: "failed to save record, scan again",
			Err:     err,
		}
	}

	common.LogInfo("record saved", common.Fields{
		"type":    stored.Type,
		"user_id": stored.UserID,
		"kit_id":  stored.KitID,
	})
	return Outcome{
		Kind:    OutcomeCommitted,
		Message: fmt.Sprintf("%s recorded: %s + %s", record.Type, userID, kitID),
		Record:  &stored,
	}
}

// ConfirmReview commits the pair under review.
func (r *Reconciler) ConfirmReview(ctx context.Context) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseReviewPending {
		return Outcome{Kind: OutcomeIgnored, Message: "no review pending"}
	}
	outcome := r.commit(ctx)
	r.suspendedUntil = r.now().Add(r.config.SettleDelay)
	r.recordEvent(ctx, outcome)
	return outcome
}

// EditPending replaces the reviewed pair's fields before confirmation.
// Both fields pass the same input gate as scans.
func (r *Reconciler) EditPending(userID, kitID string) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseReviewPending {
		return Outcome{Kind: OutcomeIgnored, Message: "no review pending"}
	}

	cleanedUser, err := sanitize.Clean(userID)
	if err != nil {
		return Outcome{Kind: OutcomeRejected, Message: "user id: " + sanitize.Reason(err), Err: err}
	}
	cleanedKit, err := sanitize.Clean(kitID)
	if err != nil {
		return Outcome{Kind: OutcomeRejected, Message: "kit id: " + sanitize.Reason(err), Err: err}
	}

	r.pending.UserID = cleanedUser
	r.pending.KitID = cleanedKit
	return Outcome{
		Kind:    OutcomeReviewReady,
		Message: fmt.Sprintf("review %s + %s", cleanedUser, cleanedKit),
	}
}

// CancelReview discards the pair under review without persisting and
// resumes accepting immediately.
func (r *Reconciler) CancelReview() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseReviewPending {
		return Outcome{Kind: OutcomeIgnored, Message: "no review pending"}
	}
	r.pending = Pending{}
	r.phase = PhaseIdle
	r.suspendedUntil = time.Time{}
	return Outcome{Kind: OutcomeCancelled, Message: "review cancelled"}
}

// ClearState discards any pending state from any phase and resumes
// accepting immediately.
func (r *Reconciler) ClearState() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = Pending{}
	r.phase = PhaseIdle
	r.suspendedUntil = time.Time{}
	return Outcome{Kind: OutcomeCancelled, Message: "cleared"}
}

// UndoLast deletes the single most recently timestamped record of this
// mode's type from today's ledger. Last-writer-only: there is no undo
// stack.
func (r *Reconciler) UndoLast(ctx context.Context) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted, err := r.ledger.DeleteMostRecentCheckout(ctx, r.now(), r.config.Mode.RecordType())
	if err != nil {
		common.LogError(err, "failed to undo", common.Fields{"type": r.config.Mode.RecordType()})
		return Outcome{Kind: OutcomeUndoFailed, Message: "failed to undo", Err: err}
	}
	if !deleted {
		return Outcome{Kind: OutcomeNothingToUndo, Message: "nothing to undo"}
	}
	return Outcome{Kind: OutcomeUndone, Message: fmt.Sprintf("last %s removed", r.config.Mode.RecordType())}
}

// recordEvent reports a processed scan to the history collaborator.
// Failures are logged and dropped; history never blocks a transition.
func (r *Reconciler) recordEvent(ctx context.Context, outcome Outcome) {
	if r.recorder == nil {
		return
	}

	raw := outcome.Raw
	if len(raw) > sanitize.MaxInputLength {
		raw = raw[:sanitize.MaxInputLength]
	}
	event := model.ScanEvent{
		At:      r.now(),
		Mode:    string(r.config.Mode),
		Raw:     raw,
		Class:   outcome.Class,
		Outcome: string(outcome.Kind),
		Detail:  outcome.Message,
	}
	if err := r.recorder.RecordScan(ctx, event); err != nil {
		common.LogDebug("failed to record scan event", common.Fields{"error": err.Error()})
	}
}
