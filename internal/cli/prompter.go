package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"kitscan/internal/model"
	"kitscan/internal/service"
)

// ReviewAction is the operator's answer to a completed pair review.
type ReviewAction string

// Review actions.
const (
	ReviewConfirm ReviewAction = "confirm"
	ReviewEdit    ReviewAction = "edit"
	ReviewCancel  ReviewAction = "cancel"
)

// ReviewDecision carries the review answer; UserID and KitID hold the
// replacement values when the action is ReviewEdit.
type ReviewDecision struct {
	UserID string
	KitID  string
	Action ReviewAction
}

// SessionStats summarizes one scanning session.
type SessionStats struct {
	Duration          time.Duration
	AutoAssigned      int
	HumanResolved     int
	ConflictsResolved int
	KitsSaved         int
}

// Prompter implements the interactive prompts that turn engine outcomes
// into resolutions: component detections, slot conflicts and pair reviews.
// It reads from the same line source as the scan loop, so a prompt answer
// and a scan never race for buffered input.
type Prompter struct {
	startTime   time.Time
	writer      io.Writer
	input       *NonBlockingReader
	progressBar *progressbar.ProgressBar
	stats       SessionStats
	statsMutex  sync.RWMutex
}

// NewComponentPrompter creates a prompter over the given line source and
// writer, defaulting to stdin and stdout.
func NewComponentPrompter(input *NonBlockingReader, writer io.Writer) *Prompter {
	if input == nil {
		input = NewNonBlockingReader(os.Stdin)
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &Prompter{
		input:     input,
		writer:    writer,
		startTime: time.Now(),
	}
}

// ResolveDetection presents a detection that needs a human decision. A
// detection with a suggested slot offers accept, pick another slot, or
// discard; one without goes straight to slot selection. A discarded scan
// returns Confirm false with no error.
func (p *Prompter) ResolveDetection(ctx context.Context, detection model.ComponentDetectionResult, available []model.SlotID) (service.DetectionResolution, error) {
	select {
	case <-ctx.Done():
		return service.DetectionResolution{}, ctx.Err()
	default:
	}

	title := "Component Detected"
	if detection.Type == "" {
		title = "Unrecognized Component"
	}
	if _, err := fmt.Fprintln(p.writer, RenderBox(title, p.formatDetection(detection))); err != nil {
		return service.DetectionResolution{}, fmt.Errorf("failed to write detection box: %w", err)
	}

	if detection.RequiresManualSlot {
		return p.promptSlotSelection(ctx, available)
	}

	if _, err := fmt.Fprintf(p.writer, "  [A] Assign to %s\n", detection.SuggestedSlot.DisplayName()); err != nil {
		return service.DetectionResolution{}, fmt.Errorf("failed to write assign option: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer, "  [S] Pick a different slot"); err != nil {
		return service.DetectionResolution{}, fmt.Errorf("failed to write slot option: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer, "  [C] Discard this scan"); err != nil {
		return service.DetectionResolution{}, fmt.Errorf("failed to write discard option: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer); err != nil {
		return service.DetectionResolution{}, fmt.Errorf("failed to write newline: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Choice [A/S/C]", []string{"a", "s", "c"})
	if err != nil {
		return service.DetectionResolution{}, err
	}

	switch choice {
	case "a":
		p.noteHumanResolved()
		return service.DetectionResolution{Slot: detection.SuggestedSlot, Confirm: true}, nil
	case "s":
		return p.promptSlotSelection(ctx, available)
	default:
		if _, err := fmt.Fprintln(p.writer, FormatWarning("Scan discarded")); err != nil {
			slog.Warn("Failed to write discard notice", "error", err)
		}
		return service.DetectionResolution{}, nil
	}
}

// ResolveConflict presents a duplicate-slot conflict: keep the current
// occupant or replace it with the incoming scan.
func (p *Prompter) ResolveConflict(ctx context.Context, conflict model.DuplicateComponentConflict) (service.ConflictResolution, error) {
	select {
	case <-ctx.Done():
		return service.ConflictResolution{}, ctx.Err()
	default:
	}

	if _, err := fmt.Fprintln(p.writer, RenderBox("Slot Conflict", p.formatConflict(conflict))); err != nil {
		return service.ConflictResolution{}, fmt.Errorf("failed to write conflict box: %w", err)
	}

	if _, err := fmt.Fprintf(p.writer, "  [K] Keep %s\n", conflict.ExistingIdentifier); err != nil {
		return service.ConflictResolution{}, fmt.Errorf("failed to write keep option: %w", err)
	}
	if _, err := fmt.Fprintf(p.writer, "  [R] Replace with %s\n", conflict.IncomingIdentifier); err != nil {
		return service.ConflictResolution{}, fmt.Errorf("failed to write replace option: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer); err != nil {
		return service.ConflictResolution{}, fmt.Errorf("failed to write newline: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Choice [K/R]", []string{"k", "r"})
	if err != nil {
		return service.ConflictResolution{}, err
	}

	p.noteConflictResolved()
	return service.ConflictResolution{Reassign: choice == "r"}, nil
}

// ResolveReview presents a completed pair for the operator's final word:
// confirm, edit the identifiers, or cancel. action names the record being
// reviewed, e.g. "checkout".
func (p *Prompter) ResolveReview(ctx context.Context, action, userID, kitID string) (ReviewDecision, error) {
	select {
	case <-ctx.Done():
		return ReviewDecision{}, ctx.Err()
	default:
	}

	content := TitleStyle.Render(fmt.Sprintf("Pending %s", action)) + "\n\n" +
		fmt.Sprintf("  User: %s\n", BoldStyle.Render(userID)) +
		fmt.Sprintf("  Kit:  %s", BoldStyle.Render(kitID))

	if _, err := fmt.Fprintln(p.writer, RenderBox("Review", content)); err != nil {
		return ReviewDecision{}, fmt.Errorf("failed to write review box: %w", err)
	}

	if _, err := fmt.Fprintln(p.writer, "  [Y] Confirm and save"); err != nil {
		return ReviewDecision{}, fmt.Errorf("failed to write confirm option: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer, "  [E] Edit the identifiers"); err != nil {
		return ReviewDecision{}, fmt.Errorf("failed to write edit option: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer, "  [N] Cancel, nothing is saved"); err != nil {
		return ReviewDecision{}, fmt.Errorf("failed to write cancel option: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer); err != nil {
		return ReviewDecision{}, fmt.Errorf("failed to write newline: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Choice [Y/E/N]", []string{"y", "e", "n"})
	if err != nil {
		return ReviewDecision{}, err
	}

	switch choice {
	case "y":
		return ReviewDecision{Action: ReviewConfirm}, nil
	case "e":
		newUser, err := p.promptValue(ctx, "User ID", userID)
		if err != nil {
			return ReviewDecision{}, err
		}
		newKit, err := p.promptValue(ctx, "Kit ID", kitID)
		if err != nil {
			return ReviewDecision{}, err
		}
		return ReviewDecision{Action: ReviewEdit, UserID: newUser, KitID: newKit}, nil
	default:
		return ReviewDecision{Action: ReviewCancel}, nil
	}
}

// StartAssembly begins a progress bar over the kit's slots.
func (p *Prompter) StartAssembly(totalSlots int) {
	p.progressBar = progressbar.NewOptions(totalSlots,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Filling slots...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// AdvanceSlot moves the assembly progress bar by one filled slot.
func (p *Prompter) AdvanceSlot() {
	if p.progressBar != nil {
		if err := p.progressBar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

// FinishAssembly closes out the progress bar after a save or cancel.
func (p *Prompter) FinishAssembly() {
	if p.progressBar == nil {
		return
	}
	if err := p.progressBar.Exit(); err != nil {
		slog.Warn("Failed to close progress bar", "error", err)
	}
	if _, err := fmt.Fprintln(p.writer); err != nil {
		slog.Warn("Failed to write newline", "error", err)
	}
	p.progressBar = nil
}

// NoteAutoAssigned counts a component the engine placed without help.
func (p *Prompter) NoteAutoAssigned() {
	p.statsMutex.Lock()
	defer p.statsMutex.Unlock()
	p.stats.AutoAssigned++
}

// NoteKitSaved counts a persisted kit.
func (p *Prompter) NoteKitSaved() {
	p.statsMutex.Lock()
	defer p.statsMutex.Unlock()
	p.stats.KitsSaved++
}

func (p *Prompter) noteHumanResolved() {
	p.statsMutex.Lock()
	defer p.statsMutex.Unlock()
	p.stats.HumanResolved++
}

func (p *Prompter) noteConflictResolved() {
	p.statsMutex.Lock()
	defer p.statsMutex.Unlock()
	p.stats.ConflictsResolved++
}

// GetSessionStats returns statistics about the scanning session.
func (p *Prompter) GetSessionStats() SessionStats {
	p.statsMutex.RLock()
	defer p.statsMutex.RUnlock()

	stats := p.stats
	stats.Duration = time.Since(p.startTime)
	return stats
}

// ShowCompletion displays the session summary to the operator.
func (p *Prompter) ShowCompletion() {
	p.FinishAssembly()

	stats := p.GetSessionStats()
	summary := fmt.Sprintf("%s Statistics:\n", ChartIcon) +
		fmt.Sprintf("  • Auto-assigned: %d\n", stats.AutoAssigned) +
		fmt.Sprintf("  • Resolved by hand: %d\n", stats.HumanResolved) +
		fmt.Sprintf("  • Conflicts resolved: %d\n", stats.ConflictsResolved) +
		fmt.Sprintf("  • Kits saved: %d\n", stats.KitsSaved) +
		fmt.Sprintf("  • Time taken: %s\n", stats.Duration.Round(time.Second))

	if _, err := fmt.Fprintln(p.writer, RenderBox("Session Complete", summary)); err != nil {
		slog.Warn("Failed to write completion box", "error", err)
	}
}

func (p *Prompter) formatDetection(d model.ComponentDetectionResult) string {
	header := TitleStyle.Render(fmt.Sprintf("Serial: %s", d.RawIdentifier))

	details := fmt.Sprintf("%s Detection:\n", InfoIcon)
	if d.Type == "" {
		details += "  Type: unknown, no serial pattern matched\n"
	} else {
		details += fmt.Sprintf("  Type: %s\n", componentTypeLabel(d.Type)) +
			fmt.Sprintf("  Pattern: %s\n", d.Pattern) +
			fmt.Sprintf("  Confidence: %.0f%% (%s)\n", d.Confidence*100, strings.ToLower(string(d.Tier)))
	}

	var suggestion string
	if !d.RequiresManualSlot && d.SuggestedSlot != "" {
		suggestion = fmt.Sprintf("\n%s Suggested slot: %s", ScanIcon, SuccessStyle.Render(d.SuggestedSlot.DisplayName()))
	} else {
		suggestion = fmt.Sprintf("\n%s No slot suggestion, pick one below", ScanIcon)
	}

	return header + "\n\n" + details + suggestion
}

func (p *Prompter) formatConflict(c model.DuplicateComponentConflict) string {
	header := TitleStyle.Render(fmt.Sprintf("Slot taken: %s", c.Slot.DisplayName()))

	details := fmt.Sprintf("%s Occupancy:\n", InfoIcon) +
		fmt.Sprintf("  Current:  %s\n", c.ExistingIdentifier) +
		fmt.Sprintf("  Incoming: %s", c.IncomingIdentifier)

	if c.AlternateSlot != "" {
		details += fmt.Sprintf("\n\n%s %s is still free: keep the current one and rescan to use it",
			InfoIcon, c.AlternateSlot.DisplayName())
	}

	return header + "\n\n" + details
}

// componentTypeLabel renders a component type for the operator. The three
// battery variants read as one family.
func componentTypeLabel(t model.ComponentType) string {
	if t.IsBattery() {
		return "battery"
	}
	return strings.ToLower(string(t))
}

// promptSlotSelection lists the free slots as a numbered menu and loops
// until the operator picks one or discards the scan.
func (p *Prompter) promptSlotSelection(ctx context.Context, available []model.SlotID) (service.DetectionResolution, error) {
	if len(available) == 0 {
		if _, err := fmt.Fprintln(p.writer, FormatWarning("No free slots, scan discarded")); err != nil {
			slog.Warn("Failed to write full-kit notice", "error", err)
		}
		return service.DetectionResolution{}, nil
	}

	if _, err := fmt.Fprintln(p.writer, FormatInfo("Free slots:")); err != nil {
		return service.DetectionResolution{}, fmt.Errorf("failed to write slot header: %w", err)
	}
	for i, slot := range available {
		if _, err := fmt.Fprintf(p.writer, "  [%d] %s\n", i+1, slot.DisplayName()); err != nil {
			return service.DetectionResolution{}, fmt.Errorf("failed to write slot option: %w", err)
		}
	}
	if _, err := fmt.Fprintln(p.writer, "  [C] Discard this scan"); err != nil {
		return service.DetectionResolution{}, fmt.Errorf("failed to write discard option: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer); err != nil {
		return service.DetectionResolution{}, fmt.Errorf("failed to write newline: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return service.DetectionResolution{}, ctx.Err()
		default:
		}

		if _, err := fmt.Fprint(p.writer, FormatPrompt("Slot")); err != nil {
			return service.DetectionResolution{}, fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.input.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return service.DetectionResolution{}, fmt.Errorf("input terminated")
			}
			return service.DetectionResolution{}, err
		}

		choice := strings.ToLower(input)
		if choice == "c" {
			if _, err := fmt.Fprintln(p.writer, FormatWarning("Scan discarded")); err != nil {
				slog.Warn("Failed to write discard notice", "error", err)
			}
			return service.DetectionResolution{}, nil
		}
		if n, convErr := strconv.Atoi(choice); convErr == nil && n >= 1 && n <= len(available) {
			p.noteHumanResolved()
			return service.DetectionResolution{Slot: available[n-1], Confirm: true}, nil
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.input.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("input terminated")
			}
			return "", err
		}

		choice := strings.ToLower(input)

		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

// promptValue asks for a replacement value; an empty answer keeps the
// current one.
func (p *Prompter) promptValue(ctx context.Context, label, current string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if _, err := fmt.Fprint(p.writer, FormatPrompt(fmt.Sprintf("%s [%s]", label, current))); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	input, err := p.input.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("input terminated")
		}
		return "", err
	}

	if input == "" {
		return current, nil
	}
	return input, nil
}

// Ensure Prompter implements the engines' prompting interface.
var _ service.ComponentPrompter = (*Prompter)(nil)
