package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kitscan/internal/cli"
	"kitscan/internal/config"
	"kitscan/internal/kit"
	"kitscan/internal/model"
)

func kitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kit",
		Short: "Register the components packed in a kit",
		Long: `Run the kit intake loop: scan a kit code, then scan each component into
its slot. Confident matches assign automatically; uncertain ones pause
for a confirmation or a slot pick. Type "save" when the kit is packed.

A partial kit can be saved; completeness is shown but never enforced.

Examples:
  kitscan kit            # Scan kit codes and components
  kitscan kit --dry-run  # Keep records in memory only`,
		RunE: runKit,
	}

	// Flags
	cmd.Flags().Bool("dry-run", false, "Keep records in memory instead of the day ledger")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("kit.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runKit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := config.Load()
	if viper.GetBool("kit.dry_run") {
		settings.DryRun = true
	}

	slog.Info("Starting kit intake session")

	ledger, err := openLedger(settings)
	if err != nil {
		return err
	}

	recorder, err := openRecorder(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer func() {
		if closeErr := recorder.Close(); closeErr != nil {
			slog.Error("Failed to close history recorder", "error", closeErr)
		}
	}()

	engine, err := kit.New(ledger, recorder, kit.Config{SettleDelay: settings.SettleDelay})
	if err != nil {
		return fmt.Errorf("failed to create intake engine: %w", err)
	}

	handler := cli.NewInterruptHandler(os.Stdout)
	ctx = handler.HandleInterrupts(ctx, true)

	input := cli.NewNonBlockingReader(os.Stdin)
	prompter := cli.NewComponentPrompter(input, os.Stdout)

	//nolint:forbidigo // User-facing output
	fmt.Println(cli.FormatTitle("Kit Intake"))
	//nolint:forbidigo // User-facing output
	fmt.Println(cli.SubtleStyle.Render("Commands: save, undo, clear, quit"))

	for {
		//nolint:forbidigo // User-facing output
		fmt.Println(cli.SubtleStyle.Render(engine.StatusLine()))

		line, readErr := input.ReadLine(ctx)
		if readErr != nil {
			if errors.Is(readErr, cli.ErrInputCancelled) || errors.Is(readErr, io.EOF) {
				prompter.ShowCompletion()
				return nil
			}
			return fmt.Errorf("failed to read scan: %w", readErr)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "quit", "exit", "q":
			prompter.ShowCompletion()
			return nil
		case "save", "done":
			saveKit(ctx, engine, prompter)
			continue
		case "undo":
			printKitOutcome(engine.UndoLast(ctx))
			continue
		case "clear":
			prompter.FinishAssembly()
			printKitOutcome(engine.ClearState())
			continue
		case "":
			continue
		}

		outcome := engine.ProcessScan(ctx, model.NewBarcodeCandidate(line, "CODE_128"))
		if handleErr := handleKitOutcome(ctx, engine, prompter, outcome); handleErr != nil {
			if errors.Is(handleErr, cli.ErrInputCancelled) || errors.Is(handleErr, context.Canceled) {
				prompter.ShowCompletion()
				return nil
			}
			return handleErr
		}
	}
}

// handleKitOutcome reacts to one processed scan: plain outcomes print,
// pending ones hand off to the prompter.
func handleKitOutcome(ctx context.Context, engine *kit.Engine, prompter *cli.Prompter, outcome kit.Outcome) error {
	switch outcome.Kind {
	case kit.OutcomeKitCodeAccepted:
		//nolint:forbidigo // User-facing output
		fmt.Println(cli.FormatSuccess(outcome.Message))
		prompter.StartAssembly(len(model.AllSlots))
	case kit.OutcomeComponentAssigned:
		//nolint:forbidigo // User-facing output
		fmt.Println(cli.FormatSuccess(outcome.Message))
		prompter.NoteAutoAssigned()
		prompter.AdvanceSlot()
	case kit.OutcomeConfirmationRequested, kit.OutcomeManualSelectRequested:
		return resolveDetection(ctx, engine, prompter, *outcome.Detection)
	case kit.OutcomeConflictDetected:
		return resolveConflict(ctx, engine, prompter, *outcome.Conflict)
	case kit.OutcomeDuplicateIdentifier:
		//nolint:forbidigo // User-facing output
		fmt.Println(cli.FormatWarning(outcome.Message))
	case kit.OutcomeIgnored:
		// Settle-window drops stay quiet.
	default:
		printKitOutcome(outcome)
	}
	return nil
}

// resolveDetection asks the operator about a medium-confidence or
// unidentified component and feeds the answer back to the engine. A
// confirmed pick can still land on an occupied slot, which surfaces as a
// conflict to resolve in turn.
func resolveDetection(ctx context.Context, engine *kit.Engine, prompter *cli.Prompter, detection model.ComponentDetectionResult) error {
	resolution, err := prompter.ResolveDetection(ctx, detection, engine.AvailableSlots())
	if err != nil {
		return err
	}
	if !resolution.Confirm {
		printKitOutcome(engine.CancelComponentDetection())
		return nil
	}

	outcome := engine.ConfirmComponentAssignment(ctx, detection.RawIdentifier, resolution.Slot)
	switch outcome.Kind {
	case kit.OutcomeComponentAssigned:
		//nolint:forbidigo // User-facing output
		fmt.Println(cli.FormatSuccess(outcome.Message))
		prompter.AdvanceSlot()
	case kit.OutcomeConflictDetected:
		return resolveConflict(ctx, engine, prompter, *outcome.Conflict)
	default:
		printKitOutcome(outcome)
	}
	return nil
}

// resolveConflict asks the operator whether the incoming scan replaces the
// slot's occupant. Replacing keeps the filled count unchanged, so the
// progress bar stays put.
func resolveConflict(ctx context.Context, engine *kit.Engine, prompter *cli.Prompter, conflict model.DuplicateComponentConflict) error {
	resolution, err := prompter.ResolveConflict(ctx, conflict)
	if err != nil {
		return err
	}

	if resolution.Reassign {
		outcome := engine.ReassignDuplicateComponent(ctx)
		//nolint:forbidigo // User-facing output
		fmt.Println(cli.FormatSuccess(outcome.Message))
		return nil
	}

	outcome := engine.IgnoreDuplicateComponent()
	//nolint:forbidigo // User-facing output
	fmt.Println(cli.FormatWarning(outcome.Message))
	return nil
}

// saveKit persists the open assembly and, on success, closes out the
// progress bar and counts the kit for the session summary. Saving short of
// the kit minimums is allowed but called out first.
func saveKit(ctx context.Context, engine *kit.Engine, prompter *cli.Prompter) {
	if engine.Phase() == kit.PhaseAssembling {
		if missing := missingRequirements(engine.Progress().Requirements); len(missing) > 0 {
			//nolint:forbidigo // User-facing output
			fmt.Println(cli.FormatWarning("saving short: " + strings.Join(missing, ", ")))
		}
	}

	outcome := engine.SaveKitBundle(ctx)
	printKitOutcome(outcome)

	if outcome.Kind == kit.OutcomeSaved {
		prompter.NoteKitSaved()
		prompter.FinishAssembly()
	}
}

func missingRequirements(req kit.Requirements) []string {
	var missing []string
	if !req.HasGlasses {
		missing = append(missing, "no glasses")
	}
	if !req.HasController {
		missing = append(missing, "no controller")
	}
	if !req.HasBatteries {
		missing = append(missing, fmt.Sprintf("%d of 2 batteries", req.BatteryCount))
	}
	return missing
}

func printKitOutcome(outcome kit.Outcome) {
	var line string
	switch outcome.Kind {
	case kit.OutcomeSaved, kit.OutcomeUndone, kit.OutcomeConflictReassigned:
		line = cli.FormatSuccess(outcome.Message)
	case kit.OutcomeRejected, kit.OutcomeSaveFailed, kit.OutcomeUndoFailed:
		line = cli.FormatError(outcome.Message)
	case kit.OutcomeEmptyKit, kit.OutcomeDuplicateIdentifier, kit.OutcomeCancelled,
		kit.OutcomeDetectionCancelled, kit.OutcomeConflictIgnored, kit.OutcomeNothingToUndo:
		line = cli.FormatWarning(outcome.Message)
	case kit.OutcomeIgnored:
		return
	default:
		line = cli.FormatInfo(outcome.Message)
	}
	//nolint:forbidigo // User-facing output
	fmt.Println(line)
}
