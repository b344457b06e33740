// Package main contains the kitscan CLI commands.
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

	"kitscan/internal/checkout"
	"kitscan/internal/cli"
	"kitscan/internal/config"
)

func checkoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Scan kits out to users",
		Long: `Run the checkout scan loop: scan a user badge and a kit tag in either
order and the pair is written to today's ledger.

Identifiers are classified as they arrive, so stray scans of other
equipment are kept as OTHER records instead of polluting a pair. Scanning
the same class twice replaces the earlier capture.

Examples:
  kitscan checkout                 # Scan until Ctrl+C or "quit"
  kitscan checkout --review=false  # Commit pairs without the review prompt
  kitscan checkout --dry-run       # Keep records in memory only`,
		RunE: runCheckout,
	}

	// Flags
	cmd.Flags().Bool("review", true, "Pause each completed pair for review before committing")
	cmd.Flags().Bool("dry-run", false, "Keep records in memory instead of the day ledger")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("checkout.review", cmd.Flags().Lookup("review"))
	_ = viper.BindPFlag("checkout.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func checkinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Scan kits back in",
		Long: `Run the check-in scan loop. Identical to checkout except records are
written with the CHECKIN type, so the day ledger keeps both directions
apart.

Examples:
  kitscan checkin
  kitscan checkin --review=false`,
		RunE: runCheckin,
	}

	// Flags
	cmd.Flags().Bool("review", true, "Pause each completed pair for review before committing")
	cmd.Flags().Bool("dry-run", false, "Keep records in memory instead of the day ledger")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("checkin.review", cmd.Flags().Lookup("review"))
	_ = viper.BindPFlag("checkin.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runCheckout(cmd *cobra.Command, _ []string) error {
	return runPairingSession(cmd, checkout.ModeCheckout)
}

func runCheckin(cmd *cobra.Command, _ []string) error {
	return runPairingSession(cmd, checkout.ModeCheckin)
}

// runPairingSession drives one user+kit scanning session until the operator
// quits, input ends, or the context is cancelled.
func runPairingSession(cmd *cobra.Command, mode checkout.Mode) error {
	ctx := cmd.Context()
	settings := config.Load()

	prefix := "checkout"
	if mode == checkout.ModeCheckin {
		prefix = "checkin"
	}
	settings.ReviewEnabled = viper.GetBool(prefix + ".review")
	if viper.GetBool(prefix + ".dry_run") {
		settings.DryRun = true
	}

	slog.Info("Starting pairing session", "mode", mode.RecordType())

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

	reconciler := checkout.New(ledger, recorder, checkout.Config{
		Mode:          mode,
		SettleDelay:   settings.SettleDelay,
		ReviewEnabled: settings.ReviewEnabled,
	})

	handler := cli.NewInterruptHandler(os.Stdout)
	ctx = handler.HandleInterrupts(ctx, false)

	input := cli.NewNonBlockingReader(os.Stdin)
	prompter := cli.NewComponentPrompter(input, os.Stdout)

	title := "Checkout"
	if mode == checkout.ModeCheckin {
		title = "Check-in"
	}
	//nolint:forbidigo // User-facing output
	fmt.Println(cli.FormatTitle(title))
	//nolint:forbidigo // User-facing output
	fmt.Println(cli.SubtleStyle.Render("Commands: undo, clear, quit"))

	for {
		//nolint:forbidigo // User-facing output
		fmt.Println(cli.SubtleStyle.Render(reconciler.StatusLine()))

		line, readErr := input.ReadLine(ctx)
		if readErr != nil {
			if errors.Is(readErr, cli.ErrInputCancelled) || errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read scan: %w", readErr)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "quit", "exit", "q":
			return nil
		case "undo":
			printCheckoutOutcome(reconciler.UndoLast(ctx))
			continue
		case "clear":
			printCheckoutOutcome(reconciler.ClearState())
			continue
		case "":
			continue
		}

		outcome := reconciler.ProcessScan(ctx, line)
		printCheckoutOutcome(outcome)

		if outcome.Kind == checkout.OutcomeReviewReady {
			if reviewErr := resolveReview(ctx, reconciler, prompter, mode); reviewErr != nil {
				if errors.Is(reviewErr, cli.ErrInputCancelled) || errors.Is(reviewErr, context.Canceled) {
					return nil
				}
				return reviewErr
			}
		}
	}
}

// resolveReview walks the operator through the pending pair until it is
// confirmed, cancelled, or edited into shape. Edits loop back so the
// updated pair is shown before committing.
func resolveReview(ctx context.Context, reconciler *checkout.Reconciler, prompter *cli.Prompter, mode checkout.Mode) error {
	label := "checkout"
	if mode == checkout.ModeCheckin {
		label = "check-in"
	}

	for reconciler.Phase() == checkout.PhaseReviewPending {
		pending := reconciler.Pending()
		decision, err := prompter.ResolveReview(ctx, label, pending.UserID, pending.KitID)
		if err != nil {
			return err
		}

		switch decision.Action {
		case cli.ReviewConfirm:
			printCheckoutOutcome(reconciler.ConfirmReview(ctx))
			return nil
		case cli.ReviewEdit:
			printCheckoutOutcome(reconciler.EditPending(decision.UserID, decision.KitID))
		default:
			printCheckoutOutcome(reconciler.CancelReview())
			return nil
		}
	}

	return nil
}

func printCheckoutOutcome(outcome checkout.Outcome) {
	var line string
	switch outcome.Kind {
	case checkout.OutcomeCommitted, checkout.OutcomeOtherRecorded, checkout.OutcomeUndone:
		line = cli.FormatSuccess(outcome.Message)
	case checkout.OutcomeRejected, checkout.OutcomeSaveFailed, checkout.OutcomeUndoFailed:
		line = cli.FormatError(outcome.Message)
	case checkout.OutcomeUserReplaced, checkout.OutcomeKitReplaced, checkout.OutcomeCancelled, checkout.OutcomeNothingToUndo:
		line = cli.FormatWarning(outcome.Message)
	case checkout.OutcomeIgnored:
		// Settle-window drops stay quiet; the scanner fired twice, the
		// operator did nothing wrong.
		return
	default:
		line = cli.FormatInfo(outcome.Message)
	}
	//nolint:forbidigo // User-facing output
	fmt.Println(line)
}
