package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kitscan/internal/cli"
	"kitscan/internal/config"
	"kitscan/internal/model"
)

func undoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Remove the most recent record",
		Long: `Delete the single most recently timestamped record of one type from
today's ledger. There is no undo stack: running it twice removes two
records.

Examples:
  kitscan undo                 # Remove the last checkout
  kitscan undo --type checkin  # Remove the last check-in
  kitscan undo --type kit      # Remove the last registered kit`,
		RunE: runUndo,
	}

	// Flags
	cmd.Flags().StringP("type", "t", "checkout", "Record type to undo (checkout, checkin, kit)")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("undo.type", cmd.Flags().Lookup("type"))

	return cmd
}

func runUndo(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := config.Load()

	ledger, err := openLedger(settings)
	if err != nil {
		return err
	}

	now := time.Now()
	kind := strings.ToLower(viper.GetString("undo.type"))

	var deleted bool
	switch kind {
	case "kit":
		deleted, err = ledger.DeleteMostRecentKit(ctx, now)
	case "checkout":
		deleted, err = ledger.DeleteMostRecentCheckout(ctx, now, model.RecordCheckout)
	case "checkin":
		deleted, err = ledger.DeleteMostRecentCheckout(ctx, now, model.RecordCheckin)
	default:
		return fmt.Errorf("unknown record type %q (use checkout, checkin or kit)", kind)
	}
	if err != nil {
		return fmt.Errorf("failed to undo: %w", err)
	}

	if !deleted {
		fmt.Println(cli.FormatWarning("Nothing to undo today.")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatSuccess("Last " + kind + " removed.")) //nolint:forbidigo // User-facing output
	return nil
}
