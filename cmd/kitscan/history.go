package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kitscan/internal/cli"
	"kitscan/internal/config"
	"kitscan/internal/history"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent scan events",
		Long: `Display the most recent scan events across all modes, newest first.

Every processed scan leaves an event: accepted, rejected, replaced or
saved. The history is a diagnostic trail, separate from the day ledger.

Examples:
  kitscan history             # Last 20 events
  kitscan history --limit 50  # Last 50 events`,
		RunE: runHistory,
	}

	// Flags
	cmd.Flags().IntP("limit", "n", history.DefaultRecentLimit, "Maximum number of events to show")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("history.limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := config.Load()

	if !settings.HistoryEnabled {
		fmt.Println(cli.InfoStyle.Render("History recording is disabled in config.")) //nolint:forbidigo // User-facing output
		return nil
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

	events, err := recorder.RecentEvents(ctx, viper.GetInt("history.limit"))
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if len(events) == 0 {
		fmt.Println(cli.InfoStyle.Render("No scan events recorded yet.")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatTitle("Scan History")) //nolint:forbidigo // User-facing output
	fmt.Println() //nolint:forbidigo // User-facing output

	// Create table writer
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	// Header
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("Time"),
		headerStyle.Render("Mode"),
		headerStyle.Render("Class"),
		headerStyle.Render("Outcome"),
		headerStyle.Render("Scan"),
		headerStyle.Render("Detail")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Separator
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 14),
		strings.Repeat("─", 8),
		strings.Repeat("─", 6),
		strings.Repeat("─", 18),
		strings.Repeat("─", 12),
		strings.Repeat("─", 24)); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	// Data rows
	for _, event := range events {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			event.At.Format("01-02 15:04:05"),
			event.Mode,
			event.Class,
			event.Outcome,
			emptyCell(event.Raw),
			emptyCell(event.Detail)); err != nil {
			return fmt.Errorf("failed to write event row: %w", err)
		}
	}

	return nil
}
