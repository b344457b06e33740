package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kitscan/internal/cli"
	"kitscan/internal/config"
	"kitscan/internal/model"
	"kitscan/internal/service"
)

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List a day's ledger records",
		Long: `Display the checkout and check-in records captured on one day, or the
registered kits with --kits.

Examples:
  kitscan records                    # Today's checkouts and check-ins
  kitscan records --date 2026-08-24  # An earlier day
  kitscan records --kits             # Today's registered kits`,
		RunE: runRecords,
	}

	// Flags
	cmd.Flags().StringP("date", "d", "", "Day to list (format: 2006-01-02, default today)")
	cmd.Flags().BoolP("kits", "k", false, "List kit records instead of checkout records")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("records.date", cmd.Flags().Lookup("date"))
	_ = viper.BindPFlag("records.kits", cmd.Flags().Lookup("kits"))

	return cmd
}

func runRecords(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := config.Load()

	date := time.Now()
	if raw := viper.GetString("records.date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		date = parsed
	}

	ledger, err := openLedger(settings)
	if err != nil {
		return err
	}

	if viper.GetBool("records.kits") {
		return listKitRecords(ctx, ledger, date)
	}
	return listCheckoutRecords(ctx, ledger, date)
}

func listCheckoutRecords(ctx context.Context, ledger service.Ledger, date time.Time) error {
	records, err := ledger.CheckoutsForDate(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to read checkout records: %w", err)
	}

	if len(records) == 0 {
		fmt.Println(cli.InfoStyle.Render("No records for " + date.Format("2006-01-02") + ".")) //nolint:forbidigo // User-facing output
		return nil
	}

	counts := make(map[model.RecordType]int)
	for _, record := range records {
		counts[record.Type]++
	}

	fmt.Println(cli.FormatTitle("Records for " + date.Format("2006-01-02"))) //nolint:forbidigo // User-facing output
	fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("%d checked out, %d checked in, %d other",
		counts[model.RecordCheckout], counts[model.RecordCheckin], counts[model.RecordOther]))) //nolint:forbidigo // User-facing output
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
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("Time"),
		headerStyle.Render("Type"),
		headerStyle.Render("User"),
		headerStyle.Render("Kit"),
		headerStyle.Render("Value")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Separator
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 8),
		strings.Repeat("─", 8),
		strings.Repeat("─", 10),
		strings.Repeat("─", 10),
		strings.Repeat("─", 12)); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	// Data rows
	for _, record := range records {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			record.Time().Format("15:04:05"),
			record.Type,
			emptyCell(record.UserID),
			emptyCell(record.KitID),
			emptyCell(record.Value)); err != nil {
			return fmt.Errorf("failed to write record row: %w", err)
		}
	}

	return nil
}

func listKitRecords(ctx context.Context, ledger service.Ledger, date time.Time) error {
	records, err := ledger.KitsForDate(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to read kit records: %w", err)
	}

	if len(records) == 0 {
		fmt.Println(cli.InfoStyle.Render("No kits registered on " + date.Format("2006-01-02") + ".")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatTitle("Kits for " + date.Format("2006-01-02"))) //nolint:forbidigo // User-facing output
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
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("Time"),
		headerStyle.Render("Kit ID"),
		headerStyle.Render("Filled"),
		headerStyle.Render("Glasses"),
		headerStyle.Render("Controller"),
		headerStyle.Render("Batteries"),
		headerStyle.Render("Pads")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Separator
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 8),
		strings.Repeat("─", 12),
		strings.Repeat("─", 6),
		strings.Repeat("─", 12),
		strings.Repeat("─", 12),
		strings.Repeat("─", 12),
		strings.Repeat("─", 12)); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	// Data rows
	for _, record := range records {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\t%s\t%s\n",
			record.Time().Format("15:04:05"),
			record.KitID,
			record.ComponentCount(), len(model.AllSlots),
			emptyCell(record.Glasses),
			emptyCell(record.Controller),
			emptyCell(batteryCell(record)),
			emptyCell(record.Pads)); err != nil {
			return fmt.Errorf("failed to write kit row: %w", err)
		}
	}

	return nil
}

func batteryCell(record model.KitRecord) string {
	var ids []string
	for _, id := range []string{record.Battery1, record.Battery2, record.Battery3} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return strings.Join(ids, ", ")
}

func emptyCell(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
