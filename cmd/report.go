package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/gallery"
	"github.com/kozaktomas/classroll/internal/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print attendance percentages per student",
	Long: `Print total, present and absent counts with the attendance percentage of
every roster student. --name filters students by a case and diacritic
insensitive substring. --csv exports the raw ledger instead.

Examples:
  classroll report
  classroll report --name novak
  classroll report --csv --date 2024-01-02 > attendance.csv`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("name", "", "Only students whose name contains this text")
	reportCmd.Flags().Bool("csv", false, "Export ledger records as CSV")
	reportCmd.Flags().String("date", "", "With --csv, only records of this date (YYYY-MM-DD)")
	reportCmd.Flags().String("subject", "", "With --csv, only records of this subject")
	reportCmd.Flags().Bool("json", false, "Output as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	closeDB, err := initDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	ledger, err := database.GetLedgerReader(ctx)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "csv") {
		records, err := ledger.List(ctx, database.LedgerFilter{
			Date:    mustGetString(cmd, "date"),
			Subject: mustGetString(cmd, "subject"),
		})
		if err != nil {
			return fmt.Errorf("listing attendance: %w", err)
		}
		return report.WriteCSV(os.Stdout, records)
	}

	names, err := gallery.DirRoster{Dir: cfg.Faces.Dir}.Names(ctx)
	if err != nil {
		return fmt.Errorf("reading roster: %w", err)
	}
	records, err := ledger.Scan(ctx)
	if err != nil {
		return fmt.Errorf("reading attendance: %w", err)
	}

	summaries := report.Summarize(records, names, mustGetString(cmd, "name"))
	if mustGetBool(cmd, "json") {
		return outputJSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No matching students")
		return nil
	}
	fmt.Printf("%-30s %6s %8s %7s %9s\n", "NAME", "TOTAL", "PRESENT", "ABSENT", "ATTENDED")
	for _, s := range summaries {
		fmt.Printf("%-30s %6d %8d %7d %9s\n", s.Name, s.Total, s.Present, s.Absent, s.Percent)
	}

	counts := report.Count(records)
	fmt.Printf("\nLedger: %d records, %d present, %d absent\n", counts.Total, counts.Present, counts.Absent)
	return nil
}
