package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/timetable"
	"github.com/spf13/cobra"
)

var timetableCmd = &cobra.Command{
	Use:   "timetable",
	Short: "Show, resolve and import the weekly timetable",
}

var timetableShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored timetable with validation warnings",
	RunE:  runTimetableShow,
}

var timetableCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the lecture slot running at a given time",
	Long: `Resolve the lecture slot running now, or at --at, and its grace window.

Examples:
  classroll timetable current
  classroll timetable current --at "2024-01-02 09:12"`,
	RunE: runTimetableCurrent,
}

var timetableImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the stored timetable with a YAML or CSV file",
	Long: `Replace the stored timetable with a YAML or CSV file.

CSV files need the columns Day,Start_Time,End_Time,Subject. Malformed rows and
same-subject overlaps are reported as warnings and do not block the import.`,
	Args: cobra.ExactArgs(1),
	RunE: runTimetableImport,
}

func init() {
	rootCmd.AddCommand(timetableCmd)
	timetableCmd.AddCommand(timetableShowCmd, timetableCurrentCmd, timetableImportCmd)

	timetableShowCmd.Flags().Bool("json", false, "Output as JSON")
	timetableShowCmd.Flags().Bool("yaml", false, "Output as YAML, suitable for import")
	timetableCurrentCmd.Flags().String("at", "", "Resolve at this local time (YYYY-MM-DD HH:MM)")
	timetableCurrentCmd.Flags().Bool("json", false, "Output as JSON")
	timetableImportCmd.Flags().Bool("dry-run", false, "Validate the file without storing it")
}

// openTimetableStore connects to the database and returns the timetable store.
func openTimetableStore(ctx context.Context, cfg *config.Config) (database.TimetableStore, func(), error) {
	closeDB, err := initDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := database.GetTimetableStore(ctx)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return store, closeDB, nil
}

func runTimetableShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	store, closeDB, err := openTimetableStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	entries, err := store.Entries(ctx)
	if err != nil {
		return fmt.Errorf("reading timetable: %w", err)
	}

	if mustGetBool(cmd, "yaml") {
		out, err := timetable.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	warnings := timetable.Validate(entries)
	if mustGetBool(cmd, "json") {
		return outputJSON(map[string]any{"entries": entries, "warnings": warnings})
	}

	if len(entries) == 0 {
		fmt.Println("Timetable is empty")
		return nil
	}
	fmt.Printf("%-10s %-5s %-5s %s\n", "DAY", "START", "END", "SUBJECT")
	for _, e := range entries {
		fmt.Printf("%-10s %-5s %-5s %s\n", e.Day, e.Start, e.End, e.Subject)
	}
	fmt.Printf("\n%d entries, %d usable\n", len(entries), timetable.ValidCount(entries))
	printWarnings(warnings)
	return nil
}

func runTimetableCurrent(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	loc := cfg.Engine.Location()

	at, err := parseAt(mustGetString(cmd, "at"), loc)
	if err != nil {
		return err
	}

	store, closeDB, err := openTimetableStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	slot, err := timetable.NewResolver(store, loc).Resolve(ctx, at)
	if err != nil {
		return err
	}

	result := map[string]any{"at": at.Format("2006-01-02 15:04:05 MST")}
	if slot == nil {
		result["status"] = attendance.StatusNoActiveSlot
	} else {
		start := slot.StartAt(at)
		state := attendance.WindowStateAt(start, at, cfg.Engine.GracePeriod)
		result["status"] = attendance.SlotStatus(*slot)
		result["slot"] = slot
		result["window"] = state.String()
		result["grace_until"] = attendance.GraceLimit(start, cfg.Engine.GracePeriod).Format("15:04:05")
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}
	fmt.Printf("At:     %s\n", result["at"])
	fmt.Printf("Status: %s\n", result["status"])
	if slot != nil {
		fmt.Printf("Window: %s (arrivals accepted until %s)\n", result["window"], result["grace_until"])
	}
	return nil
}

func runTimetableImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	entries, err := timetable.Parse(data, timetable.FormatFromPath(path))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%s has no timetable entries", path)
	}

	warnings := timetable.Validate(entries)
	printWarnings(warnings)
	fmt.Printf("%d entries, %d usable, %d warnings\n", len(entries), timetable.ValidCount(entries), len(warnings))

	if mustGetBool(cmd, "dry-run") {
		fmt.Println("Dry run, timetable not stored")
		return nil
	}

	store, closeDB, err := openTimetableStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := store.ReplaceTimetable(ctx, entries); err != nil {
		return fmt.Errorf("storing timetable: %w", err)
	}
	fmt.Printf("Timetable replaced from %s\n", path)
	return nil
}
