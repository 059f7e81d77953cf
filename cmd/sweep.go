package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/timetable"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark unmarked students absent once the grace period has ended",
	Long: `Mark every roster student without a record as Absent for the lecture
running now. Nothing is written while the grace period is still open.

With --today every lecture of the day whose grace period has ended is swept,
which backfills absentees after the server was down.

Examples:
  classroll sweep
  classroll sweep --today
  classroll sweep --today --at "2024-01-02 18:00"`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().Bool("today", false, "Sweep every lecture of the day whose grace period has ended")
	sweepCmd.Flags().String("at", "", "Sweep as of this local time (YYYY-MM-DD HH:MM)")
	sweepCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// SweepResult is the outcome of sweeping one slot.
type SweepResult struct {
	Subject string   `json:"subject"`
	Slot    string   `json:"slot"`
	Absent  []string `json:"absent"`
	Error   string   `json:"error,omitempty"`
}

// endedSlots returns today's slots whose grace window has ended at at, in timetable order.
func endedSlots(entries []timetable.Entry, at time.Time, grace time.Duration) []timetable.Slot {
	var slots []timetable.Slot
	day := at.Weekday().String()
	for _, e := range entries {
		if !strings.EqualFold(strings.TrimSpace(e.Day), day) {
			continue
		}
		slot, err := e.Slot()
		if err != nil {
			continue
		}
		if attendance.WindowStateAt(slot.StartAt(at), at, grace) == attendance.Expired {
			slots = append(slots, slot)
		}
	}
	return slots
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	loc := cfg.Engine.Location()
	jsonOutput := mustGetBool(cmd, "json")
	startTime := time.Now()

	at, err := parseAt(mustGetString(cmd, "at"), loc)
	if err != nil {
		return err
	}

	closeDB, err := initDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	engine, err := newEngine(ctx, cfg, nil, nil)
	if err != nil {
		return err
	}

	store, err := database.GetTimetableStore(ctx)
	if err != nil {
		return err
	}

	var slots []timetable.Slot
	if mustGetBool(cmd, "today") {
		entries, err := store.Entries(ctx)
		if err != nil {
			return fmt.Errorf("reading timetable: %w", err)
		}
		slots = endedSlots(entries, at, engine.GracePeriod())
	} else {
		slot, err := timetable.NewResolver(store, loc).Resolve(ctx, at)
		if err != nil {
			return err
		}
		if slot != nil {
			slots = append(slots, *slot)
		}
	}

	if len(slots) == 0 {
		if jsonOutput {
			return outputJSON([]SweepResult{})
		}
		fmt.Println(attendance.StatusNoActiveSlot)
		return nil
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(slots),
			progressbar.OptionSetDescription("Sweeping lectures"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	results := make([]SweepResult, 0, len(slots))
	total := 0
	for _, slot := range slots {
		absent, err := engine.Sweep(ctx, slot, at)
		res := SweepResult{Subject: slot.Subject, Slot: slot.ID, Absent: absent}
		if res.Absent == nil {
			res.Absent = []string{}
		}
		if err != nil {
			res.Error = err.Error()
		}
		total += len(absent)
		results = append(results, res)
		if bar != nil {
			bar.Add(1)
		}
	}

	if jsonOutput {
		return outputJSON(results)
	}

	fmt.Println()
	for _, res := range results {
		fmt.Printf("%s (%s): %d marked absent", res.Subject, res.Slot, len(res.Absent))
		if len(res.Absent) > 0 {
			fmt.Printf(": %s", strings.Join(res.Absent, ", "))
		}
		fmt.Println()
		if res.Error != "" {
			fmt.Printf("  Error: %s\n", res.Error)
		}
	}
	if len(slots) == 1 && attendance.WindowStateAt(slots[0].StartAt(at), at, engine.GracePeriod()) == attendance.Accepting {
		fmt.Println("Grace period still open, nobody was marked absent")
	}
	fmt.Printf("Done in %s, %d students marked absent\n", formatDuration(time.Since(startTime)), total)
	return nil
}
