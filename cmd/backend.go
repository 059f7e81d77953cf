package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/database/mariadb"
	"github.com/kozaktomas/classroll/internal/database/postgres"
	"github.com/kozaktomas/classroll/internal/faceclient"
	"github.com/kozaktomas/classroll/internal/gallery"
	"github.com/kozaktomas/classroll/internal/timetable"
)

// initDatabase connects to PostgreSQL, runs migrations and registers the
// repositories. With LEDGER_BACKEND=mariadb the ledger is moved to MariaDB.
// The returned cleanup closes every pool.
func initDatabase(ctx context.Context, cfg *config.Config) (func(), error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	cleanup := func() { pool.Close() }

	switch cfg.Database.Ledger {
	case "", "postgres":
	case "mariadb":
		mdb, err := mariadb.NewPool(cfg.Database.MariaDBDSN)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to connect to MariaDB: %w", err)
		}
		if err := mdb.EnsureSchema(ctx); err != nil {
			mdb.Close()
			cleanup()
			return nil, fmt.Errorf("failed to prepare MariaDB schema: %w", err)
		}
		ledger := mariadb.NewLedgerRepository(mdb)
		database.RegisterLedgerWriter("mariadb", func() database.LedgerWriter { return ledger })
		cleanup = func() {
			mdb.Close()
			pool.Close()
		}
	default:
		cleanup()
		return nil, fmt.Errorf("unknown LEDGER_BACKEND %q (expected postgres or mariadb)", cfg.Database.Ledger)
	}

	return cleanup, nil
}

// seedTimetable fills an empty timetable store from TIMETABLE_PATH, or from
// the built-in sample timetable when no path is configured.
func seedTimetable(ctx context.Context, cfg *config.Config, store database.TimetableStore) error {
	entries, err := store.Entries(ctx)
	if err != nil {
		return fmt.Errorf("reading timetable: %w", err)
	}
	if len(entries) > 0 {
		return nil
	}

	source := "built-in sample"
	if cfg.Timetable.Path != "" {
		source = cfg.Timetable.Path
		entries, err = timetable.FileSource{Path: cfg.Timetable.Path}.Entries(ctx)
	} else {
		entries, err = timetable.Parse(config.SampleTimetable(), timetable.FormatYAML)
	}
	if err != nil {
		return fmt.Errorf("loading timetable from %s: %w", source, err)
	}

	printWarnings(timetable.Validate(entries))
	if err := store.ReplaceTimetable(ctx, entries); err != nil {
		return fmt.Errorf("storing timetable: %w", err)
	}
	fmt.Printf("Timetable seeded from %s (%d entries)\n", source, len(entries))
	return nil
}

// newEngine builds an attendance engine over the registered repositories.
func newEngine(ctx context.Context, cfg *config.Config, matcher attendance.Matcher, snapshots attendance.SnapshotSink) (*attendance.Engine, error) {
	ledger, err := database.GetLedgerWriter(ctx)
	if err != nil {
		return nil, err
	}
	store, err := database.GetTimetableStore(ctx)
	if err != nil {
		return nil, err
	}
	loc := cfg.Engine.Location()
	return attendance.NewEngine(attendance.Dependencies{
		Resolver:  timetable.NewResolver(store, loc),
		Ledger:    ledger,
		Roster:    gallery.DirRoster{Dir: cfg.Faces.Dir},
		Matcher:   matcher,
		Snapshots: snapshots,
		Location:  loc,
	}, cfg.Engine.GracePeriod), nil
}

// newLoader builds a gallery loader over the face service and template store.
func newLoader(ctx context.Context, cfg *config.Config, client *faceclient.Client) (*gallery.Loader, error) {
	store, err := database.GetTemplateWriter(ctx)
	if err != nil {
		return nil, err
	}
	return &gallery.Loader{
		Dir:         cfg.Faces.Dir,
		Embedder:    client,
		Store:       store,
		MaxDistance: cfg.Faces.MaxDistance,
		Strategy:    gallery.ParseStrategy(cfg.Faces.Strategy),
	}, nil
}

// parseAt parses a --at flag ("2006-01-02 15:04") in loc, defaulting to now.
func parseAt(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q, expected \"YYYY-MM-DD HH:MM\": %w", value, err)
	}
	return t, nil
}

func printWarnings(warnings []timetable.Warning) {
	for _, w := range warnings {
		fmt.Printf("Warning: row %d: %s\n", w.Row+1, w.Message)
	}
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// formatDuration formats a duration as a human-readable string
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
