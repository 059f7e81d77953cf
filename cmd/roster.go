package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/gallery"
	"github.com/spf13/cobra"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "List enrolled students and their stored templates",
	Long: `List the roster (sub-directories of FACES_DIR) with the number of enrolment
images and stored face templates per student. Students without templates are
never recognized and will always be swept Absent.`,
	RunE: runRoster,
}

func init() {
	rootCmd.AddCommand(rosterCmd)

	rosterCmd.Flags().Bool("json", false, "Output as JSON")
}

// RosterEntry is one student of the roster.
type RosterEntry struct {
	Name      string `json:"name"`
	Images    int    `json:"images"`
	Templates int    `json:"templates"`
}

func runRoster(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	names, err := gallery.DirRoster{Dir: cfg.Faces.Dir}.Names(ctx)
	if err != nil {
		return fmt.Errorf("reading roster: %w", err)
	}

	images, err := gallery.ScanDir(cfg.Faces.Dir)
	if err != nil {
		return err
	}
	imageCount := make(map[string]int)
	for _, img := range images {
		imageCount[img.Name]++
	}

	templateCount := make(map[string]int)
	if cfg.Database.URL != "" {
		closeDB, err := initDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		store, err := database.GetTemplateWriter(ctx)
		if err != nil {
			return err
		}
		templates, err := store.GetTemplates(ctx)
		if err != nil {
			return fmt.Errorf("reading templates: %w", err)
		}
		for _, t := range templates {
			templateCount[t.Name]++
		}
	}

	entries := make([]RosterEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, RosterEntry{Name: name, Images: imageCount[name], Templates: templateCount[name]})
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(entries)
	}

	fmt.Printf("%-30s %6s %9s\n", "NAME", "IMAGES", "TEMPLATES")
	for _, e := range entries {
		fmt.Printf("%-30s %6d %9d\n", e.Name, e.Images, e.Templates)
	}
	fmt.Printf("\n%d students in %s\n", len(entries), cfg.Faces.Dir)
	return nil
}
