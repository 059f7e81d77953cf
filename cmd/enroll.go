package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/faceclient"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Compute face templates from the enrolment directory",
	Long: `Send every image under FACES_DIR/<student>/ to the face service and store
the embedding of the best detected face as a template for that student.
Images without a usable face are skipped. A running server picks up the new
templates after POST /api/v1/gallery/reload?source=store.

Examples:
  classroll enroll
  classroll enroll --dir ./faces --strategy nearest`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("dir", "", "Enrolment directory (defaults to FACES_DIR)")
	enrollCmd.Flags().Float64("max-distance", 0, "Override FACE_MATCH_MAX_DISTANCE for the summary")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	startTime := time.Now()

	if dir := mustGetString(cmd, "dir"); dir != "" {
		cfg.Faces.Dir = dir
	}
	if d := mustGetFloat64(cmd, "max-distance"); d > 0 {
		cfg.Faces.MaxDistance = d
	}

	closeDB, err := initDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	client := faceclient.NewClient(cfg.Embedding.URL)
	loader, err := newLoader(ctx, cfg, client)
	if err != nil {
		return err
	}

	fmt.Printf("Enrolling faces from %s using %s\n", cfg.Faces.Dir, client.BaseURL())

	var bar *progressbar.ProgressBar
	g, err := loader.FromDir(ctx, func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Embedding faces"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("images"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		}
		bar.Set(done)
	})
	if err != nil {
		return fmt.Errorf("enrolment failed: %w", err)
	}

	fmt.Printf("\nStored %d templates for %d students in %s\n", g.Len(), len(g.Names()), formatDuration(time.Since(startTime)))
	return nil
}
