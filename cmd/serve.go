package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kozaktomas/classroll/internal/camera"
	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/database/postgres"
	"github.com/kozaktomas/classroll/internal/faceclient"
	"github.com/kozaktomas/classroll/internal/gallery"
	"github.com/kozaktomas/classroll/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the camera workers and the web API",
	Long: `Start one worker per CAMERA_URLS entry and the attendance API.

Every camera tick resolves the running lecture, recognizes faces against the
enrolled gallery and records attendance. Once a lecture's grace period ends,
unmarked roster students are marked Absent.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (defaults to random)")
	serveCmd.Flags().StringSlice("camera", nil, "Camera snapshot URL, repeatable (overrides CAMERA_URLS)")
	serveCmd.Flags().Bool("no-cameras", false, "Serve the API without starting camera workers")
}

// initGallery loads persisted templates, falling back to embedding the
// enrolment directory. An empty gallery is not fatal: every face is Unknown
// until a reload succeeds.
func initGallery(ctx context.Context, loader *gallery.Loader) *gallery.Holder {
	g, err := loader.FromStore(ctx)
	if errors.Is(err, gallery.ErrEmptyGallery) {
		fmt.Printf("No stored face templates, enrolling from %s...\n", loader.Dir)
		g, err = loader.FromDir(ctx, nil)
	}
	if err != nil {
		fmt.Printf("Warning: face gallery not loaded: %v\n", err)
		fmt.Printf("All faces will be reported as Unknown until POST /api/v1/gallery/reload succeeds\n")
		return gallery.NewHolder(nil)
	}
	fmt.Printf("Face gallery ready: %d templates for %d students (%s match)\n", g.Len(), len(g.Names()), g.Strategy())
	return gallery.NewHolder(g)
}

// newWorkers creates one camera worker per configured URL.
func newWorkers(cfg *config.Config, processor camera.FrameProcessor, monitor *camera.Monitor) []*camera.Worker {
	workers := make([]*camera.Worker, 0, len(cfg.Camera.URLs))
	for i, url := range cfg.Camera.URLs {
		id := fmt.Sprintf("cam%d", i)
		workers = append(workers, &camera.Worker{
			ID:        id,
			Source:    camera.NewHTTPSource(id, url),
			Processor: processor,
			Interval:  cfg.Camera.Interval,
			Monitor:   monitor,
		})
	}
	return workers
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	sessionSecret := mustGetString(cmd, "session-secret")

	if sessionSecret == "" {
		sessionSecret = os.Getenv("WEB_SESSION_SECRET")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, sessionSecret
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	noCameras := mustGetBool(cmd, "no-cameras")
	if urls := mustGetStringSlice(cmd, "camera"); len(urls) > 0 {
		cfg.Camera.URLs = urls
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	closeDB, err := initDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	fmt.Printf("Attendance ledger: %s\n", database.LedgerBackend())

	store, err := database.GetTimetableStore(ctx)
	if err != nil {
		return err
	}
	if err := seedTimetable(ctx, cfg, store); err != nil {
		return err
	}

	client := faceclient.NewClient(cfg.Embedding.URL)
	loader, err := newLoader(ctx, cfg, client)
	if err != nil {
		return err
	}
	holder := initGallery(ctx, loader)

	recognizer := camera.NewRecognizer(client, holder, cfg.Camera.Scale)
	engine, err := newEngine(ctx, cfg, recognizer, camera.DiskSnapshotSink{Dir: cfg.Faces.UnknownDir})
	if err != nil {
		return err
	}
	fmt.Printf("Grace period: %s, timezone: %s\n", engine.GracePeriod(), cfg.Engine.Location())

	monitor := camera.NewMonitor()
	var workers []*camera.Worker
	if !noCameras {
		workers = newWorkers(cfg, engine, monitor)
	}
	if len(workers) == 0 {
		fmt.Println("No camera workers started (set CAMERA_URLS)")
	}

	port, host, sessionSecret := resolveServeHostPort(cmd)
	if !cfg.Admin.Configured() {
		fmt.Println("Warning: ADMIN_PASSWORD or ADMIN_PASSWORD_HASH not set, dashboard login is disabled")
	}

	sessionRepo := postgres.NewSessionRepository(postgres.GetGlobalPool())
	server := web.NewServer(cfg, port, host, sessionSecret, sessionRepo, web.Services{
		Engine:  engine,
		Monitor: monitor,
		Roster:  gallery.DirRoster{Dir: cfg.Faces.Dir},
		Loader:  loader,
		Gallery: holder,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		camera.RunAll(ctx, workers)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting classroll on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	err = server.Start()
	cancel()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
