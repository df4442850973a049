package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/convert-be/internal/api/handler"
	"github.com/cuongbtq/convert-be/internal/api/router"
	"github.com/cuongbtq/convert-be/internal/config"
	"github.com/cuongbtq/convert-be/internal/convert/backend"
	"github.com/cuongbtq/convert-be/internal/convert/capability"
	"github.com/cuongbtq/convert-be/internal/convert/domain"
	"github.com/cuongbtq/convert-be/internal/convert/orchestrator"
	"github.com/cuongbtq/convert-be/internal/convert/scratch"
	"github.com/cuongbtq/convert-be/internal/history"
	"github.com/cuongbtq/convert-be/shared/logger"
	"github.com/cuongbtq/convert-be/shared/sqlite"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("CONVERT_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/convert-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting convert service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize SQLite client and history store
	dbClient, err := sqlite.NewClient(&sqlite.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	historyStore, err := history.NewStore(dbClient)
	if err != nil {
		return fmt.Errorf("failed to initialize history store: %w", err)
	}

	// Initialize scratch manager and stale-dir sweeper
	scratchMgr, err := scratch.NewManager(cfg.Scratch.Dir, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize scratch manager: %w", err)
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if cfg.Scratch.SweepInterval > 0 {
		go sweepLoop(sweepCtx, scratchMgr, cfg.Scratch.SweepInterval, cfg.Scratch.Retention)
	}

	// Probe once at startup so the log shows what the environment offers.
	prober := capability.NewProber(appLogger.Logger)
	caps := prober.Probe(context.Background())
	appLogger.Info("Probed backend capabilities",
		slog.Bool("image", caps.Image),
		slog.Bool("media", caps.Media),
		slog.Bool("document", caps.Document),
	)

	// Initialize orchestrator with one adapter per category
	orch := initOrchestrator(cfg, prober, scratchMgr, appLogger.Logger)

	// Initialize router
	r := initRouter(cfg, appLogger.Logger, orch, prober, historyStore)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Convert service is running",
		slog.String("address", addr),
		slog.Int64("upload_limit_mb", cfg.Upload.MaxSizeMB),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	cleanup := func() {
		cancel()
		stopSweep()
		if dbClient != nil {
			_ = dbClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initOrchestrator wires one adapter per conversion category
func initOrchestrator(cfg *config.Config, prober *capability.Prober, scratchMgr *scratch.Manager, logger *slog.Logger) *orchestrator.Orchestrator {
	runner := backend.NewRunner()

	imageOpts := backend.DefaultImageOptions()
	if cfg.Backends.Image.Workers > 0 {
		imageOpts.Workers = cfg.Backends.Image.Workers
	}
	if cfg.Backends.Image.JPEGQuality > 0 {
		imageOpts.JPEGQuality = cfg.Backends.Image.JPEGQuality
	}
	if cfg.Backends.Image.WebPQuality > 0 {
		imageOpts.WebPQuality = cfg.Backends.Image.WebPQuality
	}

	imageAdapter := backend.NewImageAdapter(imageOpts, logger)
	mediaAdapter := backend.NewMediaAdapter(runner, prober.MediaBinary(), cfg.Backends.Media.Timeout, logger)
	documentAdapter := backend.NewDocumentAdapter(runner, prober.DocumentBinary, cfg.Backends.Document.Timeout, logger)

	adapters := map[domain.Category]backend.Adapter{
		domain.CategoryImage:    imageAdapter,
		domain.CategoryAudio:    mediaAdapter,
		domain.CategoryVideo:    mediaAdapter,
		domain.CategoryDocument: documentAdapter,
	}

	return orchestrator.New(prober, scratchMgr, adapters, cfg.Degradation.PlaceholderEnabled, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, orch *orchestrator.Orchestrator, prober *capability.Prober, historyStore *history.Store) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:         logger,
		Orchestrator:   orch,
		Prober:         prober,
		History:        historyStore,
		MaxUploadBytes: cfg.Upload.MaxSizeBytes(),
	}

	return router.SetupRouter(handlerDeps)
}

// sweepLoop periodically removes stale scratch directories left behind by
// crashed or killed processes.
func sweepLoop(ctx context.Context, mgr *scratch.Manager, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = mgr.Sweep(retention)
		}
	}
}
