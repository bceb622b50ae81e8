package main

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/clerkly/internal"
	"github.com/DukeRupert/clerkly/internal/ai"
	"github.com/DukeRupert/clerkly/internal/ai/mock"
	"github.com/DukeRupert/clerkly/internal/cache"
	"github.com/DukeRupert/clerkly/internal/document"
	"github.com/DukeRupert/clerkly/internal/handler"
	"github.com/DukeRupert/clerkly/internal/jobs"
	"github.com/DukeRupert/clerkly/internal/metrics"
	"github.com/DukeRupert/clerkly/internal/middleware"
	"github.com/DukeRupert/clerkly/internal/repository"
	"github.com/DukeRupert/clerkly/internal/save"
	"github.com/DukeRupert/clerkly/internal/service"
	"github.com/DukeRupert/clerkly/internal/storage"
	"github.com/DukeRupert/clerkly/internal/worker"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// Initialize storage
	store, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Initialize the engine core: codec, cache, guard, pipeline
	codec := document.NewCodec(logger)
	reportCache := cache.New(cfg.CacheTTL)
	janitorStop := make(chan struct{})
	reportCache.StartJanitor(janitorStop)
	defer close(janitorStop)

	guard := save.NewGuard()
	pipeline := save.NewPipeline(repo, reportCache, guard, codec, logger)
	pipeline.SetBatchSize(cfg.SaveBatchSize)

	// Initialize AI provider
	var aiProvider ai.AIProvider = mock.New(logger)

	// Initialize services
	analyzeUploads := cfg.AIAnalysis && cfg.WorkerEnabled
	reportService := service.NewReportService(repo, pipeline, guard, reportCache, codec, store, logger)
	imageService := service.NewImageService(repo, store, reportCache, logger, analyzeUploads)
	propertyService := service.NewPropertyService(repo, logger)

	// Initialize background worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout

		w, err := worker.New(db, repo, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		w.Register(jobs.NewApplyAnalysisHandler(repo, aiProvider, store, codec, guard, reportCache, logger))
		w.Register(jobs.NewGenerateReportHandler(repo, store, codec, guard, reportCache, logger))
		w.Start(ctx)
		defer w.Stop()
	}

	// Initialize handlers and middleware
	reportHandler := handler.NewReportHandler(reportService, propertyService, logger)
	imageHandler := handler.NewImageHandler(imageService, logger)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", metricsAuth(cfg, promhttp.Handler()))

	// Locally stored files (development)
	if cfg.StorageProvider == storage.ProviderLocal {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	// API routes
	reportHandler.RegisterRoutes(mux)
	imageHandler.RegisterRoutes(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: loggingMw.Handler(metrics.Middleware(mux)),
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage builds the configured storage provider.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
}

// metricsAuth wraps the metrics endpoint with basic auth when credentials are
// configured.
func metricsAuth(cfg *internal.Config, next http.Handler) http.Handler {
	if cfg.MetricsUsername == "" && cfg.MetricsPassword == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(cfg.MetricsUsername)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.MetricsPassword)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
