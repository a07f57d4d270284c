package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/api/router"
	"github.com/cuongbtq/xe-rate-worker/internal/config"
	"github.com/cuongbtq/xe-rate-worker/internal/queue"
	"github.com/cuongbtq/xe-rate-worker/internal/worker"
	"github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
	"github.com/cuongbtq/xe-rate-worker/internal/worker/metrics"
	"github.com/cuongbtq/xe-rate-worker/internal/worker/rate"
	"github.com/cuongbtq/xe-rate-worker/internal/worker/storage"
	"github.com/cuongbtq/xe-rate-worker/shared/logger"
	"github.com/cuongbtq/xe-rate-worker/shared/postgresql"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// serviceName tags every log record of this binary
const serviceName = "xe-rate-worker"

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
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("queue_driver", cfg.Queue.Driver),
		slog.String("tube", cfg.Queue.Tube),
		slog.Int("parallelism", cfg.Worker.Parallelism),
	)

	// Initialize PostgreSQL client; without a store no job can complete
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	appLogger.Info("Database connection established")

	if cfg.Database.MigrationsPath != "" {
		if err := dbClient.RunMigrations(cfg.Database.MigrationsPath); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		dbClient.StatsCollector(),
	)

	// Create worker instance
	workerInstance := worker.NewWorker(&worker.Config{
		Logger:  appLogger.Logger,
		Storage: storage.NewStorage(dbClient.GetDB(), cfg.Database.Table, appLogger.Logger),
		Fetcher: rate.NewFetcher(rate.Config{
			BaseURL:     cfg.Fetcher.BaseURL,
			IdleTimeout: cfg.Fetcher.IdleTimeout,
		}, appLogger.Logger),
		Dial: func(ctx context.Context) (worker.QueueClient, error) {
			return queue.Dial(&cfg.Queue, appLogger.Logger)
		},
		Policy:      policyFromConfig(&cfg.Worker),
		Parallelism: cfg.Worker.Parallelism,
		Metrics:     metrics.NewWorkerMetrics(registry),
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opsServer *http.Server
	if cfg.Worker.MetricsPort != 0 {
		opsServer = startOpsServer(cfg, appLogger.Logger, registry, dbClient, workerInstance)
	}

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- workerInstance.Start(ctx)
	}()

	appLogger.Info("Worker service started successfully",
		slog.String("worker_id", workerInstance.ID()),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err != nil {
			appLogger.Error("Worker error",
				slog.Any("error", err),
			)
			runErr = err
		}
	}

	// Cancel context to stop worker
	cancel()

	// Give in-flight jobs time to finish their cycle
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	if opsServer != nil {
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Ops server forced to shutdown",
				slog.Any("error", err),
			)
		}
	}

	appLogger.Info("Worker service shutdown complete")
	return runErr
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		Service:      serviceName,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		URI:             cfg.URI,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// policyFromConfig maps worker settings onto the job lifecycle policy.
// Validation guarantees the counts are positive.
func policyFromConfig(cfg *config.WorkerConfig) domain.Policy {
	return domain.Policy{
		SuccessDelay:  cfg.SuccessDelay,
		SuccessTarget: uint(cfg.SuccessAttemptTarget),
		FailedDelay:   cfg.FailedDelay,
		FailedLimit:   uint(cfg.FailedAttemptLimit),
		TTR:           cfg.TTR,
	}
}

// startOpsServer serves /health and /metrics for health checks and scrapers
func startOpsServer(cfg *config.Config, logger *slog.Logger, registry *prometheus.Registry, dbClient *postgresql.Client, w *worker.Worker) *http.Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.SetupOpsRouter(&router.OpsDependencies{
		Logger:         logger,
		Gatherer:       registry,
		HealthCheck:    dbClient.HealthCheck,
		RunningWorkers: w.Running,
	})

	addr := fmt.Sprintf(":%d", cfg.Worker.MetricsPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ops server failed",
				slog.Any("error", err),
			)
		}
	}()

	logger.Info("Ops server listening",
		slog.String("address", addr),
	)

	return srv
}
