package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/config"
	"github.com/cuongbtq/xe-rate-worker/internal/producer"
	"github.com/cuongbtq/xe-rate-worker/internal/queue"
	"github.com/cuongbtq/xe-rate-worker/shared/logger"
	"github.com/joho/godotenv"
)

const (
	defaultFrom = "HKD"
	defaultTo   = "USD"
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

	defaultConfigPath := os.Getenv("PRODUCER_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-config path] [FROM TO]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	from, to, err := pairFromArgs(flag.Args())
	if err != nil {
		flag.Usage()
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateQueueConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
		Service:      "xe-rate-producer",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	queueClient, err := queue.Dial(&cfg.Queue, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to work queue: %w", err)
	}
	defer queueClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := producer.New(queueClient, cfg.Worker.TTR, appLogger.Logger).Enqueue(ctx, from, to, nil)
	if err != nil {
		return err
	}

	appLogger.Info("Producer finished",
		slog.Uint64("job_id", id),
		slog.String("tube", cfg.Queue.Tube),
	)
	return nil
}

// pairFromArgs reads the FROM TO positional arguments
func pairFromArgs(args []string) (string, string, error) {
	switch len(args) {
	case 0:
		return defaultFrom, defaultTo, nil
	case 2:
		return args[0], args[1], nil
	default:
		return "", "", fmt.Errorf("expected FROM and TO currency codes, got %d argument(s)", len(args))
	}
}
