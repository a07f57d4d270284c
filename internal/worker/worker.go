package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
	"github.com/cuongbtq/xe-rate-worker/internal/worker/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds worker configuration
type Config struct {
	Logger      *slog.Logger
	Storage     RateStore
	Fetcher     RateFetcher
	Dial        Dialer
	Policy      domain.Policy
	Parallelism int
	Metrics     *metrics.WorkerMetrics
}

// Worker runs Parallelism independent loops, each with its own queue
// connection, sharing one store.
type Worker struct {
	logger      *slog.Logger
	storage     RateStore
	fetcher     RateFetcher
	dial        Dialer
	policy      domain.Policy
	parallelism int
	metrics     *metrics.WorkerMetrics
	workerID    string

	// retryInterval spaces reserve retries and redials
	retryInterval time.Duration

	wg      sync.WaitGroup
	mu      sync.Mutex
	cancel  context.CancelFunc
	running atomic.Int32
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewWorkerMetrics(prometheus.NewRegistry())
	}

	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	return &Worker{
		logger:      cfg.Logger,
		storage:     cfg.Storage,
		fetcher:     cfg.Fetcher,
		dial:        cfg.Dial,
		policy:      cfg.Policy,
		parallelism: parallelism,
		metrics:     m,
		workerID:    uuid.NewString(),

		retryInterval: reserveRetryInterval,
	}
}

// ID returns the identifier shared by this worker's loops
func (w *Worker) ID() string {
	return w.workerID
}

// Running reports how many loops are currently alive
func (w *Worker) Running() int {
	return int(w.running.Load())
}

// Start spawns the loops and blocks until all of them have returned.
// Loops stop when ctx is canceled or Stop is called, after finishing the
// job in hand. If every loop exits on its own, which only happens when
// no loop could make its initial queue connection, Start returns an
// ErrConnection error.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("parallelism", w.parallelism),
		slog.Duration("success_delay", w.policy.SuccessDelay),
		slog.Uint64("success_attempt_target", uint64(w.policy.SuccessTarget)),
		slog.Duration("failed_delay", w.policy.FailedDelay),
		slog.Uint64("failed_attempt_limit", uint64(w.policy.FailedLimit)),
	)

	w.spawnWorkerPool(ctx)
	w.wg.Wait()

	if ctx.Err() == nil {
		return fmt.Errorf("%w: all worker loops exited", domain.ErrConnection)
	}

	w.logger.Info("Worker stopped", slog.String("worker_id", w.workerID))
	return nil
}

// Stop asks every loop to finish its current job and waits for them
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")

	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}
