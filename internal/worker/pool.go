package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
)

const (
	// reserveRetryInterval is the pause after a failed reserve or redial
	reserveRetryInterval = time.Second
	// reconnectAfterFailures swaps a connection for a fresh one after this
	// many consecutive reserve failures
	reconnectAfterFailures = 5
)

// spawnWorkerPool spawns one loop per unit of parallelism
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("parallelism", w.parallelism),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.parallelism; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop owns one queue connection and runs reserve, process and
// lifecycle cycles strictly one after another until ctx is canceled.
// The job in hand is always finished before the loop checks ctx again.
// Only a failed initial dial ends the loop; reserve failures are retried
// and a connection that keeps failing is replaced.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	workerLabel := strconv.Itoa(workerNum)
	logger := w.logger.With(slog.String("worker_name", workerName))

	queue, err := w.connectQueue(ctx, logger)
	if err != nil {
		logger.Error("Worker goroutine stopping - queue connection failed",
			slog.Any("error", err),
		)
		return
	}
	defer func() {
		if queue == nil {
			return
		}
		if err := queue.Close(); err != nil {
			logger.Warn("Failed to close queue connection", slog.Any("error", err))
		}
	}()

	w.running.Add(1)
	w.metrics.WorkerStarted()
	defer func() {
		w.running.Add(-1)
		w.metrics.WorkerStopped()
	}()

	logger.Info("Worker goroutine started", slog.Int("worker_num", workerNum))

	failures := 0
	for {
		if ctx.Err() != nil {
			logger.Info("Worker goroutine stopping - context canceled")
			return
		}

		job, err := w.reserveJob(ctx, queue, workerLabel, logger)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Info("Worker goroutine stopping - context canceled")
				return
			}

			failures++
			w.metrics.RecordQueueError(domain.StageReserve)
			logger.Error("Failed to reserve job",
				slog.Any("error", err),
				slog.Int("consecutive_failures", failures),
			)
			if !sleepContext(ctx, w.retryInterval) {
				return
			}
			if failures >= reconnectAfterFailures {
				queue = w.reconnectQueue(ctx, queue, logger)
				if queue == nil {
					return
				}
				failures = 0
			}
			continue
		}
		failures = 0

		// an in-flight cycle is never abandoned halfway
		w.handleJob(context.WithoutCancel(ctx), queue, job, logger)
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
