package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
)

// connectQueue dials the loop's own queue connection. Connections are
// never shared between loops.
func (w *Worker) connectQueue(ctx context.Context, logger *slog.Logger) (QueueClient, error) {
	queue, err := w.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}

	logger.Info("Queue connection established")
	return queue, nil
}

// reconnectQueue closes a connection that keeps failing and dials until a
// new one is up. It returns nil only when ctx is done.
func (w *Worker) reconnectQueue(ctx context.Context, old QueueClient, logger *slog.Logger) QueueClient {
	logger.Warn("Replacing failing queue connection")
	if err := old.Close(); err != nil {
		logger.Warn("Failed to close queue connection", slog.Any("error", err))
	}

	for {
		queue, err := w.connectQueue(ctx, logger)
		if err == nil {
			return queue
		}

		w.metrics.RecordQueueError("connect")
		logger.Error("Failed to reconnect queue", slog.Any("error", err))
		if !sleepContext(ctx, w.retryInterval) {
			return nil
		}
	}
}

// reserveJob blocks until the next job is reserved or ctx is done
func (w *Worker) reserveJob(ctx context.Context, queue QueueClient, workerLabel string, logger *slog.Logger) (*domain.Job, error) {
	id, body, err := queue.Reserve(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReserve, err)
	}

	w.metrics.RecordReserved(workerLabel)
	logger.Debug("Job reserved",
		slog.Uint64("job_id", id),
		slog.Int("bytes", len(body)),
	)

	return &domain.Job{ID: id, Body: body}, nil
}
