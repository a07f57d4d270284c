package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
)

// DefaultTTR is the time-to-run given to freshly enqueued jobs
const DefaultTTR = 60 * time.Second

// Queue is the put side of a work queue connection
type Queue interface {
	Put(ctx context.Context, body []byte, delay, ttr time.Duration) (uint64, error)
}

// Producer enqueues rate jobs. It serializes access to the underlying
// connection so a single Producer can serve concurrent callers.
type Producer struct {
	mu     sync.Mutex
	queue  Queue
	ttr    time.Duration
	logger *slog.Logger
}

// New creates a Producer writing to queue
func New(queue Queue, ttr time.Duration, logger *slog.Logger) *Producer {
	if ttr <= 0 {
		ttr = DefaultTTR
	}
	return &Producer{queue: queue, ttr: ttr, logger: logger}
}

// Enqueue puts one job for the pair, ready immediately with priority 0.
// extra fields ride along in the payload untouched.
func (p *Producer) Enqueue(ctx context.Context, from, to string, extra map[string]json.RawMessage) (uint64, error) {
	if err := domain.ValidatePair(from, to); err != nil {
		return 0, err
	}

	body, err := json.Marshal(domain.NewPayload(from, to, extra))
	if err != nil {
		return 0, fmt.Errorf("failed to encode payload: %w", err)
	}

	p.mu.Lock()
	id, err := p.queue.Put(ctx, body, 0, p.ttr)
	p.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue job: %w", err)
	}

	p.logger.Info("Job enqueued",
		slog.Uint64("job_id", id),
		slog.String("from", from),
		slog.String("to", to),
	)

	return id, nil
}
