package worker

import (
	"context"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
)

// QueueClient is one exclusive connection to the work queue, bound to a
// single tube. Implementations are not required to be safe for concurrent
// use.
type QueueClient interface {
	// Reserve blocks until a job is available or ctx is done
	Reserve(ctx context.Context) (uint64, []byte, error)
	Put(ctx context.Context, body []byte, delay, ttr time.Duration) (uint64, error)
	Delete(ctx context.Context, id uint64) error
	Bury(ctx context.Context, id uint64) error
	Close() error
}

// Dialer opens a new queue connection. Each worker loop calls it once.
type Dialer func(ctx context.Context) (QueueClient, error)

// RateFetcher downloads the raw converter page for a pair
type RateFetcher interface {
	Fetch(ctx context.Context, from, to string) (string, error)
}

// RateStore persists rate samples; shared by all worker loops
type RateStore interface {
	SaveRate(ctx context.Context, result *domain.RateResult) error
}
