package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cuongbtq/xe-rate-worker/internal/api/model"
	"github.com/cuongbtq/xe-rate-worker/internal/api/storage"
)

// RateStorage reads stored rate samples
type RateStorage interface {
	ListRates(ctx context.Context, filter storage.RateFilter) ([]model.Rate, error)
	Ping(ctx context.Context) error
}

// JobEnqueuer puts rate jobs on the work queue
type JobEnqueuer interface {
	Enqueue(ctx context.Context, from, to string, extra map[string]json.RawMessage) (uint64, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger   *slog.Logger
	Storage  RateStorage
	Producer JobEnqueuer
}

// RateHandler handles rate-related HTTP requests
type RateHandler struct {
	logger   *slog.Logger
	storage  RateStorage
	producer JobEnqueuer
}

// NewRateHandler creates a new RateHandler instance
func NewRateHandler(deps *Dependencies) *RateHandler {
	return &RateHandler{
		logger:   deps.Logger,
		storage:  deps.Storage,
		producer: deps.Producer,
	}
}
