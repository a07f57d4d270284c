package worker

import (
	"context"

	"github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
	"github.com/cuongbtq/xe-rate-worker/internal/worker/rate"
)

// processJob fetches, extracts and stores one rate sample for payload.
// Any error is a *domain.StageError naming the stage that failed.
func (w *Worker) processJob(ctx context.Context, payload *domain.Payload) (*domain.RateResult, error) {
	raw, err := w.fetcher.Fetch(ctx, payload.From, payload.To)
	if err != nil {
		return nil, domain.NewStageError(domain.StageFetch, err)
	}

	result, err := rate.Extract(raw, payload.From, payload.To)
	if err != nil {
		return nil, domain.NewStageError(domain.StageExtract, err)
	}

	if err := w.storage.SaveRate(ctx, result); err != nil {
		return nil, domain.NewStageError(domain.StagePersist, err)
	}
	w.metrics.RecordRateSaved()

	return result, nil
}
