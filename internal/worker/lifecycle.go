package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
)

// handleJob runs one full cycle for a reserved job: decode, process,
// decide and apply the decision. Nothing escapes a cycle; failures are
// logged and end up on the failure branch of the lifecycle.
func (w *Worker) handleJob(ctx context.Context, queue QueueClient, job *domain.Job, logger *slog.Logger) {
	start := time.Now()
	logger = logger.With(slog.Uint64("job_id", job.ID))

	payload, err := domain.DecodePayload(job.Body)
	if err != nil {
		// counters cannot be rewritten into a body we cannot decode
		logger.Error("Malformed job payload, burying",
			slog.Any("error", err),
			slog.String("body", string(job.Body)),
		)
		if err := w.applyDecision(ctx, queue, job, nil, domain.Decision{Action: domain.ActionBury}); err != nil {
			logger.Error("Failed to bury malformed job", slog.Any("error", err))
		}
		w.metrics.RecordCycle(domain.OutcomeFailure.String(), domain.StageDecode, time.Since(start))
		return
	}

	logger = logger.With(
		slog.String("from", payload.From),
		slog.String("to", payload.To),
	)

	outcome, stage := domain.OutcomeSuccess, domain.StageComplete
	result, err := w.processJob(ctx, payload)
	if err != nil {
		outcome, stage = domain.OutcomeFailure, domain.StageOf(err)
		logger.Warn("Job cycle failed",
			slog.String("stage", stage),
			slog.Any("error", err),
			slog.Uint64("failed_attempt", uint64(payload.FailedAttempt)+1),
		)
	} else {
		logger.Info("Rate stored",
			slog.String("rate", result.Rate),
			slog.Uint64("success_attempt", uint64(payload.SuccessAttempt)+1),
		)
	}

	next, decision := domain.ApplyOutcome(payload, outcome, w.policy)
	if err := w.applyDecision(ctx, queue, job, next, decision); err != nil {
		logger.Error("Failed to apply lifecycle decision",
			slog.String("action", decision.Action.String()),
			slog.Any("error", err),
		)
	} else {
		logger.Info("Lifecycle decision applied",
			slog.String("action", decision.Action.String()),
			slog.Duration("delay", decision.Delay),
		)
	}

	w.metrics.RecordCycle(outcome.String(), stage, time.Since(start))
}

// applyDecision performs the queue side of a decision. A requeue puts the
// updated copy first and deletes the reserved original second; the two
// steps are not atomic, so a failure in between leaves both copies alive.
// When the put fails the original is left reserved and the queue hands it
// out again once its time-to-run expires.
func (w *Worker) applyDecision(ctx context.Context, queue QueueClient, job *domain.Job, next *domain.Payload, decision domain.Decision) error {
	switch decision.Action {
	case domain.ActionRequeue:
		body, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		if _, err := queue.Put(ctx, body, decision.Delay, w.policy.TTR); err != nil {
			w.metrics.RecordQueueError("put")
			return fmt.Errorf("failed to requeue job %d: %w", job.ID, err)
		}
		if err := queue.Delete(ctx, job.ID); err != nil {
			w.metrics.RecordQueueError("delete")
			return fmt.Errorf("requeued copy is live but original job %d was not deleted: %w", job.ID, err)
		}

	case domain.ActionDelete:
		if err := queue.Delete(ctx, job.ID); err != nil {
			w.metrics.RecordQueueError("delete")
			return fmt.Errorf("failed to delete job %d: %w", job.ID, err)
		}

	case domain.ActionBury:
		if err := queue.Bury(ctx, job.ID); err != nil {
			w.metrics.RecordQueueError("bury")
			return fmt.Errorf("failed to bury job %d: %w", job.ID, err)
		}

	default:
		return fmt.Errorf("unknown lifecycle action %s", decision.Action)
	}

	w.metrics.RecordAction(decision.Action.String())
	return nil
}
