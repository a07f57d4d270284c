package domain

import (
	"fmt"
	"time"
)

// Action is what happens to a reserved job after one processing cycle
type Action int

const (
	// ActionDelete removes the job for good
	ActionDelete Action = iota
	// ActionRequeue puts the updated payload back with a delay, then deletes the original
	ActionRequeue
	// ActionBury parks the job out of rotation for manual review
	ActionBury
)

func (a Action) String() string {
	switch a {
	case ActionDelete:
		return "delete"
	case ActionRequeue:
		return "requeue"
	case ActionBury:
		return "bury"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Outcome is the result of one processing cycle
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "failure"
}

// Policy holds the success and failure budgets of every job
type Policy struct {
	SuccessDelay  time.Duration
	SuccessTarget uint
	FailedDelay   time.Duration
	FailedLimit   uint
	TTR           time.Duration
}

// Decision is the lifecycle verdict for one cycle
type Decision struct {
	Action Action
	Delay  time.Duration
}

// ApplyOutcome advances the counters of p for outcome and decides the
// job's fate. p is not modified; the returned payload carries the new
// counters. It does no I/O.
//
// Success: success_attempt+1, requeue with SuccessDelay until the target
// is reached, then delete. Failure: failed_attempt+1, requeue with
// FailedDelay until the limit is reached, then bury. Every failure kind
// shares the one failure budget.
func ApplyOutcome(p *Payload, outcome Outcome, policy Policy) (*Payload, Decision) {
	next := p.Clone()

	switch outcome {
	case OutcomeSuccess:
		next.SuccessAttempt++
		if next.SuccessAttempt < policy.SuccessTarget {
			return next, Decision{Action: ActionRequeue, Delay: policy.SuccessDelay}
		}
		return next, Decision{Action: ActionDelete}
	default:
		next.FailedAttempt++
		if next.FailedAttempt < policy.FailedLimit {
			return next, Decision{Action: ActionRequeue, Delay: policy.FailedDelay}
		}
		return next, Decision{Action: ActionBury}
	}
}
