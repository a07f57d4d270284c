package domain

import "errors"

var (
	// ErrConnection is returned when the queue or the store is unreachable at startup
	ErrConnection = errors.New("connection failed")

	// ErrReserve is returned when reserving a job fails after the queue connection is up
	ErrReserve = errors.New("reserve failed")

	// ErrInvalidPayload is returned when job payload JSON is malformed
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrInvalidCurrency is returned when a currency code is not exactly 3 characters
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrFetchTimeout is returned when the rate request socket stays idle too long
	ErrFetchTimeout = errors.New("fetch timeout")

	// ErrFetchNetwork is returned for transport failures other than the idle timeout
	ErrFetchNetwork = errors.New("fetch network error")

	// ErrParse is returned when the response does not contain the rate template
	ErrParse = errors.New("cannot parse currency rate")

	// ErrMismatch is returned when the response quotes a different pair than requested
	ErrMismatch = errors.New("currency pair mismatch")

	// ErrPersist is returned when the rate cannot be written to the store
	ErrPersist = errors.New("cannot persist rate")
)

// StageError tags an error with the processing stage it came from.
// Every stage error ends up on the failure branch of the lifecycle.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with stage; nil stays nil
func NewStageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage an error was tagged with, or "" when untagged
func StageOf(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}
