package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/c360studio/execoach/coach"
)

// ErrNoStructuredOutput is returned when no JSON object could be recovered
// from the model's reply and the operation has no local fallback.
var ErrNoStructuredOutput = errors.New("no structured output in model response")

// OperationError wraps any failure that happened after the model was
// invoked. The message carries the operation and the original error text.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return "failed to " + strings.ReplaceAll(e.Op, "_", " ") + ": " + e.Err.Error()
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Outcome classifies an operation error for metrics:
// ok, precondition, invalid, extraction_failure, canceled, model_error or error.
func Outcome(err error) string {
	var opErr *OperationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, coach.ErrProfileRequired), errors.Is(err, coach.ErrPlanNotFound):
		return "precondition"
	case errors.Is(err, coach.ErrInvalid):
		return "invalid"
	case errors.Is(err, ErrNoStructuredOutput):
		return "extraction_failure"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &opErr):
		return "model_error"
	default:
		return "error"
	}
}
