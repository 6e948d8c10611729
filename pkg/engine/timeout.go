package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultEvalTimeout is the hard limit for a single evaluation.
const DefaultEvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine timeout.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrPanic is returned when the interpreter panics.
	ErrPanic = errors.New("engine: panic during evaluation")
)

// evalResult is the internal type used to pass evaluation results through channels.
type evalResult struct {
	result *EvalResult
	err    error
}

// waitWithTimeout waits for a result from ch, returning ErrTimeout if the
// evaluation exceeds timeout or the context error if ctx ends first.
func waitWithTimeout(ctx context.Context, ch <-chan evalResult, timeout time.Duration) (*EvalResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.result, res.err
	case <-timer.C:
		return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("evaluation cancelled: %w", ctx.Err())
	}
}
