package optimization

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the optimization engine. Handlers map
// ErrInsufficientData and ErrInfeasibleTarget to client errors; everything
// else is a server-side failure.
var (
	// ErrInsufficientData indicates too few aligned observations or an empty
	// asset set. Never retried.
	ErrInsufficientData = errors.New("insufficient price data")

	// ErrInfeasibleTarget indicates a target return outside the achievable
	// range for the asset set.
	ErrInfeasibleTarget = errors.New("target return not achievable")

	// ErrNumeric guards against NaN propagation and negative radicands from
	// malformed covariance matrices. Always fatal, never clamped (the
	// near-zero-volatility Sharpe clamp is the single documented exception).
	ErrNumeric = errors.New("numeric error")
)

// OptimizationError wraps a solver failure on a well-posed problem, carrying
// the underlying diagnostic.
type OptimizationError struct {
	Diagnostic string
	Err        error
}

func (e *OptimizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("optimization failed: %s: %v", e.Diagnostic, e.Err)
	}
	return fmt.Sprintf("optimization failed: %s", e.Diagnostic)
}

func (e *OptimizationError) Unwrap() error {
	return e.Err
}
