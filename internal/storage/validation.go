package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/fraud-detection/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidRun       = errors.New("invalid run")
	ErrInvalidIteration = errors.New("invalid iteration")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun validates a run before it is written.
func validateRun(run *model.Run) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	if run.State == "" {
		return fmt.Errorf("%w: missing state", ErrInvalidRun)
	}
	if run.MinimumAccuracy < 0 || run.MinimumAccuracy > 1 {
		return fmt.Errorf("%w: minimum accuracy %v outside [0,1]", ErrInvalidRun, run.MinimumAccuracy)
	}
	return nil
}

// validateIteration validates an iteration before it is written.
func validateIteration(iteration *model.Iteration) error {
	if iteration == nil {
		return fmt.Errorf("%w: iteration", ErrNilParameter)
	}
	if strings.TrimSpace(iteration.RunID) == "" {
		return fmt.Errorf("%w: missing run ID", ErrInvalidIteration)
	}
	if iteration.Number < 1 {
		return fmt.Errorf("%w: number must be positive, got %d", ErrInvalidIteration, iteration.Number)
	}
	switch iteration.Source {
	case model.SourceTrained, model.SourceLoaded:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidIteration, iteration.Source)
	}
	return nil
}
