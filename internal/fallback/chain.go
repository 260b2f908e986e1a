// Package fallback runs ordered strategy attempts until one succeeds.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrExhausted is returned when every strategy in a chain failed.
var ErrExhausted = errors.New("all strategies failed")

// Attempt is one strategy of a chain.
type Attempt[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Failure records why a strategy was abandoned.
type Failure struct {
	Strategy string
	Err      error
}

// Outcome describes how a chain resolved.
type Outcome[T any] struct {
	Value    T
	Strategy string
	Failures []Failure
}

// Succeeded reports whether any strategy produced a value.
func (o Outcome[T]) Succeeded() bool {
	return o.Strategy != ""
}

// Run tries each attempt in order and stops at the first success. A single
// failed attempt is terminal for that strategy; nothing is retried.
func Run[T any](ctx context.Context, logger *slog.Logger, attempts ...Attempt[T]) (Outcome[T], error) {
	if logger == nil {
		logger = slog.Default()
	}
	var out Outcome[T]
	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			out.Failures = append(out.Failures, Failure{Strategy: attempt.Name, Err: err})
			break
		}
		value, err := attempt.Run(ctx)
		if err == nil {
			out.Value = value
			out.Strategy = attempt.Name
			return out, nil
		}
		logger.Debug("strategy failed", "strategy", attempt.Name, "error", err)
		out.Failures = append(out.Failures, Failure{Strategy: attempt.Name, Err: err})
	}
	return out, out.err()
}

func (o Outcome[T]) err() error {
	if len(o.Failures) == 0 {
		return ErrExhausted
	}
	errs := make([]error, 0, len(o.Failures)+1)
	errs = append(errs, ErrExhausted)
	for _, f := range o.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Strategy, f.Err))
	}
	return errors.Join(errs...)
}
