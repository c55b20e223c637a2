// Package chain runs an ordered list of fetchers until one succeeds.
package chain

import (
	"context"
	"errors"
	"fmt"
)

// ErrExhausted is returned when every step failed and there is no fallback.
var ErrExhausted = errors.New("all providers failed")

// Step is one attempt in a chain.
type Step[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, error)
}

// Chain tries Steps in order. When all fail, Fallback (if set and it
// reports ok) supplies the terminal value. A run stopped by ctx never uses
// Fallback and returns ctx's error.
type Chain[T any] struct {
	Steps    []Step[T]
	Fallback func() (T, bool)
	// OnError observes each failed step.
	OnError func(step string, err error)
}

// Result is the value of a successful run and the step that produced it.
// Step is "fallback" when the terminal generator was used.
type Result[T any] struct {
	Value T
	Step  string
}

const FallbackStep = "fallback"

func (c Chain[T]) Run(ctx context.Context) (Result[T], error) {
	var errs []error
	for _, s := range c.Steps {
		if ctx.Err() != nil {
			break
		}
		v, err := s.Fetch(ctx)
		if err == nil {
			return Result[T]{Value: v, Step: s.Name}, nil
		}
		if c.OnError != nil {
			c.OnError(s.Name, err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	if err := ctx.Err(); err != nil {
		return Result[T]{}, fmt.Errorf("chain stopped: %w", err)
	}
	if c.Fallback != nil {
		if v, ok := c.Fallback(); ok {
			return Result[T]{Value: v, Step: FallbackStep}, nil
		}
	}
	return Result[T]{}, fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
}
