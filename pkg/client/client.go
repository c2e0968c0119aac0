// Package client defines the classifier boundary shared by all backends.
package client

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/menta2k/moji-recognizer/pkg/types"
)

var (
	// ErrClassifierUnavailable marks a family whose classifier could not be loaded
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrInferenceFailure marks any failure of a prediction call
	ErrInferenceFailure = errors.New("inference failure")
)

// Classifier maps a normalized tensor to a probability vector over its label table
type Classifier interface {
	Predict(ctx context.Context, t types.Tensor) ([]float64, error)
}

// Pinger is implemented by backends that can check their model is loaded
type Pinger interface {
	Ping(ctx context.Context) error
}

// Error carries the family and cause of a classifier failure.
// It matches ErrInferenceFailure or ErrClassifierUnavailable with errors.Is.
type Error struct {
	Family types.Family
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Family, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// InferenceFailure wraps err as an inference failure of family
func InferenceFailure(family types.Family, err error) error {
	return &Error{Family: family, Kind: ErrInferenceFailure, Err: errors.WithStack(err)}
}

// Unavailable wraps err as a loading failure of family
func Unavailable(family types.Family, err error) error {
	return &Error{Family: family, Kind: ErrClassifierUnavailable, Err: errors.WithStack(err)}
}

// Check probes a classifier once at startup. Backends without a Pinger are
// assumed ready. Any failure is reported as ErrClassifierUnavailable.
func Check(ctx context.Context, family types.Family, c Classifier) error {
	if c == nil {
		return Unavailable(family, errors.New("no backend configured"))
	}
	p, ok := c.(Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return Unavailable(family, err)
	}
	return nil
}

type guarded struct {
	family types.Family
	inner  Classifier
	n      int
}

// Guard wraps a backend so that nothing but a well-formed distribution of
// length n, or an ErrInferenceFailure, leaves a Predict call. Panics are
// recovered and the vector is renormalized to sum to 1.
func Guard(family types.Family, c Classifier, n int) Classifier {
	return &guarded{family: family, inner: c, n: n}
}

func (g *guarded) Predict(ctx context.Context, t types.Tensor) (probs []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			probs = nil
			err = InferenceFailure(g.family, errors.Errorf("classifier panicked: %v", r))
		}
	}()

	out, err := g.inner.Predict(ctx, t)
	if err != nil {
		return nil, InferenceFailure(g.family, err)
	}
	probs, err = Normalize(out, g.n)
	if err != nil {
		return nil, InferenceFailure(g.family, err)
	}
	return probs, nil
}

// Ping forwards to the wrapped backend when it supports it
func (g *guarded) Ping(ctx context.Context) error {
	if p, ok := g.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Normalize validates a raw output vector and rescales it to sum to 1
func Normalize(v []float64, n int) ([]float64, error) {
	if len(v) != n {
		return nil, errors.Errorf("expected %d probabilities, got %d", n, len(v))
	}
	var sum float64
	for i, p := range v {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, errors.Errorf("probability %d is not finite", i)
		}
		if p < 0 {
			return nil, errors.Errorf("probability %d is negative: %g", i, p)
		}
		sum += p
	}
	if sum <= 0 {
		return nil, errors.New("probabilities sum to zero")
	}

	out := make([]float64, n)
	for i, p := range v {
		out[i] = p / sum
	}
	return out, nil
}

// Func adapts a plain function to the Classifier interface
type Func func(ctx context.Context, t types.Tensor) ([]float64, error)

func (f Func) Predict(ctx context.Context, t types.Tensor) ([]float64, error) {
	return f(ctx, t)
}
