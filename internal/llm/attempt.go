package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/tour-guide-service/internal/observability"
)

// DefaultAttempts is the number of model calls made before falling back.
const DefaultAttempts = 3

// Chain configures Attempt.
type Chain struct {
	Source   ModelSource
	Attempts int
	// Timeout bounds each model call. Zero means only the caller's context applies.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Result is what Attempt produced and where it came from.
type Result[T any] struct {
	Value T
	// Model is the name that produced Value, empty when the fallback did.
	Model string
	// Cause is the last error seen before falling back.
	Cause error
}

// FromModel reports whether a model produced the value.
func (r Result[T]) FromModel() bool { return r.Model != "" }

// Attempt runs action against a selected model up to c.Attempts times. After an error the model
// is reselected, skipping every name that already failed. ErrUnusable from action ends the chain
// at once. When no model is available or the chain ends without a value, fallback produces it.
func Attempt[T any](ctx context.Context, c Chain, action func(context.Context, Model) (T, error), fallback func(context.Context, error) T) Result[T] {
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	logger := observability.LoggerFrom(ctx, c.Logger)

	var (
		tried []string
		cause error
		model Model
	)
	if c.Source == nil {
		cause = ErrNoBackend
	}
	for i := 0; i < attempts && c.Source != nil; i++ {
		if model == nil {
			m, err := c.Source.Select(ctx, tried)
			if err != nil {
				if cause == nil {
					cause = err
				}
				break
			}
			model = m
		}

		v, err := callModel(ctx, c.Timeout, model, action)
		if err == nil {
			return Result[T]{Value: v, Model: model.Name()}
		}
		cause = err
		if errors.Is(err, ErrUnusable) {
			logger.Info("model response unusable", zap.String("model", model.Name()), zap.Error(err))
			break
		}
		logger.Warn("model call failed",
			zap.String("model", model.Name()),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
		tried = append(tried, model.Name())
		model = nil
	}
	return Result[T]{Value: fallback(ctx, cause), Cause: cause}
}

func callModel[T any](ctx context.Context, timeout time.Duration, m Model, action func(context.Context, Model) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	v, err := action(ctx, m)
	observability.ModelCallDuration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		observability.ModelCallsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, ErrUnusable):
		observability.ModelCallsTotal.WithLabelValues("unusable").Inc()
	default:
		observability.ModelCallsTotal.WithLabelValues("error").Inc()
	}
	return v, err
}
