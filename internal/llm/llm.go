// Package llm selects a generative model and runs prompts against it with reselection and fallback.
package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoModel is returned when no candidate model could be constructed.
	ErrNoModel = errors.New("no generative model available")
	// ErrNoBackend is returned when no backend is configured, typically a missing API key.
	ErrNoBackend = fmt.Errorf("%w: backend not configured", ErrNoModel)
	// ErrUnusable marks a response that arrived but carried nothing usable. The attempt chain
	// stops on it instead of reselecting.
	ErrUnusable = errors.New("model response unusable")
)

// Backend is a generative-model provider.
type Backend interface {
	// Model returns a handle for name. Any error means the model cannot be used.
	Model(ctx context.Context, name string) (Model, error)
	// ListModels returns the names of every model the provider exposes.
	ListModels(ctx context.Context) ([]string, error)
}

// Model generates text from an ordered list of prompt parts.
type Model interface {
	Name() string
	Generate(ctx context.Context, parts ...string) (string, error)
}
