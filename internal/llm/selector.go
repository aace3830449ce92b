package llm

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/tour-guide-service/internal/observability"
)

// Default candidate lists.
var (
	DefaultPreferredModels = []string{
		"gemini-1.5-flash",
		"gemini-1.5",
		"gemini-1.0",
		"text-bison-001",
		"gpt-4o-mini",
	}
	DefaultModelKeywords = []string{"gemini", "bison", "gpt", "gpt-4", "gpt-4o"}
)

// SelectorConfig drives candidate order.
type SelectorConfig struct {
	// Override is tried first and alone, e.g. from GEMINI_MODEL.
	Override  string
	Preferred []string
	// Keywords filter the live listing, matched case-insensitively as substrings.
	Keywords []string
}

// ModelSource hands out a usable model, skipping names that already failed.
type ModelSource interface {
	Select(ctx context.Context, skip []string) (Model, error)
}

// Selector walks override, preference list, then live listing. Nothing is cached between calls.
type Selector struct {
	backend Backend
	cfg     SelectorConfig
	logger  *zap.Logger
}

// NewSelector returns a selector over backend. A nil backend makes every Select fail with
// ErrNoBackend. Empty lists take the defaults.
func NewSelector(backend Backend, cfg SelectorConfig, logger *zap.Logger) *Selector {
	if len(cfg.Preferred) == 0 {
		cfg.Preferred = DefaultPreferredModels
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = DefaultModelKeywords
	}
	return &Selector{backend: backend, cfg: cfg, logger: logger}
}

// Select returns the first candidate the backend can construct.
func (s *Selector) Select(ctx context.Context, skip []string) (Model, error) {
	if s.backend == nil {
		observability.ModelSelectionsTotal.WithLabelValues("none").Inc()
		return nil, ErrNoBackend
	}
	logger := observability.LoggerFrom(ctx, s.logger)

	if name := strings.TrimSpace(s.cfg.Override); name != "" && !slices.Contains(skip, name) {
		m, err := s.backend.Model(ctx, name)
		if err == nil {
			return s.picked(logger, m, "override"), nil
		}
		logger.Warn("configured model not available", zap.String("model", name), zap.Error(err))
	}

	for _, name := range s.cfg.Preferred {
		if slices.Contains(skip, name) {
			continue
		}
		if m, err := s.backend.Model(ctx, name); err == nil {
			return s.picked(logger, m, "preferred"), nil
		}
	}

	names, err := s.backend.ListModels(ctx)
	if err != nil {
		logger.Warn("listing models failed", zap.Error(err))
	}
	for _, name := range names {
		if slices.Contains(skip, name) || !s.keywordMatch(name) {
			continue
		}
		if m, err := s.backend.Model(ctx, name); err == nil {
			return s.picked(logger, m, "listed"), nil
		}
	}

	observability.ModelSelectionsTotal.WithLabelValues("none").Inc()
	return nil, ErrNoModel
}

func (s *Selector) keywordMatch(name string) bool {
	lname := strings.ToLower(name)
	for _, k := range s.cfg.Keywords {
		if k != "" && strings.Contains(lname, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func (s *Selector) picked(logger *zap.Logger, m Model, source string) Model {
	observability.ModelSelectionsTotal.WithLabelValues(source).Inc()
	logger.Debug("generative model selected", zap.String("model", m.Name()), zap.String("source", source))
	return m
}
