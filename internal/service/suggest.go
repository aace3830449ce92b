package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/tour-guide-service/internal/llm"
	"github.com/kjstillabower/tour-guide-service/internal/models"
	"github.com/kjstillabower/tour-guide-service/internal/observability"
	"github.com/kjstillabower/tour-guide-service/internal/places"
)

// AttractionFinder is the encyclopedia fallback for suggestions.
type AttractionFinder interface {
	Find(ctx context.Context, city string, coords *models.Coordinates, limit int) []string
}

// SuggestionEngine asks a generative model for attractions and falls back to the encyclopedia.
type SuggestionEngine struct {
	chain  llm.Chain
	finder AttractionFinder
	logger *zap.Logger
}

// NewSuggestionEngine wires the model chain and the fallback finder.
func NewSuggestionEngine(chain llm.Chain, finder AttractionFinder, logger *zap.Logger) *SuggestionEngine {
	return &SuggestionEngine{chain: chain, finder: finder, logger: logger}
}

// Suggest returns up to five attraction names for city. It never fails: with no model, after
// exhausted attempts or on an unusable answer it returns the finder's list, possibly empty.
func (e *SuggestionEngine) Suggest(ctx context.Context, city string, w models.WeatherRecord) []string {
	prompt := suggestionPrompt(city, w)
	var format llm.PlacesFormat

	res := llm.Attempt(ctx, e.chain,
		func(ctx context.Context, m llm.Model) ([]string, error) {
			text, err := m.Generate(ctx, prompt)
			if err != nil {
				return nil, err
			}
			parsed := llm.ParsePlaces(text)
			if len(parsed.Names) == 0 {
				return nil, fmt.Errorf("%w: no place names in %s response", llm.ErrUnusable, parsed.Format)
			}
			format = parsed.Format
			return parsed.Names, nil
		},
		func(ctx context.Context, cause error) []string {
			observability.LoggerFrom(ctx, e.logger).Info("using encyclopedia attractions",
				zap.String("city", city),
				zap.NamedError("cause", cause),
			)
			return e.finder.Find(ctx, city, &w.Coordinates, places.DefaultLimit)
		},
	)

	source := "encyclopedia"
	if res.FromModel() {
		source = "model"
		if format == llm.FormatLines {
			source = "lines"
		}
	}
	observability.SuggestionsTotal.WithLabelValues(source).Inc()
	if res.Value == nil {
		return []string{}
	}
	return res.Value
}
