package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/tour-guide-service/internal/llm"
	"github.com/kjstillabower/tour-guide-service/internal/models"
	"github.com/kjstillabower/tour-guide-service/internal/observability"
)

// TourGuideChat answers follow-up questions about the session's city and weather.
type TourGuideChat struct {
	chain  llm.Chain
	logger *zap.Logger
}

// NewTourGuideChat wires the model chain.
func NewTourGuideChat(chain llm.Chain, logger *zap.Logger) *TourGuideChat {
	return &TourGuideChat{chain: chain, logger: logger}
}

// Reply appends message and the answer to the session transcript and returns the answer. It
// never fails: without a model it answers with a weather tip, and internal faults become an
// apology.
func (c *TourGuideChat) Reply(ctx context.Context, s *models.Session, message string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			observability.LoggerFrom(ctx, c.logger).Error("chat panicked", zap.Any("panic", r))
			observability.ChatRepliesTotal.WithLabelValues("error").Inc()
			reply = apology(fmt.Errorf("%v", r))
		}
	}()
	if !s.HasCity() {
		observability.ChatRepliesTotal.WithLabelValues("error").Inc()
		return apology(ErrNoCity)
	}

	s.Append(models.RoleUser, message)
	parts := make([]string, 0, len(s.Transcript)+1)
	parts = append(parts, chatContext(s.City, *s.Weather))
	for _, turn := range s.Transcript {
		parts = append(parts, turn.Content)
	}

	res := llm.Attempt(ctx, c.chain,
		func(ctx context.Context, m llm.Model) (string, error) {
			return m.Generate(ctx, parts...)
		},
		func(ctx context.Context, cause error) string {
			observability.LoggerFrom(ctx, c.logger).Info("using canned chat reply",
				zap.String("city", s.City),
				zap.NamedError("cause", cause),
			)
			return cannedReply(s.City, s.Weather.Description)
		},
	)

	source := "canned"
	if res.FromModel() {
		source = "model"
	}
	observability.ChatRepliesTotal.WithLabelValues(source).Inc()
	s.Append(models.RoleAssistant, res.Value)
	return res.Value
}
