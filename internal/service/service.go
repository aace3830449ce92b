// Package service holds the tour-guide use cases: city lookup with suggestions, and chat.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/tour-guide-service/internal/client"
	"github.com/kjstillabower/tour-guide-service/internal/models"
	"github.com/kjstillabower/tour-guide-service/internal/observability"
	"github.com/kjstillabower/tour-guide-service/internal/wiki"
)

var (
	// ErrNoCity is returned by Chat before any successful city lookup in the session.
	ErrNoCity = errors.New("no city selected")
	// ErrWeatherNotFound is returned when the weather provider has nothing for the city.
	ErrWeatherNotFound = errors.New("weather not found")
)

// CityResolver corrects a typed city name; ok=false keeps the input.
type CityResolver interface {
	ResolveCity(ctx context.Context, raw string) (title string, ok bool)
}

// Suggester produces attraction names for a city and its weather. It never fails.
type Suggester interface {
	Suggest(ctx context.Context, city string, w models.WeatherRecord) []string
}

// Chatter answers a message within a session, updating its transcript. It never fails.
type Chatter interface {
	Reply(ctx context.Context, s *models.Session, message string) string
}

// SessionManager is the slice of session.Manager the service needs.
type SessionManager interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error)
}

// CityResult is the answer to a city lookup.
type CityResult struct {
	Weather       models.WeatherRecord `json:"weather"`
	RequestedCity string               `json:"requested_city"`
	CorrectedCity *string              `json:"corrected_city"`
	Places        []string             `json:"places"`
}

// ChatResult is the answer to a chat message.
type ChatResult struct {
	Response string `json:"response"`
	City     string `json:"city"`
}

// TourService orchestrates resolver, weather, suggestions, chat and session state.
type TourService struct {
	resolver  CityResolver
	weather   client.WeatherClient
	suggester Suggester
	chat      Chatter
	sessions  SessionManager
	logger    *zap.Logger
}

// NewTourService wires the use cases.
func NewTourService(resolver CityResolver, weather client.WeatherClient, suggester Suggester, chat Chatter, sessions SessionManager, logger *zap.Logger) *TourService {
	return &TourService{
		resolver:  resolver,
		weather:   weather,
		suggester: suggester,
		chat:      chat,
		sessions:  sessions,
		logger:    logger,
	}
}

// LookupCity resolves rawCity, fetches its weather, resets the session to it and returns
// suggestions. The session keeps the city as typed; weather and suggestions use the corrected
// name when the resolver found a different one.
func (s *TourService) LookupCity(ctx context.Context, sessionID, rawCity string) (CityResult, error) {
	start := time.Now()
	logger := observability.LoggerFrom(ctx, s.logger)
	observability.RecordCityQuery(rawCity)

	queryCity := rawCity
	var corrected *string
	if title, ok := s.resolver.ResolveCity(ctx, rawCity); ok {
		if c := wiki.Corrected(rawCity, title); c != "" {
			queryCity = c
			corrected = &c
		}
	}

	rec, err := s.weather.GetCurrentWeather(ctx, queryCity)
	if err != nil {
		logger.Info("weather lookup failed",
			zap.String("city", rawCity),
			zap.String("query_city", queryCity),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err),
		)
		return CityResult{}, fmt.Errorf("%w: %s: %w", ErrWeatherNotFound, rawCity, err)
	}

	if _, err := s.sessions.Update(ctx, sessionID, func(sess *models.Session) error {
		sess.SetCity(rawCity, rec)
		return nil
	}); err != nil {
		return CityResult{}, fmt.Errorf("store city: %w", err)
	}

	placeNames := s.suggester.Suggest(ctx, queryCity, rec)
	logger.Debug("city served",
		zap.String("city", rawCity),
		zap.String("query_city", queryCity),
		zap.Int("places", len(placeNames)),
		zap.Duration("duration", time.Since(start)),
	)
	return CityResult{
		Weather:       rec,
		RequestedCity: rawCity,
		CorrectedCity: corrected,
		Places:        placeNames,
	}, nil
}

// Chat answers message in the context of the session's city. ErrNoCity when none is set.
func (s *TourService) Chat(ctx context.Context, sessionID, message string) (ChatResult, error) {
	var out ChatResult
	_, err := s.sessions.Update(ctx, sessionID, func(sess *models.Session) error {
		if !sess.HasCity() {
			return ErrNoCity
		}
		out = ChatResult{Response: s.chat.Reply(ctx, sess, message), City: sess.City}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoCity) {
			return ChatResult{}, err
		}
		return ChatResult{}, fmt.Errorf("chat: %w", err)
	}
	return out, nil
}

// ClearChat drops the session transcript, keeping city and weather.
func (s *TourService) ClearChat(ctx context.Context, sessionID string) error {
	_, err := s.sessions.Update(ctx, sessionID, func(sess *models.Session) error {
		sess.ClearTranscript()
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear chat: %w", err)
	}
	return nil
}

// Session returns the current session state.
func (s *TourService) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}
