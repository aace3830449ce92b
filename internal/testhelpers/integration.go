//go:build integration
// +build integration

package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/tour-guide-service/internal/client"
	"github.com/kjstillabower/tour-guide-service/internal/llm"
	"github.com/kjstillabower/tour-guide-service/internal/places"
	"github.com/kjstillabower/tour-guide-service/internal/service"
	"github.com/kjstillabower/tour-guide-service/internal/session"
	"github.com/kjstillabower/tour-guide-service/internal/wiki"
)

// IntegrationTestConfig holds configuration for live tests.
type IntegrationTestConfig struct {
	WeatherURL     string
	WikiAPIURL     string
	WikiRESTURL    string
	GeminiAPIKey   string // empty runs without a model
	SessionBackend string // "in_memory", "memcached" or "redis"
	MemcachedAddr  string
	RedisAddr      string
}

// GetIntegrationConfig reads live-test settings from the environment. Skips unless
// INTEGRATION_LIVE=1, since every test here reaches public services.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	if os.Getenv("INTEGRATION_LIVE") != "1" {
		t.Skip("INTEGRATION_LIVE not set, skipping live integration test")
	}
	return IntegrationTestConfig{
		WeatherURL:     envOr("WEATHER_API_URL", "https://wttr.in"),
		WikiAPIURL:     envOr("WIKI_API_URL", "https://en.wikipedia.org/w/api.php"),
		WikiRESTURL:    envOr("WIKI_REST_URL", "https://en.wikipedia.org/api/rest_v1"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		SessionBackend: os.Getenv("INTEGRATION_SESSION_BACKEND"),
		MemcachedAddr:  envOr("MEMCACHED_ADDRS", "localhost:11211"),
		RedisAddr:      envOr("REDIS_ADDR", "localhost:6379"),
	}
}

// SetupIntegrationService builds a TourService against the live providers. The returned
// cleanup closes the session store.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.TourService, func()) {
	t.Helper()
	logger := zap.NewNop()

	weather, err := client.NewWttrClient(cfg.WeatherURL, 10*time.Second)
	if err != nil {
		t.Fatalf("NewWttrClient() error = %v", err)
	}
	enc, err := wiki.NewClient(cfg.WikiAPIURL, cfg.WikiRESTURL, "tour-guide-service/integration-test")
	if err != nil {
		t.Fatalf("wiki.NewClient() error = %v", err)
	}

	var backend llm.Backend
	if cfg.GeminiAPIKey != "" {
		gb, err := llm.NewGeminiBackend(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			t.Fatalf("NewGeminiBackend() error = %v", err)
		}
		backend = gb
	}
	chain := llm.Chain{
		Source:   llm.NewSelector(backend, llm.SelectorConfig{}, logger),
		Attempts: llm.DefaultAttempts,
		Timeout:  30 * time.Second,
		Logger:   logger,
	}

	store, err := session.New(session.Options{
		Backend:        cfg.SessionBackend,
		TTL:            time.Minute,
		MemcachedAddrs: cfg.MemcachedAddr,
		RedisAddr:      cfg.RedisAddr,
	})
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	if err := session.Ping(context.Background(), store); err != nil {
		t.Skipf("session backend %q unreachable: %v", cfg.SessionBackend, err)
	}

	svc := service.NewTourService(
		wiki.NewCityResolver(enc, logger),
		weather,
		service.NewSuggestionEngine(chain, places.NewFinder(enc, nil, logger), logger),
		service.NewTourGuideChat(chain, logger),
		session.NewManager(store),
		logger,
	)
	return svc, func() { _ = session.Close(store) }
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
