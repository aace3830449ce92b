package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/tour-guide-service/internal/circuitbreaker"
	"github.com/kjstillabower/tour-guide-service/internal/client"
	"github.com/kjstillabower/tour-guide-service/internal/config"
	httphandler "github.com/kjstillabower/tour-guide-service/internal/http"
	"github.com/kjstillabower/tour-guide-service/internal/lifecycle"
	"github.com/kjstillabower/tour-guide-service/internal/llm"
	"github.com/kjstillabower/tour-guide-service/internal/observability"
	"github.com/kjstillabower/tour-guide-service/internal/places"
	"github.com/kjstillabower/tour-guide-service/internal/service"
	"github.com/kjstillabower/tour-guide-service/internal/session"
	"github.com/kjstillabower/tour-guide-service/internal/traffic"
	"github.com/kjstillabower/tour-guide-service/internal/wiki"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	state := lifecycle.New()

	weatherBreaker := newBreaker(cfg, "weather_api", client.CountsAgainstUpstream)
	weatherClient, err := client.NewWttrClient(cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}
	weatherClient.SetCircuitBreaker(weatherBreaker)

	wikiBreaker := newBreaker(cfg, "encyclopedia", func(err error) bool {
		return !errors.Is(err, context.Canceled)
	})
	wikiClient, err := wiki.NewClient(cfg.WikiAPIURL, cfg.WikiRESTURL, cfg.WikiUserAgent,
		wiki.WithCircuitBreaker(wikiBreaker),
		wiki.WithTimeouts(cfg.WikiSearchTimeout, cfg.WikiGeoTimeout, cfg.WikiSummaryTimeout),
	)
	if err != nil {
		logger.Fatal("encyclopedia client", zap.Error(err))
	}

	var backend llm.Backend
	gemini, err := llm.NewGeminiBackend(context.Background(), cfg.GeminiAPIKey)
	switch {
	case err == nil:
		backend = gemini
		logger.Info("generative model enabled", zap.String("model_override", cfg.LLMModelOverride))
	case errors.Is(err, llm.ErrNoBackend):
		logger.Warn("GEMINI_API_KEY not set; suggestions use the encyclopedia and chat uses canned replies")
	default:
		logger.Warn("generative model unavailable; continuing without it", zap.Error(err))
	}
	selector := llm.NewSelector(backend, llm.SelectorConfig{
		Override:  cfg.LLMModelOverride,
		Preferred: cfg.LLMPreferredModels,
		Keywords:  cfg.LLMModelKeywords,
	}, logger)
	chain := llm.Chain{
		Source:   selector,
		Attempts: cfg.LLMAttempts,
		Timeout:  cfg.LLMTimeout,
		Logger:   logger,
	}

	store, err := session.New(session.Options{
		Backend:          cfg.SessionBackend,
		TTL:              cfg.SessionTTL,
		MemcachedAddrs:   cfg.MemcachedAddrs,
		MemcachedTimeout: cfg.MemcachedTimeout,
		MaxIdleConns:     cfg.MemcachedMaxIdleConns,
		RedisAddr:        cfg.RedisAddr,
		RedisPassword:    cfg.RedisPassword,
		RedisDB:          cfg.RedisDB,
	})
	if err != nil {
		logger.Fatal("session store", zap.Error(err))
	}
	logger.Info("session backend", zap.String("backend", cfg.SessionBackend), zap.Duration("ttl", cfg.SessionTTL))

	tourService := service.NewTourService(
		wiki.NewCityResolver(wikiClient, logger),
		weatherClient,
		service.NewSuggestionEngine(chain, places.NewFinder(wikiClient, cfg.PlacesKeywords, logger), logger),
		service.NewTourGuideChat(chain, logger),
		session.NewManager(store),
		logger,
	)

	tracker := traffic.NewTracker()
	healthConfig := &httphandler.HealthConfig{
		Thresholds: traffic.Thresholds{
			Window:           cfg.HealthWindow,
			OverloadRequests: cfg.OverloadRequests(),
			ErrorRate:        cfg.DegradedErrorRate(),
			MinRequests:      cfg.DegradedMinRequests,
		},
		Lifecycle: state,
		StorePing: func(ctx context.Context) error { return session.Ping(ctx, store) },
		Breakers: map[string]*circuitbreaker.Breaker{
			"weatherApi":   weatherBreaker,
			"encyclopedia": wikiBreaker,
		},
		ModelConfigured: backend != nil,
	}
	handler := httphandler.NewHandler(tourService, httphandler.Limits{
		CityMaxLen:    cfg.CityMaxLen,
		MessageMaxLen: cfg.MessageMaxLen,
	}, healthConfig, tracker, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	observability.RegisterRateLimitGauges(tracker, cfg.HealthWindow)
	if len(cfg.TrackedCities) > 0 {
		observability.SetTrackedCities(cfg.TrackedCities)
	}

	router := httphandler.NewRouter(handler, httphandler.RouterOptions{
		Logger:         logger,
		Limiter:        limiter,
		Tracker:        tracker,
		RequestTimeout: cfg.RequestTimeout,
		SessionTTL:     cfg.SessionTTL,
		SecureCookies:  cfg.SessionSecureCookies,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", ":"+cfg.ServerPort),
			zap.Bool("gemini_api_key_configured", cfg.GeminiAPIKey != ""),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered", zap.Duration("uptime", state.Uptime()))
	state.BeginShutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	if err := httphandler.WaitForInFlight(shutdownCtx, 50*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := session.Close(store); err != nil {
		logger.Error("session store close", zap.Error(err))
	}
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newBreaker builds a breaker that reports transitions to metrics. isFailure nil counts every error.
func newBreaker(cfg *config.Config, component string, isFailure func(error) bool) *circuitbreaker.Breaker {
	observability.CircuitBreakerState.WithLabelValues(component).Set(0)
	return circuitbreaker.New(circuitbreaker.Config{
		Component:        component,
		FailureThreshold: cfg.BreakerFailureThreshold,
		Cooldown:         cfg.BreakerCooldown,
		IsFailure:        isFailure,
		OnStateChange: func(component string, from, to circuitbreaker.State) {
			observability.RecordCircuitBreakerTransition(component, from.String(), to.String(), int(to))
		},
	})
}
