package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/tour-guide-service/internal/circuitbreaker"
	"github.com/kjstillabower/tour-guide-service/internal/client"
	"github.com/kjstillabower/tour-guide-service/internal/lifecycle"
	"github.com/kjstillabower/tour-guide-service/internal/models"
	"github.com/kjstillabower/tour-guide-service/internal/observability"
	"github.com/kjstillabower/tour-guide-service/internal/service"
	"github.com/kjstillabower/tour-guide-service/internal/traffic"
	"github.com/kjstillabower/tour-guide-service/internal/validation"
)

const maxBodyBytes = 64 << 10

// TourGuide is the use-case surface the handlers call.
type TourGuide interface {
	LookupCity(ctx context.Context, sessionID, rawCity string) (service.CityResult, error)
	Chat(ctx context.Context, sessionID, message string) (service.ChatResult, error)
	ClearChat(ctx context.Context, sessionID string) error
	Session(ctx context.Context, sessionID string) (*models.Session, error)
}

// Limits bounds user input. Zero disables a bound.
type Limits struct {
	CityMaxLen    int
	MessageMaxLen int
}

// HealthConfig holds what /health reports on.
type HealthConfig struct {
	Thresholds traffic.Thresholds
	Lifecycle  *lifecycle.State
	// StorePing, when set, checks session store reachability.
	StorePing func(ctx context.Context) error
	// Breakers by component name; an open breaker marks the check unhealthy.
	Breakers map[string]*circuitbreaker.Breaker
	// ModelConfigured is false when no generative backend is available.
	ModelConfigured bool
	Version         string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	guide            TourGuide
	limits           Limits
	healthConfig     *HealthConfig
	tracker          *traffic.Tracker
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. A nil tracker disables outcome recording.
func NewHandler(guide TourGuide, limits Limits, healthConfig *HealthConfig, tracker *traffic.Tracker, logger *zap.Logger) *Handler {
	if healthConfig == nil {
		healthConfig = &HealthConfig{}
	}
	return &Handler{
		guide:        guide,
		limits:       limits,
		healthConfig: healthConfig,
		tracker:      tracker,
		logger:       logger,
	}
}

type weatherRequest struct {
	City string `json:"city"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// PostWeather handles POST /api/weather.
func (h *Handler) PostWeather(w http.ResponseWriter, r *http.Request) {
	var req weatherRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return
	}
	city, err := validation.ValidateCity(req.City, h.limits.CityMaxLen)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", cityErrorMessage(err))
		return
	}

	ctx := r.Context()
	res, err := h.guide.LookupCity(ctx, SessionID(ctx), city)
	if err != nil {
		if errors.Is(err, service.ErrWeatherNotFound) {
			// a missing city is the caller's problem; an unreachable provider is ours
			h.record(outcomeFor(!client.CountsAgainstUpstream(err)))
			writeError(w, r, http.StatusNotFound, "CITY_NOT_FOUND", fmt.Sprintf("Could not find weather data for %s", city))
			return
		}
		h.record(traffic.Failure)
		h.internalError(w, r, "city lookup failed", err)
		return
	}
	h.record(traffic.Success)
	writeJSON(w, http.StatusOK, res)
}

// PostChat handles POST /api/chat.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return
	}
	ctx := r.Context()
	sid := SessionID(ctx)

	message, verr := validation.ValidateMessage(req.Message, h.limits.MessageMaxLen)
	if verr != nil {
		// a missing city is reported ahead of a missing message
		sess, err := h.guide.Session(ctx, sid)
		if err != nil {
			h.record(traffic.Failure)
			h.internalError(w, r, "session load failed", err)
			return
		}
		if !sess.HasCity() {
			writeError(w, r, http.StatusBadRequest, "NO_CITY", "Please enter a city first")
			return
		}
		writeError(w, r, http.StatusBadRequest, "INVALID_MESSAGE", messageErrorMessage(verr))
		return
	}

	res, err := h.guide.Chat(ctx, sid, message)
	if err != nil {
		if errors.Is(err, service.ErrNoCity) {
			writeError(w, r, http.StatusBadRequest, "NO_CITY", "Please enter a city first")
			return
		}
		h.record(traffic.Failure)
		h.internalError(w, r, "chat failed", err)
		return
	}
	h.record(traffic.Success)
	writeJSON(w, http.StatusOK, res)
}

// PostClear handles POST /api/clear.
func (h *Handler) PostClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.guide.ClearChat(ctx, SessionID(ctx)); err != nil {
		h.record(traffic.Failure)
		h.internalError(w, r, "clear chat failed", err)
		return
	}
	h.record(traffic.Success)
	writeJSON(w, http.StatusOK, map[string]string{"status": "Chat cleared"})
}

type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result, counts := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	for name, b := range h.healthConfig.Breakers {
		if b.State() == circuitbreaker.StateOpen {
			checks[name] = "unhealthy"
		} else {
			checks[name] = "healthy"
		}
	}
	if h.healthConfig.StorePing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		if h.healthConfig.StorePing(ctx) == nil {
			checks["sessionStore"] = "healthy"
		} else {
			checks["sessionStore"] = "unhealthy"
		}
		cancel()
	}
	if h.healthConfig.ModelConfigured {
		checks["generativeModel"] = "configured"
	} else {
		checks["generativeModel"] = "disabled"
	}

	version := h.healthConfig.Version
	if version == "" {
		version = "dev"
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":  result.status,
		"service": "tour-guide-service",
		"version": version,
		"checks":  checks,
		"traffic": map[string]int{
			"successes": counts.Successes,
			"failures":  counts.Failures,
			"denials":   counts.Denials,
		},
		"uptimeSeconds": int64(h.healthConfig.Lifecycle.Uptime().Seconds()),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates, in order: shutting-down, overloaded, degraded, healthy.
func (h *Handler) computeHealthStatus() (healthResult, traffic.Counts) {
	if h.healthConfig.Lifecycle.ShuttingDown() {
		return healthResult{traffic.StatusShuttingDown, http.StatusServiceUnavailable, "signal"}, traffic.Counts{}
	}
	if h.tracker == nil {
		return healthResult{traffic.StatusHealthy, http.StatusOK, ""}, traffic.Counts{}
	}
	status, counts := h.tracker.Assess(h.healthConfig.Thresholds)
	switch status {
	case traffic.StatusOverloaded:
		return healthResult{status, http.StatusServiceUnavailable, "overload_threshold"}, counts
	case traffic.StatusDegraded:
		return healthResult{status, http.StatusServiceUnavailable, "error_rate_breach"}, counts
	default:
		return healthResult{status, http.StatusOK, ""}, counts
	}
}

func (h *Handler) record(o traffic.Outcome) {
	if h.tracker != nil {
		h.tracker.Record(o)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	observability.LoggerFrom(r.Context(), h.logger).Error(msg, zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

func outcomeFor(ok bool) traffic.Outcome {
	if ok {
		return traffic.Success
	}
	return traffic.Failure
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func cityErrorMessage(err error) string {
	switch {
	case errors.Is(err, validation.ErrCityTooLong):
		return "City name is too long"
	default:
		return "City name is required"
	}
}

func messageErrorMessage(err error) string {
	if errors.Is(err, validation.ErrMessageTooLong) {
		return "Message is too long"
	}
	return "Message is required"
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error", "code", "requestId"}; requestId is the correlation ID when present.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":     message,
		"code":      code,
		"requestId": observability.CorrelationID(r.Context()),
	})
}
