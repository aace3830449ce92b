package observability

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/tour-guide-service/internal/traffic"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Suggestion requests chain several upstream calls, expect seconds.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// wttr.in call rate by outcome.
	WeatherAPICallsTotal *prometheus.CounterVec

	// wttr.in latency. Watch for: p95 approaching weather_api.timeout.
	WeatherAPIDuration *prometheus.HistogramVec

	// Wikipedia call rate by endpoint (search, geosearch, summary) and outcome.
	WikiAPICallsTotal *prometheus.CounterVec

	// Wikipedia latency by endpoint.
	WikiAPIDuration *prometheus.HistogramVec

	// Generative model calls by outcome. Errors trigger model reselection.
	ModelCallsTotal *prometheus.CounterVec

	// Generative model latency.
	ModelCallDuration prometheus.Histogram

	// Model selection outcomes by source (override, preferred, listed, none).
	ModelSelectionsTotal *prometheus.CounterVec

	// Suggestion lists served by source (model, lines, encyclopedia). High encyclopedia share = model trouble.
	SuggestionsTotal *prometheus.CounterVec

	// Chat replies by source (model, canned, error).
	ChatRepliesTotal *prometheus.CounterVec

	// Total city lookups.
	CityQueriesTotal prometheus.Counter

	// Per-city lookups (allow-list; others go to "other").
	CityQueriesByNameTotal *prometheus.CounterVec

	// Rate limit denials.
	RateLimitDeniedTotal prometheus.Counter

	// Session store failures by operation (load, save).
	SessionStoreErrorsTotal *prometheus.CounterVec

	// Circuit breaker transitions per upstream.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// Circuit breaker state per upstream: 0 closed, 1 open, 2 half-open.
	CircuitBreakerState *prometheus.GaugeVec

	trackedCitiesMu sync.RWMutex
	trackedCities   map[string]struct{}

	rateLimitGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of weather provider calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Weather provider latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	WikiAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiApiCallsTotal",
			Help: "Total number of encyclopedia API calls",
		},
		[]string{"endpoint", "status"},
	)
	WikiAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wikiApiDurationSeconds",
			Help:    "Encyclopedia API latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 8},
		},
		[]string{"endpoint"},
	)
	ModelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelCallsTotal",
			Help: "Total number of generative model calls",
		},
		[]string{"status"},
	)
	ModelCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "modelCallDurationSeconds",
			Help:    "Generative model latency in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40},
		},
	)
	ModelSelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelSelectionsTotal",
			Help: "Model selection outcomes by source",
		},
		[]string{"source"},
	)
	SuggestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestionsTotal",
			Help: "Attraction suggestion lists served, by source",
		},
		[]string{"source"},
	)
	ChatRepliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatRepliesTotal",
			Help: "Chat replies served, by source",
		},
		[]string{"source"},
	)
	CityQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cityQueriesTotal",
			Help: "Total number of city lookups",
		},
	)
	CityQueriesByNameTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityQueriesByNameTotal",
			Help: "City lookups by city (allow-list; others use city=other)",
		},
		[]string{"city"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	SessionStoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionStoreErrorsTotal",
			Help: "Session store failures by operation",
		},
		[]string{"op"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"component"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration,
		WikiAPICallsTotal, WikiAPIDuration,
		ModelCallsTotal, ModelCallDuration, ModelSelectionsTotal,
		SuggestionsTotal, ChatRepliesTotal,
		CityQueriesTotal, CityQueriesByNameTotal,
		RateLimitDeniedTotal, SessionStoreErrorsTotal,
		CircuitBreakerTransitionsTotal, CircuitBreakerState,
	)
}

// RegisterRateLimitGauges registers load and rejects gauges for the rate-limited path.
// Call once from main with the health window.
func RegisterRateLimitGauges(tracker *traffic.Tracker, window time.Duration) {
	rateLimitGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited path in sliding window",
				},
				func() float64 { return float64(tracker.Counts(window).Total()) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window",
				},
				func() float64 { return float64(tracker.Counts(window).Denials) },
			),
		)
	})
}

// RecordCircuitBreakerTransition counts a transition and updates the state gauge.
func RecordCircuitBreakerTransition(component, from, to string, toValue int) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
	CircuitBreakerState.WithLabelValues(component).Set(float64(toValue))
}

// SetTrackedCities sets the allow-list for per-city metrics. Non-tracked cities increment "other".
func SetTrackedCities(cities []string) {
	trackedCitiesMu.Lock()
	defer trackedCitiesMu.Unlock()
	trackedCities = make(map[string]struct{}, len(cities))
	for _, c := range cities {
		trackedCities[normalizeCityForMetrics(c)] = struct{}{}
	}
}

// RecordCityQuery records a city lookup.
func RecordCityQuery(city string) {
	CityQueriesTotal.Inc()
	c := normalizeCityForMetrics(city)
	trackedCitiesMu.RLock()
	_, ok := trackedCities[c]
	trackedCitiesMu.RUnlock()
	if ok {
		CityQueriesByNameTotal.WithLabelValues(c).Inc()
	} else {
		CityQueriesByNameTotal.WithLabelValues("other").Inc()
	}
}

func normalizeCityForMetrics(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
