package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/tour-guide-service/internal/traffic"
)

// TestMetrics_Usable verifies that label dimensions match usage in client, wiki, llm, service and http.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("POST", "/api/weather", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("POST", "/api/weather").Observe(0.01)
	WeatherAPICallsTotal.WithLabelValues("success").Inc()
	WeatherAPIDuration.WithLabelValues("success").Observe(0.1)
	WikiAPICallsTotal.WithLabelValues("search", "success").Inc()
	WikiAPIDuration.WithLabelValues("geosearch").Observe(0.2)
	ModelCallsTotal.WithLabelValues("error").Inc()
	ModelCallDuration.Observe(1.5)
	ModelSelectionsTotal.WithLabelValues("preferred").Inc()
	SuggestionsTotal.WithLabelValues("encyclopedia").Inc()
	ChatRepliesTotal.WithLabelValues("canned").Inc()
	SessionStoreErrorsTotal.WithLabelValues("save").Inc()
	RecordCircuitBreakerTransition("weather_api", "closed", "open", 1)
}

// TestSetTrackedCities_and_RecordCityQuery verifies tracked cities get their own label.
func TestSetTrackedCities_and_RecordCityQuery(t *testing.T) {
	SetTrackedCities([]string{"paris", "Lisbon "})
	RecordCityQuery("Paris")
	RecordCityQuery("lisbon")
	RecordCityQuery("Atlantis")

	w := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()
	for _, want := range []string{`city="paris"`, `city="lisbon"`, `city="other"`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
	SetTrackedCities(nil)
}

func TestRegisterRateLimitGauges_Idempotent(t *testing.T) {
	tr := traffic.NewTracker()
	RegisterRateLimitGauges(tr, time.Minute)
	RegisterRateLimitGauges(tr, time.Minute)
}

// TestMetricsHandler_ServesPrometheusFormat verifies the exposition endpoint.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "2xx").Inc()
	w := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
