package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/tour-guide-service/internal/client"
	"github.com/kjstillabower/tour-guide-service/internal/lifecycle"
	"github.com/kjstillabower/tour-guide-service/internal/llm"
	"github.com/kjstillabower/tour-guide-service/internal/models"
	"github.com/kjstillabower/tour-guide-service/internal/service"
	"github.com/kjstillabower/tour-guide-service/internal/session"
	"github.com/kjstillabower/tour-guide-service/internal/traffic"
)

type stubWeather struct{}

func (stubWeather) GetCurrentWeather(_ context.Context, city string) (models.WeatherRecord, error) {
	if strings.EqualFold(city, "atlantis") {
		return models.WeatherRecord{}, client.ErrLocationNotFound
	}
	return models.WeatherRecord{
		RequestedCity: city,
		ResolvedCity:  city,
		Country:       "Somewhere",
		Temperature:   20,
		Description:   "Sunny",
	}, nil
}

type stubResolver struct{}

func (stubResolver) ResolveCity(context.Context, string) (string, bool) { return "", false }

type stubFinder struct{}

func (stubFinder) Find(_ context.Context, city string, _ *models.Coordinates, _ int) []string {
	return []string{city + " Museum", city + " Park"}
}

// newTestServer wires the real service, session manager and router with stub upstreams and no model.
func newTestServer(t *testing.T, limiter *rate.Limiter) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	tracker := traffic.NewTracker()
	manager := session.NewManager(session.NewMemoryStore(time.Hour))
	guide := service.NewTourService(
		stubResolver{},
		stubWeather{},
		service.NewSuggestionEngine(llm.Chain{}, stubFinder{}, logger),
		service.NewTourGuideChat(llm.Chain{}, logger),
		manager,
		logger,
	)
	h := NewHandler(guide, Limits{CityMaxLen: 100, MessageMaxLen: 1000}, &HealthConfig{Lifecycle: lifecycle.New()}, tracker, logger)
	srv := httptest.NewServer(NewRouter(h, RouterOptions{
		Logger:         logger,
		Limiter:        limiter,
		Tracker:        tracker,
		RequestTimeout: 5 * time.Second,
		SessionTTL:     time.Hour,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, c *http.Client, url, body string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := c.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestRouter_ChatBeforeCity(t *testing.T) {
	srv := newTestServer(t, nil)
	browser := newBrowser(t)

	code, body := postJSON(t, browser, srv.URL+"/api/chat", `{"message":"hi"}`)

	if code != http.StatusBadRequest || body["error"] != "Please enter a city first" {
		t.Errorf("got %d %v, want 400 Please enter a city first", code, body)
	}
}

func TestRouter_CityThenChat(t *testing.T) {
	srv := newTestServer(t, nil)
	browser := newBrowser(t)

	code, body := postJSON(t, browser, srv.URL+"/api/weather", `{"city":"Lisbon"}`)
	if code != http.StatusOK {
		t.Fatalf("weather status = %d, body %v", code, body)
	}
	places := body["places"].([]interface{})
	if len(places) != 2 || places[0] != "Lisbon Museum" {
		t.Errorf("places = %v", places)
	}
	if body["corrected_city"] != nil {
		t.Errorf("corrected_city = %v, want null", body["corrected_city"])
	}

	code, body = postJSON(t, browser, srv.URL+"/api/chat", `{"message":"what now?"}`)
	if code != http.StatusOK {
		t.Fatalf("chat status = %d, body %v", code, body)
	}
	if body["city"] != "Lisbon" {
		t.Errorf("city = %v, want Lisbon", body["city"])
	}
	if !strings.Contains(body["response"].(string), "Lisbon") {
		t.Errorf("response = %q, want canned reply mentioning Lisbon", body["response"])
	}

	code, body = postJSON(t, browser, srv.URL+"/api/clear", `{}`)
	if code != http.StatusOK || body["status"] != "Chat cleared" {
		t.Errorf("clear = %d %v", code, body)
	}
}

func TestRouter_SessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t, nil)
	alice, bob := newBrowser(t), newBrowser(t)

	if code, _ := postJSON(t, alice, srv.URL+"/api/weather", `{"city":"Rome"}`); code != http.StatusOK {
		t.Fatalf("alice weather status = %d", code)
	}
	if code, _ := postJSON(t, bob, srv.URL+"/api/weather", `{"city":"Oslo"}`); code != http.StatusOK {
		t.Fatalf("bob weather status = %d", code)
	}

	_, a := postJSON(t, alice, srv.URL+"/api/chat", `{"message":"hello"}`)
	_, b := postJSON(t, bob, srv.URL+"/api/chat", `{"message":"hello"}`)
	if a["city"] != "Rome" || b["city"] != "Oslo" {
		t.Errorf("cities = %v / %v, want Rome / Oslo", a["city"], b["city"])
	}

	stranger := newBrowser(t)
	if code, _ := postJSON(t, stranger, srv.URL+"/api/chat", `{"message":"hello"}`); code != http.StatusBadRequest {
		t.Errorf("fresh session chat status = %d, want 400", code)
	}
}

func TestRouter_UnknownCity(t *testing.T) {
	srv := newTestServer(t, nil)

	code, body := postJSON(t, newBrowser(t), srv.URL+"/api/weather", `{"city":"Atlantis"}`)

	if code != http.StatusNotFound || body["error"] != "Could not find weather data for Atlantis" {
		t.Errorf("got %d %v", code, body)
	}
	if body["requestId"] == "" {
		t.Error("requestId missing from error body")
	}
}

func TestRouter_RateLimitOnlyOnAPI(t *testing.T) {
	srv := newTestServer(t, rate.NewLimiter(rate.Limit(0.001), 1))
	browser := newBrowser(t)

	postJSON(t, browser, srv.URL+"/api/weather", `{"city":"Lisbon"}`)
	code, body := postJSON(t, browser, srv.URL+"/api/weather", `{"city":"Lisbon"}`)
	if code != http.StatusTooManyRequests || body["code"] != "RATE_LIMITED" {
		t.Errorf("got %d %v, want 429", code, body)
	}

	resp, err := browser.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d, want 200", resp.StatusCode)
	}
}

func TestRouter_IndexAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(page), "City Tour Guide") {
		t.Errorf("GET / = %d, page missing title", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	metrics, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(metrics), "httpRequestsTotal") {
		t.Error("/metrics missing httpRequestsTotal")
	}
}
