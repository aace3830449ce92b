package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/tour-guide-service/internal/observability"
	"github.com/kjstillabower/tour-guide-service/internal/session"
	"github.com/kjstillabower/tour-guide-service/internal/traffic"
)

func TestCorrelationIDMiddleware_GeneratesAndPropagates(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var seen string
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.New(core)))
	router.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		seen = observability.CorrelationID(r.Context())
		observability.LoggerFrom(r.Context(), nil).Info("inside")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	header := w.Header().Get("X-Correlation-ID")
	if header == "" || header != seen {
		t.Errorf("header %q, context %q: want equal and non-empty", header, seen)
	}
	entries := logs.FilterMessage("inside").All()
	if len(entries) != 1 || entries[0].ContextMap()["correlation_id"] != header {
		t.Errorf("request logger missing correlation_id: %v", entries)
	}
}

func TestCorrelationIDMiddleware_KeepsIncoming(t *testing.T) {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Errorf("X-Correlation-ID = %q, want abc-123", got)
	}
}

func TestSessionMiddleware(t *testing.T) {
	existing := session.NewID()
	tests := []struct {
		name     string
		cookie   string
		wantSame bool
	}{
		{"no cookie", "", false},
		{"valid cookie", existing, true},
		{"malformed cookie", "not-a-uuid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := SessionMiddleware(time.Hour, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = SessionID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if !session.ValidID(seen) {
				t.Fatalf("session id %q is not valid", seen)
			}
			if (seen == existing) != tt.wantSame {
				t.Errorf("session id = %q, reuse = %v, want %v", seen, seen == existing, tt.wantSame)
			}
			cookies := w.Result().Cookies()
			if len(cookies) != 1 || cookies[0].Value != seen || !cookies[0].HttpOnly {
				t.Errorf("Set-Cookie = %v, want HttpOnly %s=%s", cookies, SessionCookieName, seen)
			}
			if cookies[0].MaxAge != 3600 {
				t.Errorf("MaxAge = %d, want 3600", cookies[0].MaxAge)
			}
		})
	}
}

func TestMetricsMiddleware_TracksInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	}))

	before := InFlightCount()
	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
		close(done)
	}()
	<-entered
	if got := InFlightCount(); got != before+1 {
		t.Errorf("InFlightCount() during request = %d, want %d", got, before+1)
	}
	close(release)
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := WaitForInFlight(ctx, time.Millisecond); err != nil {
		t.Errorf("WaitForInFlight: %v", err)
	}
}

func TestGetRoute(t *testing.T) {
	tests := map[string]string{
		"/":              "/",
		"/health":        "/health",
		"/metrics":       "/metrics",
		"/api/weather":   "/api/weather",
		"/api/chat":      "/api/chat",
		"/static/app.js": "/static/",
		"/wp-login.php":  "other",
	}
	for path, want := range tests {
		if got := getRoute(httptest.NewRequest(http.MethodGet, path, nil)); got != want {
			t.Errorf("getRoute(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestTimeoutMiddleware_CancelsContextAfterTimeout(t *testing.T) {
	var ctxErr error
	handler := TimeoutMiddleware(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		ctxErr = r.Context().Err()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/weather", nil))

	if ctxErr != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctxErr)
	}
}

func TestRateLimitMiddleware_Returns429WhenExceeded(t *testing.T) {
	tracker := traffic.NewTracker()
	limiter := rate.NewLimiter(rate.Limit(1), 1)
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.Use(RateLimitMiddleware(limiter, tracker))
	router.HandleFunc("/api/weather", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/weather", nil))
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/weather", nil))

	if first.Code != http.StatusOK {
		t.Errorf("first status = %d, want 200", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	body := decodeError(t, second)
	if body["code"] != "RATE_LIMITED" || body["requestId"] != second.Header().Get("X-Correlation-ID") {
		t.Errorf("body = %v", body)
	}
	if got := tracker.Counts(time.Minute).Denials; got != 1 {
		t.Errorf("denials = %d, want 1", got)
	}
}

func TestRateLimitMiddleware_NilLimiterPassesThrough(t *testing.T) {
	handler := RateLimitMiddleware(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
}
