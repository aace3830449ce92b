package http

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/tour-guide-service/internal/observability"
	"github.com/kjstillabower/tour-guide-service/internal/traffic"
)

//go:embed static
var staticFiles embed.FS

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	Logger         *zap.Logger
	Limiter        *rate.Limiter
	Tracker        *traffic.Tracker
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	SecureCookies  bool
}

// NewRouter mounts the page, API, health and metrics routes. Rate limiting, the request
// timeout and the session cookie apply to /api only.
func NewRouter(h *Handler, opts RouterOptions) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(opts.Logger))
	router.Use(MetricsMiddleware)

	static, _ := fs.Sub(staticFiles, "static")
	router.HandleFunc("/", serveIndex(static)).Methods(http.MethodGet)
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static)))).Methods(http.MethodGet)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(opts.Limiter, opts.Tracker))
	api.Use(TimeoutMiddleware(opts.RequestTimeout))
	api.Use(SessionMiddleware(opts.SessionTTL, opts.SecureCookies))
	api.HandleFunc("/weather", h.PostWeather).Methods(http.MethodPost)
	api.HandleFunc("/chat", h.PostChat).Methods(http.MethodPost)
	api.HandleFunc("/clear", h.PostClear).Methods(http.MethodPost)

	return router
}

func serveIndex(static fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := fs.ReadFile(static, "index.html")
		if err != nil {
			http.Error(w, "page unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}
}
