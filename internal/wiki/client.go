// Package wiki talks to the Wikipedia action API and REST page summaries.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/tour-guide-service/internal/circuitbreaker"
	"github.com/kjstillabower/tour-guide-service/internal/observability"
)

// Default per-endpoint timeouts.
const (
	SearchTimeout    = 6 * time.Second
	GeoSearchTimeout = 8 * time.Second
	SummaryTimeout   = 6 * time.Second
)

// ErrUpstream is returned for non-200 answers and unreadable payloads.
var ErrUpstream = errors.New("encyclopedia upstream failure")

const maxBodyBytes = 2 << 20

// GeoResult is one geosearch hit.
type GeoResult struct {
	Title string
	// Dist is the distance from the query point in meters.
	Dist float64
}

// Encyclopedia is the lookup surface used by the city resolver and attraction finder.
type Encyclopedia interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
	GeoSearch(ctx context.Context, lat, lon float64, radiusMeters, limit int) ([]GeoResult, error)
	Summary(ctx context.Context, title string) (string, error)
}

// Client is an HTTP Encyclopedia backed by one Wikipedia language edition.
type Client struct {
	apiURL    string
	restURL   string
	userAgent string
	http      *http.Client
	breaker   *circuitbreaker.Breaker

	searchTimeout    time.Duration
	geoSearchTimeout time.Duration
	summaryTimeout   time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCircuitBreaker guards every call with cb.
func WithCircuitBreaker(cb *circuitbreaker.Breaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithTimeouts overrides the per-endpoint timeouts. Zero keeps the default.
func WithTimeouts(search, geo, summary time.Duration) Option {
	return func(c *Client) {
		if search > 0 {
			c.searchTimeout = search
		}
		if geo > 0 {
			c.geoSearchTimeout = geo
		}
		if summary > 0 {
			c.summaryTimeout = summary
		}
	}
}

// NewClient returns a client for the action API at apiURL (…/w/api.php) and the REST API at
// restURL (…/api/rest_v1). Wikipedia rejects requests without a descriptive User-Agent.
func NewClient(apiURL, restURL, userAgent string, opts ...Option) (*Client, error) {
	for _, raw := range []string{apiURL, restURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid encyclopedia URL %q", raw)
		}
	}
	c := &Client{
		apiURL:           apiURL,
		restURL:          strings.TrimRight(restURL, "/"),
		userAgent:        userAgent,
		http:             &http.Client{},
		searchTimeout:    SearchTimeout,
		geoSearchTimeout: GeoSearchTimeout,
		summaryTimeout:   SummaryTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type queryResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
		GeoSearch []struct {
			Title string  `json:"title"`
			Dist  float64 `json:"dist"`
		} `json:"geosearch"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Search runs a full-text search and returns up to limit titles in relevance order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("format", "json")

	var resp queryResponse
	if err := c.getJSON(ctx, "search", c.searchTimeout, c.apiURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: search: %s", ErrUpstream, resp.Error.Info)
	}
	titles := make([]string, 0, len(resp.Query.Search))
	for _, r := range resp.Query.Search {
		if r.Title != "" {
			titles = append(titles, r.Title)
		}
	}
	return titles, nil
}

// GeoSearch returns up to limit pages within radiusMeters of (lat, lon), in API order.
func (c *Client) GeoSearch(ctx context.Context, lat, lon float64, radiusMeters, limit int) ([]GeoResult, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "geosearch")
	params.Set("gscoord", strconv.FormatFloat(lat, 'f', -1, 64)+"|"+strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("gsradius", strconv.Itoa(radiusMeters))
	params.Set("gslimit", strconv.Itoa(limit))
	params.Set("format", "json")

	var resp queryResponse
	if err := c.getJSON(ctx, "geosearch", c.geoSearchTimeout, c.apiURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: geosearch: %s", ErrUpstream, resp.Error.Info)
	}
	out := make([]GeoResult, 0, len(resp.Query.GeoSearch))
	for _, r := range resp.Query.GeoSearch {
		if r.Title != "" {
			out = append(out, GeoResult{Title: r.Title, Dist: r.Dist})
		}
	}
	return out, nil
}

// Summary returns the display title of a page, or title itself when the summary carries none.
func (c *Client) Summary(ctx context.Context, title string) (string, error) {
	var resp struct {
		Title string `json:"title"`
	}
	endpoint := c.restURL + "/page/summary/" + url.PathEscape(title)
	if err := c.getJSON(ctx, "summary", c.summaryTimeout, endpoint, &resp); err != nil {
		return "", err
	}
	if resp.Title == "" {
		return title, nil
	}
	return resp.Title, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, timeout time.Duration, rawURL string, out any) error {
	return c.breaker.Call(ctx, func(ctx context.Context) error {
		start := time.Now()
		err := c.fetch(ctx, timeout, rawURL, out)
		status := "success"
		if err != nil {
			status = "error"
		}
		observability.WikiAPICallsTotal.WithLabelValues(endpoint, status).Inc()
		observability.WikiAPIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("%s: %w", endpoint, err)
		}
		return nil
	})
}

func (c *Client) fetch(ctx context.Context, timeout time.Duration, rawURL string, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrUpstream, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: parse response: %v", ErrUpstream, err)
	}
	return nil
}
