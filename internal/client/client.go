// Package client fetches current conditions from the wttr.in weather provider.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/tour-guide-service/internal/circuitbreaker"
	"github.com/kjstillabower/tour-guide-service/internal/models"
	"github.com/kjstillabower/tour-guide-service/internal/observability"
)

// WeatherClient returns the current weather for a free-form city string.
type WeatherClient interface {
	GetCurrentWeather(ctx context.Context, city string) (models.WeatherRecord, error)
}

var (
	ErrLocationNotFound = errors.New("location not found")
	ErrUpstreamFailure  = errors.New("upstream failure")
)

// maxBodyBytes caps the j1 payload; a full three-day forecast is well under 64 KiB.
const maxBodyBytes = 1 << 20

// WttrClient calls the wttr.in j1 JSON endpoint.
type WttrClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	breaker *circuitbreaker.Breaker
}

// NewWttrClient returns a client for baseURL (e.g. https://wttr.in). Each call is bounded by timeout.
func NewWttrClient(baseURL string, timeout time.Duration) (*WttrClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid weather API URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &WttrClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// SetCircuitBreaker guards calls with cb. Not-found answers do not count as failures.
func (c *WttrClient) SetCircuitBreaker(cb *circuitbreaker.Breaker) {
	c.breaker = cb
}

// j1Response is the subset of the wttr.in j1 payload we read. Every scalar arrives as a string.
type j1Response struct {
	CurrentCondition []struct {
		TempC         string `json:"temp_C"`
		FeelsLikeC    string `json:"FeelsLikeC"`
		Humidity      string `json:"humidity"`
		Pressure      string `json:"pressure"`
		WindspeedKmph string `json:"windspeedKmph"`
		Cloudcover    string `json:"cloudcover"`
		WeatherDesc   []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
	NearestArea []struct {
		AreaName []struct {
			Value string `json:"value"`
		} `json:"areaName"`
		Country []struct {
			Value string `json:"value"`
		} `json:"country"`
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"nearest_area"`
}

// GetCurrentWeather fetches and normalizes current conditions for city. No retry: callers treat
// every error as "weather unavailable".
func (c *WttrClient) GetCurrentWeather(ctx context.Context, city string) (models.WeatherRecord, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return models.WeatherRecord{}, fmt.Errorf("%w: empty city", ErrLocationNotFound)
	}
	var rec models.WeatherRecord
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		rec, callErr = c.callAPI(ctx, city)
		return callErr
	})
	return rec, err
}

func (c *WttrClient) callAPI(ctx context.Context, city string) (models.WeatherRecord, error) {
	start := time.Now()
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.buildURL(city), nil)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.WeatherRecord{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.WeatherRecord{}, fmt.Errorf("request timeout: %w", err)
		}
		return models.WeatherRecord{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err := checkStatus(resp.StatusCode); err != nil {
		return models.WeatherRecord{}, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.WeatherRecord{}, fmt.Errorf("read response body: %w", err)
	}
	var payload j1Response
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.WeatherRecord{}, fmt.Errorf("%w: parse response: %v", ErrLocationNotFound, err)
	}
	rec, err := mapResponse(payload, city)
	if err != nil {
		return models.WeatherRecord{}, err
	}
	rec.FetchedAt = time.Now()
	return rec, nil
}

func (c *WttrClient) buildURL(city string) string {
	return c.baseURL + "/" + url.PathEscape(city) + "?format=j1"
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, code)
	default:
		return fmt.Errorf("%w: HTTP %d", ErrLocationNotFound, code)
	}
}

// mapResponse flattens the j1 payload. Any missing block or unparseable number means the provider
// did not recognize the place.
func mapResponse(p j1Response, requested string) (models.WeatherRecord, error) {
	if len(p.CurrentCondition) == 0 || len(p.NearestArea) == 0 {
		return models.WeatherRecord{}, fmt.Errorf("%w: payload missing current_condition or nearest_area", ErrLocationNotFound)
	}
	cur := p.CurrentCondition[0]
	area := p.NearestArea[0]
	if len(cur.WeatherDesc) == 0 || len(area.AreaName) == 0 || len(area.Country) == 0 {
		return models.WeatherRecord{}, fmt.Errorf("%w: payload missing description or area", ErrLocationNotFound)
	}

	n := numbers{}
	rec := models.WeatherRecord{
		RequestedCity: requested,
		ResolvedCity:  area.AreaName[0].Value,
		Country:       area.Country[0].Value,
		Temperature:   n.float("temp_C", cur.TempC),
		FeelsLike:     n.float("FeelsLikeC", cur.FeelsLikeC),
		Humidity:      n.int("humidity", cur.Humidity),
		Pressure:      n.int("pressure", cur.Pressure),
		Description:   cur.WeatherDesc[0].Value,
		WindSpeed:     kmphToMps(n.float("windspeedKmph", cur.WindspeedKmph)),
		Clouds:        n.int("cloudcover", cur.Cloudcover),
		Coordinates: models.Coordinates{
			Lat: n.float("latitude", area.Latitude),
			Lon: n.float("longitude", area.Longitude),
		},
	}
	if n.err != nil {
		return models.WeatherRecord{}, fmt.Errorf("%w: %v", ErrLocationNotFound, n.err)
	}
	return rec, nil
}

// numbers coerces string fields and keeps the first failure.
type numbers struct{ err error }

func (n *numbers) float(field, s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && n.err == nil {
		n.err = fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return v
}

func (n *numbers) int(field, s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil && n.err == nil {
		n.err = fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return v
}

// kmphToMps converts km/h to m/s rounded to two decimals.
func kmphToMps(kmph float64) float64 {
	return math.Round(kmph/3.6*100) / 100
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
