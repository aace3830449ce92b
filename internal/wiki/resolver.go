package wiki

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/tour-guide-service/internal/observability"
)

// CityResolver turns a possibly misspelled city into the encyclopedia's best-match title.
type CityResolver struct {
	enc    Encyclopedia
	logger *zap.Logger
}

// NewCityResolver returns a resolver over enc.
func NewCityResolver(enc Encyclopedia, logger *zap.Logger) *CityResolver {
	return &CityResolver{enc: enc, logger: logger}
}

// ResolveCity returns the top search hit for raw. ok is false on any failure or no hit; the
// caller then keeps the raw input.
func (r *CityResolver) ResolveCity(ctx context.Context, raw string) (title string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	titles, err := r.enc.Search(ctx, raw, 1)
	if err != nil {
		observability.LoggerFrom(ctx, r.logger).Debug("city resolution failed",
			zap.String("city", raw),
			zap.Error(err),
		)
		return "", false
	}
	if len(titles) == 0 {
		return "", false
	}
	return titles[0], true
}

// Corrected returns title when it differs from raw ignoring case, else "".
func Corrected(raw, title string) string {
	if title == "" || strings.EqualFold(strings.TrimSpace(raw), title) {
		return ""
	}
	return title
}
