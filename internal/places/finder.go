// Package places finds notable attractions for a city from the encyclopedia.
package places

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjstillabower/tour-guide-service/internal/models"
	"github.com/kjstillabower/tour-guide-service/internal/observability"
	"github.com/kjstillabower/tour-guide-service/internal/wiki"
)

// DefaultLimit is used when Find is called with limit <= 0.
const DefaultLimit = 5

// DefaultKeywords mark a title as attraction-like.
var DefaultKeywords = []string{
	"museum", "park", "cathedral", "tower", "temple", "church", "beach",
	"garden", "fort", "square", "market", "palace", "monument",
}

const (
	geoRadiusMeters   = 20000
	geoLimit          = 50
	keywordSearchSize = 20
	genericSearchSize = 10
	summaryWorkers    = 4
)

var searchTemplates = []string{
	"things to do in %s",
	"tourist attractions in %s",
	"places to visit in %s",
	"%s attractions",
}

// Finder picks up to N attraction names near a city.
type Finder struct {
	enc      wiki.Encyclopedia
	keywords []string
	logger   *zap.Logger
}

// NewFinder returns a finder over enc. Empty keywords selects DefaultKeywords.
func NewFinder(enc wiki.Encyclopedia, keywords []string, logger *zap.Logger) *Finder {
	kw := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	if len(kw) == 0 {
		kw = DefaultKeywords
	}
	return &Finder{enc: enc, keywords: kw, logger: logger}
}

// Find returns up to limit distinct display names. Coordinates, when known, drive a geosearch;
// otherwise or when that yields nothing, templated text searches are used. Failures only shrink
// the result: the returned slice is never nil and no error is reported.
func (f *Finder) Find(ctx context.Context, city string, coords *models.Coordinates, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	logger := observability.LoggerFrom(ctx, f.logger)

	var titles []string
	if usableCoords(coords) {
		titles = f.nearby(ctx, logger, coords, limit)
	}
	if len(titles) == 0 {
		titles = f.searched(ctx, logger, city, limit)
	}
	if len(titles) > limit {
		titles = titles[:limit]
	}
	return f.resolve(ctx, logger, titles)
}

// usableCoords treats (0, 0) as unknown; the weather provider reports it for unparseable areas.
func usableCoords(c *models.Coordinates) bool {
	return c != nil && (c.Lat != 0 || c.Lon != 0)
}

func (f *Finder) matches(title string) bool {
	lt := strings.ToLower(title)
	for _, k := range f.keywords {
		if strings.Contains(lt, k) {
			return true
		}
	}
	return false
}

// nearby selects attraction-like titles by distance, then fills with the nearest remaining ones.
func (f *Finder) nearby(ctx context.Context, logger *zap.Logger, coords *models.Coordinates, limit int) []string {
	hits, err := f.enc.GeoSearch(ctx, coords.Lat, coords.Lon, geoRadiusMeters, geoLimit)
	if err != nil {
		logger.Debug("geosearch failed", zap.Error(err))
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Dist < hits[j].Dist })

	picked := newPicker(limit)
	for _, h := range hits {
		if picked.full() {
			break
		}
		if f.matches(h.Title) {
			picked.add(h.Title)
		}
	}
	for _, h := range hits {
		if picked.full() {
			break
		}
		picked.add(h.Title)
	}
	return picked.titles
}

// searched runs the templates with the keyword filter, then once more accepting any title.
func (f *Finder) searched(ctx context.Context, logger *zap.Logger, city string, limit int) []string {
	picked := newPicker(limit)
	f.runTemplates(ctx, logger, city, keywordSearchSize, picked, f.matches)
	if len(picked.titles) == 0 {
		f.runTemplates(ctx, logger, city, genericSearchSize, picked, nil)
	}
	return picked.titles
}

func (f *Finder) runTemplates(ctx context.Context, logger *zap.Logger, city string, size int, picked *picker, keep func(string) bool) {
	for _, tmpl := range searchTemplates {
		if picked.full() {
			return
		}
		query := fmt.Sprintf(tmpl, city)
		titles, err := f.enc.Search(ctx, query, size)
		if err != nil {
			logger.Debug("attraction search failed", zap.String("query", query), zap.Error(err))
			continue
		}
		for _, t := range titles {
			if picked.full() {
				break
			}
			if keep == nil || keep(t) {
				picked.add(t)
			}
		}
	}
}

// resolve maps titles to summary display names concurrently, keeping input order. Titles whose
// summary fails are dropped, and names are deduplicated after resolution.
func (f *Finder) resolve(ctx context.Context, logger *zap.Logger, titles []string) []string {
	names := make([]string, len(titles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryWorkers)
	for i, t := range titles {
		g.Go(func() error {
			name, err := f.enc.Summary(gctx, t)
			if err != nil {
				logger.Debug("summary lookup failed", zap.String("title", t), zap.Error(err))
				return nil
			}
			names[i] = strings.TrimSpace(name)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// picker accumulates distinct non-empty titles up to a limit.
type picker struct {
	limit  int
	titles []string
	seen   map[string]struct{}
}

func newPicker(limit int) *picker {
	return &picker{limit: limit, seen: make(map[string]struct{}, limit)}
}

func (p *picker) full() bool { return len(p.titles) >= p.limit }

func (p *picker) add(title string) {
	if title == "" || p.full() {
		return
	}
	if _, ok := p.seen[title]; ok {
		return
	}
	p.seen[title] = struct{}{}
	p.titles = append(p.titles, title)
}
