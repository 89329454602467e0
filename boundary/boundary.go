// Package boundary provides the country outline layer drawn behind the map
// markers.
package boundary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/ridoystarlord/redatlas/config"
	"github.com/ridoystarlord/redatlas/metrics"
	"github.com/ridoystarlord/redatlas/utils"
)

// ErrFetch marks a boundary document that could not be retrieved. Callers
// render the map without the overlay.
var ErrFetch = errors.New("boundary fetch failed")

const (
	cacheKey     = "boundaries"
	maxBodyBytes = 64 << 20
)

// Fetcher downloads the boundary document with bounded retries and keeps
// the parsed result for a configurable time.
type Fetcher struct {
	url     string
	client  *http.Client
	retries int
	backoff time.Duration
	cache   *cache.Cache
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewFetcher returns a Fetcher for cfg. A zero CacheTTL disables caching.
func NewFetcher(cfg config.BoundaryConfig, log *zap.Logger, m *metrics.Metrics) *Fetcher {
	f := &Fetcher{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		retries: cfg.Retries,
		backoff: 250 * time.Millisecond,
		log:     utils.OrNop(log),
		metrics: metrics.OrDiscard(m),
	}
	if cfg.CacheTTL > 0 {
		f.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return f
}

// Fetch returns the boundary collection, from cache when possible. Every
// failure wraps ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	if f.cache != nil {
		if v, ok := f.cache.Get(cacheKey); ok {
			f.metrics.BoundaryFetchesTotal.WithLabelValues(metrics.FetchCached).Inc()
			return v.(*geojson.FeatureCollection), nil
		}
	}

	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				f.metrics.BoundaryFetchesTotal.WithLabelValues(metrics.FetchError).Inc()
				return nil, fmt.Errorf("%w: %v", ErrFetch, ctx.Err())
			case <-time.After(time.Duration(attempt) * f.backoff):
			}
		}
		fc, err := f.get(ctx)
		if err == nil {
			if f.cache != nil {
				f.cache.SetDefault(cacheKey, fc)
			}
			f.metrics.BoundaryFetchesTotal.WithLabelValues(metrics.FetchNetwork).Inc()
			return fc, nil
		}
		lastErr = err
		f.log.Warn("Fetching boundaries",
			zap.String("url", f.url),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		var perm permanentError
		if errors.As(err, &perm) {
			break
		}
	}
	f.metrics.BoundaryFetchesTotal.WithLabelValues(metrics.FetchError).Inc()
	return nil, fmt.Errorf("%w: %v", ErrFetch, lastErr)
}

// permanentError is not worth retrying.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }

func (f *Fetcher) get(ctx context.Context) (*geojson.FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, permanentError{err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("GET %s: %s", f.url, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, permanentError{err}
		}
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, permanentError{fmt.Errorf("decoding boundaries: %w", err)}
	}
	return fc, nil
}

// Style returns a copy of fc whose features carry a "style" property with
// the fill color of their continent. Geometries are shared with fc.
func Style(fc *geojson.FeatureCollection, continentColors map[string]string, defaultColor string) *geojson.FeatureCollection {
	if defaultColor == "" {
		defaultColor = "gray"
	}
	out := geojson.NewFeatureCollection()
	for _, feat := range fc.Features {
		props := feat.Properties.Clone()
		if props == nil {
			props = geojson.Properties{}
		}
		fill, ok := continentColors[props.MustString("continent", "")]
		if !ok {
			fill = defaultColor
		}
		props["style"] = map[string]any{
			"fillColor":   fill,
			"color":       "black",
			"weight":      1,
			"fillOpacity": 0.5,
		}
		styled := *feat
		styled.Properties = props
		out.Append(&styled)
	}
	return out
}

// Layer fetches the boundaries and styles them with cfg.
func (f *Fetcher) Layer(ctx context.Context, cfg config.BoundaryConfig) (*geojson.FeatureCollection, error) {
	fc, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Style(fc, cfg.ContinentColorMap(), cfg.DefaultColor), nil
}
