package boundary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/redatlas/config"
)

const countries = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"Kenya","continent":"Africa"},"geometry":{"type":"Point","coordinates":[37.9,0.02]}},
 {"type":"Feature","properties":{"name":"Atlantis","continent":"Atlantic"},"geometry":{"type":"Point","coordinates":[-30,30]}},
 {"type":"Feature","properties":null,"geometry":{"type":"Point","coordinates":[0,0]}}
]}`

// flaky answers 503 for the first fail requests.
func flaky(fail int32, status int) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= fail {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write([]byte(countries))
	}))
	return srv, &calls
}

func newFetcher(url string, retries int, ttl time.Duration) *Fetcher {
	f := NewFetcher(config.BoundaryConfig{URL: url, Timeout: time.Second, Retries: retries, CacheTTL: ttl}, nil, nil)
	f.backoff = time.Millisecond
	return f
}

func TestFetchRetriesServerErrors(t *testing.T) {
	srv, calls := flaky(2, http.StatusServiceUnavailable)
	defer srv.Close()

	fc, err := newFetcher(srv.URL, 2, 0).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 3)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	srv, calls := flaky(10, http.StatusBadGateway)
	defer srv.Close()

	_, err := newFetcher(srv.URL, 1, 0).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	srv, calls := flaky(10, http.StatusNotFound)
	defer srv.Close()

	_, err := newFetcher(srv.URL, 3, 0).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetchUnreachable(t *testing.T) {
	srv, _ := flaky(0, 0)
	url := srv.URL
	srv.Close()

	_, err := newFetcher(url, 0, 0).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetchCaches(t *testing.T) {
	srv, calls := flaky(0, 0)
	defer srv.Close()

	f := newFetcher(srv.URL, 0, time.Minute)
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background())
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestStyle(t *testing.T) {
	fc, err := geojson.UnmarshalFeatureCollection([]byte(countries))
	require.NoError(t, err)

	styled := Style(fc, config.Default().Boundary.ContinentColorMap(), "")
	require.Len(t, styled.Features, 3)

	style := styled.Features[0].Properties["style"].(map[string]any)
	assert.Equal(t, "#90ee90", style["fillColor"])
	assert.Equal(t, "black", style["color"])
	assert.Equal(t, 1, style["weight"])
	assert.Equal(t, 0.5, style["fillOpacity"])
	assert.Equal(t, "Kenya", styled.Features[0].Properties["name"])

	for _, feat := range styled.Features[1:] {
		assert.Equal(t, "gray", feat.Properties["style"].(map[string]any)["fillColor"])
	}

	_, touched := fc.Features[0].Properties["style"]
	assert.False(t, touched, "input collection is not modified")
}

func TestLayer(t *testing.T) {
	srv, _ := flaky(0, 0)
	defer srv.Close()

	cfg := config.Default().Boundary
	cfg.ContinentColors = []config.ContinentColor{{Continent: "Atlantic", Color: "blue"}}
	layer, err := newFetcher(srv.URL, 0, 0).Layer(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "blue", layer.Features[1].Properties["style"].(map[string]any)["fillColor"])
}
