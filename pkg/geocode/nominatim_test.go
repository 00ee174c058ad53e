package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const berlinResponse = `{
	"type": "FeatureCollection",
	"licence": "Data © OpenStreetMap contributors, ODbL 1.0.",
	"features": [{
		"type": "Feature",
		"properties": {"place_id": 1, "display_name": "12, Hauptstraße, Berlin, 10115, Deutschland"},
		"geometry": {"type": "Point", "coordinates": [13.3889, 52.5170]}
	}, {
		"type": "Feature",
		"properties": {"place_id": 2},
		"geometry": {"type": "Point", "coordinates": [9.99, 53.55]}
	}]
}`

func TestSearchParams(t *testing.T) {
	p := searchParams(AddressInput{Street: "Hauptstraße", House: "12", City: "Berlin", Plz: "10115"})
	assert.Equal(t, "geojson", p.Get("format"))
	assert.Equal(t, "Berlin", p.Get("city"))
	assert.Equal(t, "10115", p.Get("postalcode"))
	assert.Equal(t, "12 Hauptstraße", p.Get("street"))
}

func TestSearchParams_OmitsEmpty(t *testing.T) {
	p := searchParams(AddressInput{City: "Köln"})
	assert.Equal(t, "Köln", p.Get("city"))
	assert.False(t, p.Has("postalcode"))
	assert.False(t, p.Has("street"))

	p = searchParams(AddressInput{House: "3", Plz: "50667"})
	assert.False(t, p.Has("street"), "house number alone is not a street")
}

func TestGeocode_FirstFeature(t *testing.T) {
	var gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("street")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, berlinResponse)
	}))
	defer srv.Close()

	g := newTestGeocoder(srv.URL)
	res, err := g.Geocode(context.Background(), AddressInput{Street: "Hauptstraße", House: "12", City: "Berlin", Plz: "10115"})
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.InDelta(t, 52.5170, res.Latitude, 1e-6)
	assert.InDelta(t, 13.3889, res.Longitude, 1e-6)
	assert.Contains(t, res.DisplayName, "Berlin")
	assert.Equal(t, "directory-test", gotUA)
	assert.Equal(t, "12 Hauptstraße", gotQuery)
}

func TestGeocode_NoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"type":"FeatureCollection","features":[]}`)
	}))
	defer srv.Close()

	res, err := newTestGeocoder(srv.URL).Geocode(context.Background(), AddressInput{City: "Nowhere"})
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestGeocode_EmptyAddressSkipsRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	res, err := newTestGeocoder(srv.URL).Geocode(context.Background(), AddressInput{})
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, int32(0), calls.Load())
}

func TestGeocode_RetriesTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, berlinResponse)
	}))
	defer srv.Close()

	res, err := newTestGeocoder(srv.URL).Geocode(context.Background(), AddressInput{City: "Berlin"})
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGeocode_PermanentStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestGeocoder(srv.URL).Geocode(context.Background(), AddressInput{City: "Berlin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeocode_ServerErrorExhausts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestGeocoder(srv.URL).Geocode(context.Background(), AddressInput{City: "Berlin"})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGeocode_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>`)
	}))
	defer srv.Close()

	_, err := newTestGeocoder(srv.URL).Geocode(context.Background(), AddressInput{City: "Berlin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
}

func TestGeocode_NonPointGeometry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
			"geometry":{"type":"LineString","coordinates":[[1,2],[3,4]]}}]}`)
	}))
	defer srv.Close()

	res, err := newTestGeocoder(srv.URL).Geocode(context.Background(), AddressInput{City: "Berlin"})
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestGeocode_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestGeocoder(srv.URL).Geocode(ctx, AddressInput{City: "Berlin"})
	require.Error(t, err)
}

func TestNewClient_Options(t *testing.T) {
	c := NewClient(
		WithBaseURL("http://example.test/search"),
		WithUserAgent("ua/1"),
		WithInterval(0),
		WithHTTPClient(&http.Client{Timeout: time.Second}),
	)
	g, ok := c.(*geocoder)
	require.True(t, ok)
	assert.Equal(t, "http://example.test/search", g.baseURL)
	assert.Equal(t, "ua/1", g.userAgent)
	assert.Equal(t, time.Second, g.httpClient.Timeout)
	assert.True(t, g.limiter.Allow())
	assert.True(t, g.limiter.Allow())
}

func TestNewClient_Defaults(t *testing.T) {
	g := NewClient(WithBaseURL(""), WithUserAgent("")).(*geocoder)
	assert.Equal(t, DefaultURL, g.baseURL)
	assert.Equal(t, "directory/1.0", g.userAgent)
	assert.Equal(t, 3, g.backoff.Attempts)
}
