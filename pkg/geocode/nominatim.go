package geocode

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/provider-directory/internal/resilience"
)

// maxBody caps how much of an upstream response is read.
const maxBody = 1 << 20

// searchParams builds the structured query. The house number is prefixed to the street.
func searchParams(addr AddressInput) url.Values {
	params := url.Values{"format": {"geojson"}}
	if addr.City != "" {
		params.Set("city", addr.City)
	}
	if addr.Plz != "" {
		params.Set("postalcode", addr.Plz)
	}
	street := addr.Street
	if street != "" && addr.House != "" {
		street = addr.House + " " + street
	}
	if street != "" {
		params.Set("street", street)
	}
	return params
}

func (g *geocoder) search(ctx context.Context, addr AddressInput) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	reqURL := g.baseURL + "?" + searchParams(addr).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("geocode: upstream returned status %d", resp.StatusCode)
		if resilience.IsTransientStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var fc geojson.FeatureCollection
	if err := fc.UnmarshalJSON(body); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}

	return firstPoint(fc.Features), nil
}

// firstPoint takes the first feature, as Nominatim ranks by importance.
func firstPoint(features []*geojson.Feature) *Result {
	if len(features) == 0 || features[0] == nil {
		return &Result{Matched: false}
	}
	f := features[0]
	pt, ok := f.Geometry.(*geom.Point)
	if !ok || len(pt.FlatCoords()) < 2 {
		return &Result{Matched: false}
	}

	r := &Result{
		Longitude: pt.X(),
		Latitude:  pt.Y(),
		Matched:   true,
	}
	if name, ok := f.Properties["display_name"].(string); ok {
		r.DisplayName = name
	}
	return r
}
