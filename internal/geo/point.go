// Package geo resolves coordinates and place names against the gazetteer.
package geo

import (
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// SRID of every stored point (WGS 84).
const SRID = 4326

const earthRadiusKm = 6371.0088

// Point is a WGS 84 position. It serializes as a GeoJSON Point.
type Point struct {
	Lng float64 `yaml:"lng"`
	Lat float64 `yaml:"lat"`
}

// NewPoint returns the point at lng/lat.
func NewPoint(lng, lat float64) Point {
	return Point{Lng: lng, Lat: lat}
}

// Geom converts p to a go-geom point carrying SRID 4326.
func (p Point) Geom() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{p.Lng, p.Lat}).SetSRID(SRID)
}

// EWKB encodes p for PostGIS parameters and COPY rows.
func (p Point) EWKB() ([]byte, error) {
	b, err := ewkb.Marshal(p.Geom(), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: marshal ewkb")
	}
	return b, nil
}

// PointFromEWKB decodes a PostGIS point column read with ST_AsEWKB.
func PointFromEWKB(b []byte) (Point, error) {
	g, err := ewkb.Unmarshal(b)
	if err != nil {
		return Point{}, eris.Wrap(err, "geo: unmarshal ewkb")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return Point{}, eris.Errorf("geo: expected point, got %T", g)
	}
	return Point{Lng: pt.X(), Lat: pt.Y()}, nil
}

// MarshalJSON implements json.Marshaler.
func (p Point) MarshalJSON() ([]byte, error) {
	g, err := geojson.Encode(p.Geom())
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode geojson")
	}
	return json.Marshal(g)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Point) UnmarshalJSON(b []byte) error {
	var g geojson.Geometry
	if err := json.Unmarshal(b, &g); err != nil {
		return eris.Wrap(err, "geo: decode geojson")
	}
	t, err := g.Decode()
	if err != nil {
		return eris.Wrap(err, "geo: decode geojson")
	}
	pt, ok := t.(*geom.Point)
	if !ok {
		return eris.Errorf("geo: expected Point, got %s", g.Type)
	}
	p.Lng, p.Lat = pt.X(), pt.Y()
	return nil
}

// Distance returns the great-circle distance between a and b in km.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// RoundKm rounds a distance to two decimals.
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
