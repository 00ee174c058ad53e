package geo

import "context"

// Record is one row of the read-only gazetteer.
type Record struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	ASCII string `json:"ascii"`
	Plz   string `json:"plz,omitempty"`
	// Level is the administrative level; higher is more specific.
	Level             int    `json:"level"`
	Location          *Point `json:"location,omitempty"`
	ReferenceLocation *Point `json:"referenceLocation,omitempty"`
}

// Position returns the precise location, else the reference location.
func (r Record) Position() (Point, bool) {
	switch {
	case r.Location != nil:
		return *r.Location, true
	case r.ReferenceLocation != nil:
		return *r.ReferenceLocation, true
	default:
		return Point{}, false
	}
}

// Scored is a text search hit with its match score.
type Scored struct {
	Record
	Score float64
}

// Gazetteer is the place lookup backend.
type Gazetteer interface {
	// Nearest returns the record closest to p, or nil when none has a location.
	Nearest(ctx context.Context, p Point) (*Record, error)
	// Search runs an OR text search of terms over name, plz and ascii.
	Search(ctx context.Context, terms []string, limit int) ([]Scored, error)
}
