package geo

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/normalize"
)

// DefaultCandidates caps the text search hits considered per lookup.
const DefaultCandidates = 6

// Place is a resolved, human-readable location.
type Place struct {
	Name     string `json:"name"`
	Location Point  `json:"location"`
}

// Lookup is the input of Resolve. Lat and Lng take precedence over Text
// when both are set.
type Lookup struct {
	Lat  *float64
	Lng  *float64
	Text string
}

// Resolver turns coordinates or place names into gazetteer places. It never
// fails: backend errors are logged and reported as a miss.
type Resolver struct {
	gaz        Gazetteer
	candidates int
}

// NewResolver creates a Resolver considering at most candidates text hits
// (0 = DefaultCandidates).
func NewResolver(gaz Gazetteer, candidates int) *Resolver {
	if candidates <= 0 {
		candidates = DefaultCandidates
	}
	return &Resolver{gaz: gaz, candidates: candidates}
}

// Resolve returns the pivot place for a query, or false on a miss.
func (r *Resolver) Resolve(ctx context.Context, l Lookup) (*Place, bool) {
	if l.Lat != nil && l.Lng != nil {
		places := r.FindName(ctx, NewPoint(*l.Lng, *l.Lat))
		if len(places) == 0 {
			return nil, false
		}
		return &places[0], true
	}

	if strings.TrimSpace(l.Text) == "" {
		return nil, false
	}
	hits := r.search(ctx, l.Text)
	if len(hits) == 0 {
		return nil, false
	}
	// Only the best hit counts; without a position it is a miss.
	pos, ok := hits[0].Position()
	if !ok {
		zap.L().Debug("geo: best hit has no position", zap.String("name", hits[0].Name))
		return nil, false
	}
	return &Place{Name: hits[0].Name, Location: pos}, true
}

// FindLocation searches the gazetteer for text and its ASCII-folded variant.
// Hits are ordered by text score, then by level (most specific first).
// Hits without any position are skipped.
func (r *Resolver) FindLocation(ctx context.Context, text string) []Place {
	hits := r.search(ctx, text)

	places := make([]Place, 0, len(hits))
	for _, h := range hits {
		pos, ok := h.Position()
		if !ok {
			continue
		}
		places = append(places, Place{Name: h.Name, Location: pos})
	}

	zap.L().Debug("geo: resolved text",
		zap.String("text", text),
		zap.Int("places", len(places)),
	)
	return places
}

// search returns the ranked text hits for text, capped at the candidate
// limit. Backend failures are logged and yield no hits.
func (r *Resolver) search(ctx context.Context, text string) []Scored {
	terms := normalize.SearchTerms(text)
	if len(terms) == 0 {
		return nil
	}

	hits, err := r.gaz.Search(ctx, terms, r.candidates)
	if err != nil {
		zap.L().Warn("geo: gazetteer search failed",
			zap.String("text", text),
			zap.Error(err),
		)
		return nil
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Level > hits[j].Level
	})
	if len(hits) > r.candidates {
		hits = hits[:r.candidates]
	}
	return hits
}

// FindName labels p with the nearest gazetteer record's own name and
// location. The result holds at most one place.
func (r *Resolver) FindName(ctx context.Context, p Point) []Place {
	rec, err := r.gaz.Nearest(ctx, p)
	if err != nil {
		zap.L().Warn("geo: gazetteer nearest failed",
			zap.Float64("lat", p.Lat),
			zap.Float64("lng", p.Lng),
			zap.Error(err),
		)
		return nil
	}
	if rec == nil {
		return nil
	}

	pos, ok := rec.Position()
	if !ok {
		return nil
	}
	return []Place{{Name: rec.Name, Location: pos}}
}
