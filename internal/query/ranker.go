package query

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/geo"
)

// DefaultPageSize is the number of entries per page.
const DefaultPageSize = 10

// Query is one page request against the entry store. With a Pivot the
// store returns only geocoded entries ordered by distance and sets
// Entry.Distance in km; otherwise entries come in recency order.
type Query struct {
	Where  Predicate
	Pivot  *geo.Point
	Offset int
	Limit  int
}

// Source executes queries.
type Source interface {
	Query(ctx context.Context, q Query) ([]*entry.Entry, error)
}

// Page is one ranked result page. More is true when the page is full,
// which only means a next page may exist.
type Page struct {
	Entries []*entry.Entry `json:"entries"`
	More    bool           `json:"more"`
}

// Ranker paginates and orders query results.
type Ranker struct {
	src      Source
	pageSize int
	out      entry.OutputFilter
}

// NewRanker creates a Ranker with pageSize entries per page
// (0 = DefaultPageSize). out is applied by RankPublic.
func NewRanker(src Source, pageSize int, out entry.OutputFilter) *Ranker {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if out == nil {
		out = entry.PublicFilter{}
	}
	return &Ranker{src: src, pageSize: pageSize, out: out}
}

// PageSize returns the configured page size.
func (r *Ranker) PageSize() int { return r.pageSize }

// Rank returns page number page of where, by distance from pivot when set
// and by recency otherwise. Entries are returned unfiltered.
func (r *Ranker) Rank(ctx context.Context, where Predicate, pivot *geo.Point, page int) (*Page, error) {
	if page < 0 {
		page = 0
	}
	// Offsets past math.MaxInt cannot hold any entry.
	if page > math.MaxInt/r.pageSize {
		return &Page{Entries: []*entry.Entry{}}, nil
	}

	entries, err := r.src.Query(ctx, Query{
		Where:  where,
		Pivot:  pivot,
		Offset: page * r.pageSize,
		Limit:  r.pageSize,
	})
	if err != nil {
		return nil, eris.Wrap(err, "query: rank")
	}

	if pivot != nil {
		for _, e := range entries {
			if e.Distance != nil {
				d := geo.RoundKm(*e.Distance)
				e.Distance = &d
			}
		}
	}
	if entries == nil {
		entries = []*entry.Entry{}
	}

	return &Page{Entries: entries, More: len(entries) == r.pageSize}, nil
}

// RankPublic is Rank followed by the output filter.
func (r *Ranker) RankPublic(ctx context.Context, where Predicate, pivot *geo.Point, page int) (*Page, error) {
	p, err := r.Rank(ctx, where, pivot, page)
	if err != nil {
		return nil, err
	}
	p.Entries = r.out.Filter(p.Entries)
	return p, nil
}

// Sort orders entries the way Query results are ordered: by ascending
// distance (ties by id) when pivot is set, else by approval time, then
// submission time, then id, all descending with unapproved last.
// Distances are set on the entries in geo mode.
func Sort(entries []*entry.Entry, pivot *geo.Point) {
	if pivot != nil {
		for _, e := range entries {
			if e.Location != nil {
				d := geo.Distance(*e.Location, *pivot)
				e.Distance = &d
			}
		}
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if da, db := distanceOf(a), distanceOf(b); da != db {
				return da < db
			}
			return a.ID < b.ID
		})
		return
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.ApprovedTimestamp != nil && b.ApprovedTimestamp == nil:
			return true
		case a.ApprovedTimestamp == nil && b.ApprovedTimestamp != nil:
			return false
		case a.ApprovedTimestamp != nil && !a.ApprovedTimestamp.Equal(*b.ApprovedTimestamp):
			return a.ApprovedTimestamp.After(*b.ApprovedTimestamp)
		}
		if !a.SubmittedTimestamp.Equal(b.SubmittedTimestamp) {
			return a.SubmittedTimestamp.After(b.SubmittedTimestamp)
		}
		return a.ID > b.ID
	})
}

// OrderBy renders the ORDER BY clause matching Sort. distance is the
// select-list alias holding the km distance in geo mode.
func OrderBy(geoMode bool) string {
	if geoMode {
		return "ORDER BY distance ASC, id ASC"
	}
	return "ORDER BY approved_at DESC NULLS LAST, submitted_at DESC, id DESC"
}

func distanceOf(e *entry.Entry) float64 {
	if e.Distance == nil {
		return math.Inf(1)
	}
	return *e.Distance
}
