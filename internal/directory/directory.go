// Package directory implements the operations of the provider directory on
// top of the query engine, the geo resolver and the duplicate scorer.
package directory

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/duplicate"
	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/geo"
	"github.com/sells-group/provider-directory/internal/geocoding"
	"github.com/sells-group/provider-directory/internal/normalize"
	"github.com/sells-group/provider-directory/internal/query"
	"github.com/sells-group/provider-directory/internal/store"
)

var (
	// ErrNotFound is returned for unknown entry ids.
	ErrNotFound = store.ErrNotFound
	// ErrNotUpdated is returned when a change could not be applied.
	ErrNotUpdated = eris.New("directory: entry not updated")
	// ErrCompilation is returned when an admin filter does not compile.
	ErrCompilation = query.ErrCompilation
	// ErrExportFailed is returned when a backup could not be produced.
	ErrExportFailed = eris.New("directory: export failed")
	// ErrInvalidEntry is returned for submissions of an unknown type.
	ErrInvalidEntry = eris.New("directory: invalid entry")
)

// Backend is the persistence the service needs.
type Backend interface {
	store.EntryStore
	store.MetaStore
	geo.Gazetteer
}

// Labeler resolves approvedBy ids to display names and user names to ids.
type Labeler interface {
	query.NameResolver
	Label(ctx context.Context, entries []*entry.Entry)
}

// Enqueuer accepts background geocoding jobs without blocking.
type Enqueuer interface {
	Enqueue(job geocoding.Job) bool
}

// Options tune the service. Zero values select package defaults.
type Options struct {
	PageSize      int
	GeoCandidates int
	Duplicate     duplicate.Config
	PhoneRegion   string
	Now           func() time.Time
}

// Page is one page of a listing. LocationName is set when the results are
// ordered by distance from a resolved place.
type Page struct {
	Entries      []*entry.Entry `json:"entries"`
	LocationName string         `json:"locationName,omitempty"`
	More         bool           `json:"more"`
}

// Service exposes the directory operations.
type Service struct {
	backend  Backend
	names    Labeler
	geocoder Enqueuer

	resolver *geo.Resolver
	ranker   *query.Ranker
	compiler *query.Compiler
	scorer   *duplicate.Scorer
	phone    *normalize.PhoneNormalizer
	now      func() time.Time
}

// New wires a Service. names and geocoder may be nil: approvedBy then stays
// a raw id and new entries are not geocoded.
func New(backend Backend, names Labeler, geocoder Enqueuer, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	var resolver query.NameResolver
	if names != nil {
		resolver = names
	}

	return &Service{
		backend:  backend,
		names:    names,
		geocoder: geocoder,
		resolver: geo.NewResolver(backend, opts.GeoCandidates),
		ranker:   query.NewRanker(backend, opts.PageSize, entry.PublicFilter{}),
		compiler: query.NewCompiler(resolver),
		scorer:   duplicate.NewScorer(backend, opts.Duplicate),
		phone:    normalize.NewPhoneNormalizer(opts.PhoneRegion),
		now:      now,
	}
}

// PageSize returns the number of entries per page.
func (s *Service) PageSize() int { return s.ranker.PageSize() }
