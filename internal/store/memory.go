package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/geo"
	"github.com/sells-group/provider-directory/internal/moderator"
	"github.com/sells-group/provider-directory/internal/query"
)

// MemoryStore implements Store in process memory. Values are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*entry.Entry
	places     map[int64]geo.Record
	moderators map[string]moderator.Moderator
	meta       *CollectionMeta
}

// NewMemory creates an empty MemoryStore with its metadata row present.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]*entry.Entry),
		places:     make(map[int64]geo.Record),
		moderators: make(map[string]moderator.Moderator),
		meta:       &CollectionMeta{},
	}
}

// Migrate is a no-op.
func (s *MemoryStore) Migrate(context.Context) error { return nil }

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// InsertEntry stores a copy of e.
func (s *MemoryStore) InsertEntry(_ context.Context, e *entry.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; ok {
		return eris.Errorf("memory: entry %s already exists", e.ID)
	}
	c := e.Clone()
	c.Distance = nil
	s.entries[e.ID] = c
	return nil
}

// GetEntry returns a copy of the stored entry.
func (s *MemoryStore) GetEntry(_ context.Context, id string) (*entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "entry %s", id)
	}
	return e.Clone(), nil
}

// UpdateEntry replaces the stored entry, keeping its location and submission time.
func (s *MemoryStore) UpdateEntry(_ context.Context, e *entry.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.entries[e.ID]
	if !ok {
		return eris.Wrapf(ErrNotFound, "entry %s", e.ID)
	}
	next := e.Clone()
	next.Location = old.Location
	next.SubmittedTimestamp = old.SubmittedTimestamp
	next.Distance = nil
	s.entries[e.ID] = next
	return nil
}

// SetLocation writes or clears the location of one entry.
func (s *MemoryStore) SetLocation(_ context.Context, id string, p *geo.Point) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	if p == nil {
		e.Location = nil
		return true, nil
	}
	loc := *p
	e.Location = &loc
	return true, nil
}

// DeleteEntry removes one entry.
func (s *MemoryStore) DeleteEntry(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

// Query filters with the predicate's in-memory form and orders like the
// postgres driver.
func (s *MemoryStore) Query(_ context.Context, q query.Query) ([]*entry.Entry, error) {
	where := q.Where
	if where == nil {
		where = query.All()
	}

	s.mu.RLock()
	var hits []*entry.Entry
	for _, e := range s.entries {
		if q.Pivot != nil && e.Location == nil {
			continue
		}
		if where.Match(e) {
			hits = append(hits, e.Clone())
		}
	}
	s.mu.RUnlock()

	query.Sort(hits, q.Pivot)

	if q.Offset > 0 {
		if q.Offset >= len(hits) {
			return nil, nil
		}
		hits = hits[q.Offset:]
	}
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

func (s *MemoryStore) collect(keep func(*entry.Entry) bool, less func(a, b *entry.Entry) bool) []*entry.Entry {
	s.mu.RLock()
	var out []*entry.Entry
	for _, e := range s.entries {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byID(a, b *entry.Entry) bool { return a.ID < b.ID }

func bySubmission(a, b *entry.Entry) bool {
	if !a.SubmittedTimestamp.Equal(b.SubmittedTimestamp) {
		return a.SubmittedTimestamp.Before(b.SubmittedTimestamp)
	}
	return a.ID < b.ID
}

// ListByType returns every entry of one kind.
func (s *MemoryStore) ListByType(_ context.Context, kind string) ([]*entry.Entry, error) {
	return s.collect(func(e *entry.Entry) bool { return e.Type == kind }, byID), nil
}

// AllEntries returns the whole collection in submission order.
func (s *MemoryStore) AllEntries(context.Context) ([]*entry.Entry, error) {
	return s.collect(func(*entry.Entry) bool { return true }, bySubmission), nil
}

// Ungeocoded lists unblocked entries that still lack a location.
func (s *MemoryStore) Ungeocoded(_ context.Context, limit int) ([]*entry.Entry, error) {
	out := s.collect(func(e *entry.Entry) bool { return e.Location == nil && !e.Blocked }, bySubmission)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Nearest returns the record with a location closest to p.
func (s *MemoryStore) Nearest(_ context.Context, p geo.Point) (*geo.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *geo.Record
	bestDist := 0.0
	for _, r := range s.places {
		if r.Location == nil {
			continue
		}
		d := geo.Distance(*r.Location, p)
		if best == nil || d < bestDist || (d == bestDist && r.ID < best.ID) {
			rec := r
			best, bestDist = &rec, d
		}
	}
	return best, nil
}

func tokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[f] = true
	}
	return out
}

// Search scores a record by the number of terms matching a token of its
// name, plz or ascii form.
func (s *MemoryStore) Search(_ context.Context, terms []string, limit int) ([]geo.Scored, error) {
	if limit <= 0 {
		limit = geo.DefaultCandidates
	}
	var wanted []string
	for _, t := range terms {
		for tok := range tokens(t) {
			wanted = append(wanted, tok)
		}
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	var out []geo.Scored
	for _, r := range s.places {
		have := tokens(r.Name + " " + r.Plz + " " + r.ASCII)
		score := 0.0
		for _, w := range wanted {
			if have[w] {
				score++
			}
		}
		if score > 0 {
			out = append(out, geo.Scored{Record: r, Score: score})
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		return a.ID < b.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LoadGazetteer upserts recs by id.
func (s *MemoryStore) LoadGazetteer(_ context.Context, recs []geo.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.places[r.ID] = r
	}
	return int64(len(recs)), nil
}

// ListModerators returns all moderators ordered by creation.
func (s *MemoryStore) ListModerators(context.Context) ([]moderator.Moderator, error) {
	s.mu.RLock()
	out := make([]moderator.Moderator, 0, len(s.moderators))
	for _, m := range s.moderators {
		out = append(out, m)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetModerator returns nil, nil when id is unknown.
func (s *MemoryStore) GetModerator(_ context.Context, id string) (*moderator.Moderator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.moderators[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// FindModeratorsByName returns the moderators registered under username.
func (s *MemoryStore) FindModeratorsByName(_ context.Context, username string) ([]moderator.Moderator, error) {
	s.mu.RLock()
	var out []moderator.Moderator
	for _, m := range s.moderators {
		if m.Username == username {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateModerator inserts a moderator.
func (s *MemoryStore) CreateModerator(_ context.Context, m moderator.Moderator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.moderators[m.ID]; ok {
		return eris.Errorf("memory: moderator %s already exists", m.ID)
	}
	s.moderators[m.ID] = m
	return nil
}

// GetMeta returns a copy of the collection metadata.
func (s *MemoryStore) GetMeta(context.Context) (*CollectionMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.meta == nil {
		return nil, eris.Wrap(ErrNotFound, "collection meta")
	}
	m := *s.meta
	return &m, nil
}

// TouchChange records a modification of the entry collection.
func (s *MemoryStore) TouchChange(_ context.Context, at time.Time) error {
	return s.touch(func(m *CollectionMeta) { m.LastChange = &at })
}

// TouchExport records a completed export.
func (s *MemoryStore) TouchExport(_ context.Context, at time.Time) error {
	return s.touch(func(m *CollectionMeta) { m.LastExport = &at })
}

func (s *MemoryStore) touch(set func(*CollectionMeta)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return eris.Wrap(ErrNotFound, "collection meta")
	}
	set(s.meta)
	return nil
}
