// Package store persists entries, the gazetteer, moderators and collection
// metadata. Two drivers exist: postgres (PostGIS) and memory.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/geo"
	"github.com/sells-group/provider-directory/internal/moderator"
	"github.com/sells-group/provider-directory/internal/query"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = eris.New("store: not found")

// CollectionMeta tracks when the entry collection last changed and when it
// was last exported.
type CollectionMeta struct {
	LastChange *time.Time `json:"lastChange,omitempty" yaml:"lastChange,omitempty"`
	LastExport *time.Time `json:"lastExport,omitempty" yaml:"lastExport,omitempty"`
}

// ChangedSinceExport reports whether an export would contain anything new.
func (m CollectionMeta) ChangedSinceExport() bool {
	if m.LastExport == nil {
		return true
	}
	return m.LastChange != nil && m.LastChange.After(*m.LastExport)
}

// EntryStore persists directory entries.
type EntryStore interface {
	InsertEntry(ctx context.Context, e *entry.Entry) error
	// GetEntry returns ErrNotFound for unknown ids.
	GetEntry(ctx context.Context, id string) (*entry.Entry, error)
	// UpdateEntry overwrites every stored field of e except location and
	// submission time. Returns ErrNotFound when the row is gone.
	UpdateEntry(ctx context.Context, e *entry.Entry) error
	// SetLocation reports false when no entry has the id. A nil point clears it.
	SetLocation(ctx context.Context, id string, p *geo.Point) (bool, error)
	DeleteEntry(ctx context.Context, id string) (bool, error)
	Query(ctx context.Context, q query.Query) ([]*entry.Entry, error)
	ListByType(ctx context.Context, kind string) ([]*entry.Entry, error)
	AllEntries(ctx context.Context) ([]*entry.Entry, error)
	// Ungeocoded lists entries without a location, oldest first.
	Ungeocoded(ctx context.Context, limit int) ([]*entry.Entry, error)
}

// GazetteerStore is the place lookup table.
type GazetteerStore interface {
	geo.Gazetteer
	// LoadGazetteer upserts records by id.
	LoadGazetteer(ctx context.Context, recs []geo.Record) (int64, error)
}

// ModeratorStore persists moderators.
type ModeratorStore interface {
	moderator.Store
	CreateModerator(ctx context.Context, m moderator.Moderator) error
}

// MetaStore keeps the collection timestamps.
type MetaStore interface {
	// GetMeta returns ErrNotFound when the metadata row is missing.
	GetMeta(ctx context.Context) (*CollectionMeta, error)
	TouchChange(ctx context.Context, at time.Time) error
	TouchExport(ctx context.Context, at time.Time) error
}

// Store bundles every persistence concern behind one driver.
type Store interface {
	EntryStore
	GazetteerStore
	ModeratorStore
	MetaStore

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
