// Package moderator keeps the id to display-name mapping of moderators.
package moderator

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/entry"
)

// Moderator is a user allowed to approve entries.
type Moderator struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store reads moderator records.
type Store interface {
	ListModerators(ctx context.Context) ([]Moderator, error)
	// GetModerator returns nil without error when id is unknown.
	GetModerator(ctx context.Context, id string) (*Moderator, error)
	FindModeratorsByName(ctx context.Context, username string) ([]Moderator, error)
}

// NameCache maps moderator ids to user names. It is filled once at startup
// and on misses afterwards; entries are never invalidated, so renames show
// up after a restart. Safe for concurrent use.
type NameCache struct {
	store Store

	mu    sync.RWMutex
	names map[string]string
	ids   map[string][]string
}

// Load builds a cache holding every moderator in store.
func Load(ctx context.Context, store Store) (*NameCache, error) {
	mods, err := store.ListModerators(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "moderator: load names")
	}

	c := &NameCache{
		store: store,
		names: make(map[string]string, len(mods)),
		ids:   make(map[string][]string, len(mods)),
	}
	for _, m := range mods {
		c.put(m)
	}

	zap.L().Info("moderator: name cache loaded", zap.Int("moderators", len(mods)))
	return c, nil
}

func (c *NameCache) put(m Moderator) {
	if _, ok := c.names[m.ID]; ok {
		return
	}
	c.names[m.ID] = m.Username
	c.ids[m.Username] = append(c.ids[m.Username], m.ID)
}

// Name returns the user name of id, asking the store on a miss. Unknown
// ids and lookup failures report false.
func (c *NameCache) Name(ctx context.Context, id string) (string, bool) {
	c.mu.RLock()
	name, ok := c.names[id]
	c.mu.RUnlock()
	if ok {
		return name, true
	}

	m, err := c.store.GetModerator(ctx, id)
	if err != nil {
		zap.L().Warn("moderator: lookup failed", zap.String("moderator_id", id), zap.Error(err))
		return "", false
	}
	if m == nil {
		return "", false
	}

	c.mu.Lock()
	c.put(*m)
	c.mu.Unlock()
	return m.Username, true
}

// IDsFor returns the ids registered under username.
func (c *NameCache) IDsFor(ctx context.Context, username string) ([]string, error) {
	c.mu.RLock()
	ids, ok := c.ids[username]
	c.mu.RUnlock()
	if ok {
		return append([]string(nil), ids...), nil
	}

	mods, err := c.store.FindModeratorsByName(ctx, username)
	if err != nil {
		return nil, eris.Wrapf(err, "moderator: find %q", username)
	}

	c.mu.Lock()
	for _, m := range mods {
		c.put(m)
	}
	ids = append([]string(nil), c.ids[username]...)
	c.mu.Unlock()
	return ids, nil
}

// Label replaces approvedBy ids with user names in place. Unknown ids are
// left as they are.
func (c *NameCache) Label(ctx context.Context, entries []*entry.Entry) {
	for _, e := range entries {
		if e.ApprovedBy == nil {
			continue
		}
		if name, ok := c.Name(ctx, *e.ApprovedBy); ok {
			e.ApprovedBy = &name
		}
	}
}
