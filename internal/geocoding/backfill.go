package geocoding

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/entry"
)

// Pending lists entries that still lack a location.
type Pending interface {
	Ungeocoded(ctx context.Context, limit int) ([]*entry.Entry, error)
}

// Backfill geocodes up to limit ungeocoded entries in the calling
// goroutine and returns the number of jobs per outcome. It stops early
// when ctx is cancelled.
func (q *Queue) Backfill(ctx context.Context, src Pending, limit int) (map[string]int, error) {
	entries, err := src.Ungeocoded(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "geocoding: list ungeocoded")
	}

	counts := make(map[string]int)
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return counts, eris.Wrapf(err, "geocoding: backfill stopped after %d of %d", i, len(entries))
		}
		counts[q.Process(ctx, NewJob(e.ID, e.Address))]++
	}

	zap.L().Info("geocoding: backfill complete",
		zap.Int("entries", len(entries)),
		zap.Int("matched", counts["matched"]),
		zap.Int("unmatched", counts["unmatched"]),
		zap.Int("failed", counts["failed"]),
	)
	return counts, nil
}
