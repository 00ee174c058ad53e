package gazetteer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/provider-directory/internal/geo"
)

// DefaultBatchSize is the number of records upserted per round trip.
const DefaultBatchSize = 5000

// Loader persists gazetteer records.
type Loader interface {
	LoadGazetteer(ctx context.Context, recs []geo.Record) (int64, error)
}

// Reader emits records into out and returns when the source is exhausted.
type Reader func(ctx context.Context, out chan<- geo.Record) error

// Import runs read and upserts its records in batches concurrently with
// parsing. It returns the number of rows written.
func Import(ctx context.Context, read Reader, dst Loader, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	records := make(chan geo.Record, batchSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(records)
		return read(gctx, records)
	})

	var total int64
	g.Go(func() error {
		batch := make([]geo.Record, 0, batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			n, err := dst.LoadGazetteer(gctx, batch)
			if err != nil {
				return eris.Wrap(err, "gazetteer: load batch")
			}
			total += n
			zap.L().Debug("gazetteer: batch loaded", zap.Int("records", len(batch)), zap.Int64("total", total))
			batch = batch[:0]
			return nil
		}

		for rec := range records {
			batch = append(batch, rec)
			if len(batch) == batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	if err := g.Wait(); err != nil {
		return total, err
	}
	zap.L().Info("gazetteer: import complete", zap.Int64("rows", total))
	return total, nil
}
