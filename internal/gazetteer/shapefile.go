package gazetteer

import (
	"context"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/geo"
)

// ReadShapefile streams records from a point shapefile. The shape is the
// record location; attributes supply id, name, ascii, plz, level and an
// optional ref_lat/ref_lng pair. Non-point shapes are skipped.
func ReadShapefile(ctx context.Context, path string, out chan<- geo.Record) error {
	reader, err := shp.Open(path)
	if err != nil {
		return eris.Wrapf(err, "gazetteer: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	dbf := reader.Fields()
	cols := make([]string, len(dbf))
	for i, f := range dbf {
		cols[i] = canonical(f.String())
	}
	if !hasColumns(cols, colID, colName) {
		return eris.Errorf("gazetteer: shapefile %s needs %q and %q attributes", path, colID, colName)
	}

	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		pt, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		f := make(fields, len(cols))
		for i, c := range cols {
			f[c] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}
		rec, err := f.record()
		if err != nil {
			skipped++
			zap.L().Debug("gazetteer: skip shape", zap.Int("shape", n), zap.Error(err))
			continue
		}
		loc := geo.NewPoint(pt.X, pt.Y)
		rec.Location = &loc

		select {
		case out <- rec:
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "gazetteer: read shapefile")
		}
	}
	if err := reader.Err(); err != nil {
		return eris.Wrapf(err, "gazetteer: read shapefile %s", path)
	}

	if skipped > 0 {
		zap.L().Warn("gazetteer: skipped shapes", zap.String("path", path), zap.Int("skipped", skipped))
	}
	return nil
}
