package gazetteer

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/geo"
)

// ReadTSV streams records from a tab-separated file with a header row
// naming at least the id and name columns. Malformed rows are skipped
// and counted; a malformed header is an error.
func ReadTSV(ctx context.Context, r io.Reader, out chan<- geo.Record) error {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "gazetteer: read header")
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = canonical(h)
	}
	if !hasColumns(cols, colID, colName) {
		return eris.Errorf("gazetteer: header needs %q and %q columns, got %v", colID, colName, header)
	}

	var skipped int
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return eris.Wrapf(err, "gazetteer: read line %d", line)
		}

		f := make(fields, len(cols))
		for i, c := range cols {
			if i < len(row) {
				f[c] = strings.TrimSpace(row[i])
			}
		}
		rec, err := f.record()
		if err != nil {
			skipped++
			zap.L().Debug("gazetteer: skip row", zap.Int("line", line), zap.Error(err))
			continue
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "gazetteer: read tsv")
		}
	}

	if skipped > 0 {
		zap.L().Warn("gazetteer: skipped malformed rows", zap.Int("skipped", skipped))
	}
	return nil
}

func hasColumns(cols []string, want ...string) bool {
	for _, w := range want {
		found := false
		for _, c := range cols {
			if c == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
