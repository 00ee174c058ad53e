package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/db"
	"github.com/sells-group/provider-directory/internal/geo"
)

const geodataSelect = `id, name, ascii, plz, level,
	ST_AsEWKB(location::geometry), ST_AsEWKB(reference_location::geometry)`

var geodataColumns = []string{"id", "name", "ascii", "plz", "level", "location", "reference_location"}

func scanRecord(row pgx.Row, extra ...any) (*geo.Record, error) {
	var r geo.Record
	var loc, ref []byte
	dest := append([]any{&r.ID, &r.Name, &r.ASCII, &r.Plz, &r.Level, &loc, &ref}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if len(loc) > 0 {
		p, err := geo.PointFromEWKB(loc)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: decode location of place %d", r.ID)
		}
		r.Location = &p
	}
	if len(ref) > 0 {
		p, err := geo.PointFromEWKB(ref)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: decode reference location of place %d", r.ID)
		}
		r.ReferenceLocation = &p
	}
	return &r, nil
}

// Nearest returns the gazetteer record closest to p by KNN over location.
func (s *PostgresStore) Nearest(ctx context.Context, p geo.Point) (*geo.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+geodataSelect+`
		FROM geodata
		WHERE location IS NOT NULL
		ORDER BY location <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
		LIMIT 1`,
		p.Lng, p.Lat,
	)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: nearest place")
	}
	return r, nil
}

// tsQuery ORs terms as quoted lexemes so user input cannot inject operators.
func tsQuery(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		t = strings.ReplaceAll(t, `\`, `\\`)
		t = strings.ReplaceAll(t, `'`, `''`)
		parts = append(parts, "'"+t+"'")
	}
	return strings.Join(parts, " | ")
}

// Search ranks gazetteer records by full text score, then level.
func (s *PostgresStore) Search(ctx context.Context, terms []string, limit int) ([]geo.Scored, error) {
	q := tsQuery(terms)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = geo.DefaultCandidates
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+geodataSelect+`, ts_rank(search, q) AS score
		FROM geodata, to_tsquery('simple', $1) q
		WHERE search @@ q
		ORDER BY score DESC, level DESC
		LIMIT $2`,
		q, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search places")
	}
	defer rows.Close()

	var out []geo.Scored
	for rows.Next() {
		var score float32
		r, err := scanRecord(rows, &score)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan place")
		}
		out = append(out, geo.Scored{Record: *r, Score: float64(score)})
	}
	return out, eris.Wrap(rows.Err(), "postgres: search places iterate")
}

// LoadGazetteer upserts recs through a COPY-staged temp table.
func (s *PostgresStore) LoadGazetteer(ctx context.Context, recs []geo.Record) (int64, error) {
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		loc, err := locationArg(r.Location)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: encode place %d", r.ID)
		}
		ref, err := locationArg(r.ReferenceLocation)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: encode place %d", r.ID)
		}
		rows = append(rows, []any{r.ID, r.Name, r.ASCII, r.Plz, r.Level, loc, ref})
	}

	n, err := db.Merge{
		Target:  "geodata",
		Columns: geodataColumns,
		Key:     []string{"id"},
	}.Run(ctx, s.pool, rows)
	return n, eris.Wrap(err, "postgres: load gazetteer")
}
