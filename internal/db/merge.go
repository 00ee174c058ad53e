package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultMergeBatch = 5000

// Merge loads rows into Target through a staging table that lives for one
// transaction. Rows are streamed into staging with COPY in batches and then
// merged on Key. Existing rows get every non-key column overwritten except
// those listed in Keep.
type Merge struct {
	Target    string
	Columns   []string
	Key       []string
	Keep      []string
	BatchSize int
}

func (m Merge) validate() error {
	switch {
	case m.Target == "":
		return eris.New("db: merge: no target table")
	case len(m.Columns) == 0:
		return eris.New("db: merge: no columns specified")
	case len(m.Key) == 0:
		return eris.New("db: merge: no key columns specified")
	}
	return nil
}

func (m Merge) staging() string {
	return "_stage_" + strings.ReplaceAll(m.Target, ".", "_")
}

// overwrite lists the columns replaced when a key already exists.
func (m Merge) overwrite() []string {
	skip := make(map[string]struct{}, len(m.Key)+len(m.Keep))
	for _, c := range m.Key {
		skip[c] = struct{}{}
	}
	for _, c := range m.Keep {
		skip[c] = struct{}{}
	}
	var out []string
	for _, c := range m.Columns {
		if _, ok := skip[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

func (m Merge) stageSQL() string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		ident(m.staging()), ident(m.Target))
}

func (m Merge) mergeSQL() string {
	cols := identList(m.Columns)
	action := "DO NOTHING"
	if set := m.overwrite(); len(set) > 0 {
		assign := make([]string, len(set))
		for i, c := range set {
			assign[i] = ident(c) + " = EXCLUDED." + ident(c)
		}
		action = "DO UPDATE SET " + strings.Join(assign, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		ident(m.Target), cols, cols, ident(m.staging()), identList(m.Key), action)
}

// Run stages and merges rows in one transaction and reports the number of
// target rows inserted or updated.
func (m Merge) Run(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if err := m.validate(); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	batch := m.BatchSize
	if batch <= 0 {
		batch = defaultMergeBatch
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: merge: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, m.stageSQL()); err != nil {
		return 0, eris.Wrapf(err, "db: merge: stage %s", m.Target)
	}

	for i := 0; i < len(rows); i += batch {
		end := min(i+batch, len(rows))
		n, err := tx.CopyFrom(ctx, pgx.Identifier{m.staging()}, m.Columns, pgx.CopyFromRows(rows[i:end]))
		if err != nil {
			return 0, eris.Wrapf(err, "db: merge: copy %s rows %d-%d", m.Target, i, end)
		}
		zap.L().Debug("db: staged batch",
			zap.String("table", m.Target),
			zap.Int("offset", i),
			zap.Int64("rows", n),
		)
	}

	tag, err := tx.Exec(ctx, m.mergeSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge: apply %s", m.Target)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: merge: commit")
	}
	return tag.RowsAffected(), nil
}

// ident quotes a possibly schema-qualified identifier.
func ident(name string) string {
	return pgx.Identifier(strings.SplitN(name, ".", 2)).Sanitize()
}

func identList(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ident(n)
	}
	return strings.Join(out, ", ")
}
