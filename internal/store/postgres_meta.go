package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// GetMeta reads the single collection metadata row.
func (s *PostgresStore) GetMeta(ctx context.Context) (*CollectionMeta, error) {
	var m CollectionMeta
	err := s.pool.QueryRow(ctx,
		`SELECT last_change, last_export FROM collection_meta WHERE id = 1`,
	).Scan(&m.LastChange, &m.LastExport)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "collection meta")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get meta")
	}
	return &m, nil
}

// TouchChange records a modification of the entry collection.
func (s *PostgresStore) TouchChange(ctx context.Context, at time.Time) error {
	return s.touch(ctx, "last_change", at)
}

// TouchExport records a completed export.
func (s *PostgresStore) TouchExport(ctx context.Context, at time.Time) error {
	return s.touch(ctx, "last_export", at)
}

func (s *PostgresStore) touch(ctx context.Context, column string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE collection_meta SET `+column+` = $1 WHERE id = 1`, at)
	if err != nil {
		return eris.Wrapf(err, "postgres: touch %s", column)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrap(ErrNotFound, "collection meta")
	}
	return nil
}
