package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/moderator"
)

func collectModerators(rows pgx.Rows) ([]moderator.Moderator, error) {
	defer rows.Close()

	var out []moderator.Moderator
	for rows.Next() {
		var m moderator.Moderator
		if err := rows.Scan(&m.ID, &m.Username, &m.Admin, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan moderator")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: moderators iterate")
}

// ListModerators returns all moderators.
func (s *PostgresStore) ListModerators(ctx context.Context) ([]moderator.Moderator, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, username, admin, created_at FROM moderators ORDER BY created_at, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list moderators")
	}
	return collectModerators(rows)
}

// GetModerator returns nil, nil when id is unknown.
func (s *PostgresStore) GetModerator(ctx context.Context, id string) (*moderator.Moderator, error) {
	var m moderator.Moderator
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, admin, created_at FROM moderators WHERE id = $1`, id,
	).Scan(&m.ID, &m.Username, &m.Admin, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get moderator %s", id)
	}
	return &m, nil
}

// FindModeratorsByName returns the moderators registered under username.
func (s *PostgresStore) FindModeratorsByName(ctx context.Context, username string) ([]moderator.Moderator, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, admin, created_at FROM moderators WHERE username = $1 ORDER BY id`, username,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find moderator %q", username)
	}
	return collectModerators(rows)
}

// CreateModerator inserts a moderator.
func (s *PostgresStore) CreateModerator(ctx context.Context, m moderator.Moderator) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO moderators (id, username, admin, created_at) VALUES ($1, $2, $3, $4)`,
		m.ID, m.Username, m.Admin, m.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: create moderator %q", m.Username)
}
