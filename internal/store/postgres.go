package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/db"
)

// PostgresStore implements Store on PostgreSQL with PostGIS.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; Close leaves the pool open.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS entries (
	id                 TEXT PRIMARY KEY,
	type               TEXT NOT NULL,
	name               TEXT NOT NULL,
	academic_title     TEXT,
	first_name         TEXT,
	last_name          TEXT,
	email              TEXT,
	website            TEXT,
	telephone          TEXT,
	accessible         TEXT,
	city               TEXT NOT NULL,
	plz                TEXT,
	street             TEXT,
	house              TEXT,
	offers             TEXT[] NOT NULL DEFAULT '{}',
	attributes         TEXT[] NOT NULL DEFAULT '{}',
	specials           TEXT,
	subject            TEXT,
	min_age            INTEGER,
	approved           BOOLEAN NOT NULL DEFAULT FALSE,
	blocked            BOOLEAN NOT NULL DEFAULT FALSE,
	possible_duplicate TEXT,
	approved_by        TEXT,
	approved_at        TIMESTAMPTZ,
	submitted_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	location           geography(Point, 4326)
);

CREATE INDEX IF NOT EXISTS idx_entries_type ON entries(type);
CREATE INDEX IF NOT EXISTS idx_entries_visible ON entries(approved, blocked);
CREATE INDEX IF NOT EXISTS idx_entries_recency ON entries(approved_at DESC NULLS LAST, submitted_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_entries_location ON entries USING GIST(location);
CREATE INDEX IF NOT EXISTS idx_entries_offers ON entries USING GIN(offers);
CREATE INDEX IF NOT EXISTS idx_entries_attributes ON entries USING GIN(attributes);

CREATE TABLE IF NOT EXISTS geodata (
	id                 BIGINT PRIMARY KEY,
	name               TEXT NOT NULL,
	ascii              TEXT NOT NULL DEFAULT '',
	plz                TEXT NOT NULL DEFAULT '',
	level              INTEGER NOT NULL DEFAULT 0,
	location           geography(Point, 4326),
	reference_location geography(Point, 4326),
	search             tsvector GENERATED ALWAYS AS (
		to_tsvector('simple'::regconfig, name || ' ' || plz || ' ' || ascii)
	) STORED
);

CREATE INDEX IF NOT EXISTS idx_geodata_search ON geodata USING GIN(search);
CREATE INDEX IF NOT EXISTS idx_geodata_location ON geodata USING GIST(location);

CREATE TABLE IF NOT EXISTS moderators (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL,
	admin      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_moderators_username ON moderators(username);

CREATE TABLE IF NOT EXISTS collection_meta (
	id          SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	last_change TIMESTAMPTZ,
	last_export TIMESTAMPTZ
);

INSERT INTO collection_meta (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
`

// Migrate creates the schema. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Close releases the pool when this store created it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
