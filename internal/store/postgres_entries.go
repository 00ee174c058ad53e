package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/geo"
	"github.com/sells-group/provider-directory/internal/query"
)

const entrySelect = `id, type, name, academic_title, first_name, last_name, email, website, telephone, accessible,
	city, plz, street, house, offers, attributes, specials, subject, min_age,
	approved, blocked, possible_duplicate, approved_by, approved_at, submitted_at,
	ST_AsEWKB(location::geometry)`

func scanEntry(row pgx.Row, withDistance bool) (*entry.Entry, error) {
	var e entry.Entry
	var loc []byte

	dest := []any{
		&e.ID, &e.Type, &e.Name, &e.AcademicTitle, &e.FirstName, &e.LastName,
		&e.Email, &e.Website, &e.Telephone, &e.Accessible,
		&e.Address.City, &e.Address.Plz, &e.Address.Street, &e.Address.House,
		&e.Meta.Offers, &e.Meta.Attributes, &e.Meta.Specials, &e.Meta.Subject, &e.Meta.MinAge,
		&e.Approved, &e.Blocked, &e.PossibleDuplicate, &e.ApprovedBy, &e.ApprovedTimestamp, &e.SubmittedTimestamp,
		&loc,
	}
	if withDistance {
		dest = append(dest, &e.Distance)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if len(loc) > 0 {
		p, err := geo.PointFromEWKB(loc)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: decode location of %s", e.ID)
		}
		e.Location = &p
	}
	if len(e.Meta.Offers) == 0 {
		e.Meta.Offers = nil
	}
	if len(e.Meta.Attributes) == 0 {
		e.Meta.Attributes = nil
	}
	return &e, nil
}

func collectEntries(rows pgx.Rows, withDistance bool, action string) ([]*entry.Entry, error) {
	defer rows.Close()

	var out []*entry.Entry
	for rows.Next() {
		e, err := scanEntry(rows, withDistance)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: %s scan", action)
		}
		out = append(out, e)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: %s iterate", action)
}

func tags(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func locationArg(p *geo.Point) (any, error) {
	if p == nil {
		return nil, nil
	}
	b, err := p.EWKB()
	if err != nil {
		return nil, err
	}
	return b, nil
}

// InsertEntry stores a new entry including its location, if any.
func (s *PostgresStore) InsertEntry(ctx context.Context, e *entry.Entry) error {
	loc, err := locationArg(e.Location)
	if err != nil {
		return eris.Wrap(err, "postgres: encode location")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO entries (
			id, type, name, academic_title, first_name, last_name, email, website, telephone, accessible,
			city, plz, street, house, offers, attributes, specials, subject, min_age,
			approved, blocked, possible_duplicate, approved_by, approved_at, submitted_at, location
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, ST_GeomFromEWKB($26)::geography
		)`,
		e.ID, e.Type, e.Name, e.AcademicTitle, e.FirstName, e.LastName, e.Email, e.Website, e.Telephone, e.Accessible,
		e.Address.City, e.Address.Plz, e.Address.Street, e.Address.House,
		tags(e.Meta.Offers), tags(e.Meta.Attributes), e.Meta.Specials, e.Meta.Subject, e.Meta.MinAge,
		e.Approved, e.Blocked, e.PossibleDuplicate, e.ApprovedBy, e.ApprovedTimestamp, e.SubmittedTimestamp, loc,
	)
	return eris.Wrapf(err, "postgres: insert entry %s", e.ID)
}

// GetEntry loads one entry by id.
func (s *PostgresStore) GetEntry(ctx context.Context, id string) (*entry.Entry, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+entrySelect+` FROM entries WHERE id = $1`, id)
	e, err := scanEntry(row, false)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "entry %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get entry %s", id)
	}
	return e, nil
}

// UpdateEntry rewrites the mutable columns of one entry in a single statement.
func (s *PostgresStore) UpdateEntry(ctx context.Context, e *entry.Entry) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE entries SET
			type = $2, name = $3, academic_title = $4, first_name = $5, last_name = $6,
			email = $7, website = $8, telephone = $9, accessible = $10,
			city = $11, plz = $12, street = $13, house = $14,
			offers = $15, attributes = $16, specials = $17, subject = $18, min_age = $19,
			approved = $20, blocked = $21, possible_duplicate = $22, approved_by = $23, approved_at = $24
		WHERE id = $1`,
		e.ID, e.Type, e.Name, e.AcademicTitle, e.FirstName, e.LastName,
		e.Email, e.Website, e.Telephone, e.Accessible,
		e.Address.City, e.Address.Plz, e.Address.Street, e.Address.House,
		tags(e.Meta.Offers), tags(e.Meta.Attributes), e.Meta.Specials, e.Meta.Subject, e.Meta.MinAge,
		e.Approved, e.Blocked, e.PossibleDuplicate, e.ApprovedBy, e.ApprovedTimestamp,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update entry %s", e.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "entry %s", e.ID)
	}
	return nil
}

// SetLocation writes or clears the location of one entry.
func (s *PostgresStore) SetLocation(ctx context.Context, id string, p *geo.Point) (bool, error) {
	loc, err := locationArg(p)
	if err != nil {
		return false, eris.Wrap(err, "postgres: encode location")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE entries SET location = ST_GeomFromEWKB($2)::geography WHERE id = $1`,
		id, loc,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: set location %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteEntry removes one entry.
func (s *PostgresStore) DeleteEntry(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: delete entry %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

// buildQuery renders q as one SELECT. In geo mode ungeocoded entries are
// excluded and the km distance to the pivot is selected as "distance".
func buildQuery(q query.Query) (string, []any) {
	args := &query.Args{}

	where := q.Where
	if where == nil {
		where = query.All()
	}
	cond := where.SQL(args)

	distance := "NULL::float8"
	if q.Pivot != nil {
		distance = fmt.Sprintf(
			"ST_Distance(location, ST_SetSRID(ST_MakePoint(%s, %s), 4326)::geography) / 1000",
			args.Add(q.Pivot.Lng), args.Add(q.Pivot.Lat),
		)
		cond = "location IS NOT NULL AND " + cond
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s, %s AS distance FROM entries WHERE %s %s", entrySelect, distance, cond, query.OrderBy(q.Pivot != nil))
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %s", args.Add(q.Limit))
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %s", args.Add(q.Offset))
	}
	return b.String(), args.Values
}

// Query runs one page request.
func (s *PostgresStore) Query(ctx context.Context, q query.Query) ([]*entry.Entry, error) {
	sql, args := buildQuery(q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query entries")
	}
	return collectEntries(rows, true, "query entries")
}

// ListByType returns every entry of one kind.
func (s *PostgresStore) ListByType(ctx context.Context, kind string) ([]*entry.Entry, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+entrySelect+` FROM entries WHERE type = $1 ORDER BY id`, kind)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list %s entries", kind)
	}
	return collectEntries(rows, false, "list by type")
}

// AllEntries returns the whole collection in submission order.
func (s *PostgresStore) AllEntries(ctx context.Context) ([]*entry.Entry, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+entrySelect+` FROM entries ORDER BY submitted_at, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: all entries")
	}
	return collectEntries(rows, false, "all entries")
}

// Ungeocoded lists unblocked entries that still lack a location.
func (s *PostgresStore) Ungeocoded(ctx context.Context, limit int) ([]*entry.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+entrySelect+` FROM entries WHERE location IS NULL AND NOT blocked ORDER BY submitted_at, id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: ungeocoded entries")
	}
	return collectEntries(rows, false, "ungeocoded")
}
