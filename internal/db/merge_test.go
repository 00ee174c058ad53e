package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placesMerge() Merge {
	return Merge{
		Target:  "geodata",
		Columns: []string{"id", "name", "ascii"},
		Key:     []string{"id"},
	}
}

func TestMerge_Validate(t *testing.T) {
	tests := []struct {
		name string
		m    Merge
		want string
	}{
		{"no target", Merge{Columns: []string{"id"}, Key: []string{"id"}}, "no target"},
		{"no columns", Merge{Target: "geodata", Key: []string{"id"}}, "no columns"},
		{"no key", Merge{Target: "geodata", Columns: []string{"id"}}, "no key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.m.Run(context.Background(), nil, [][]any{{1}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMerge_NoRows(t *testing.T) {
	n, err := placesMerge().Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMerge_SQL(t *testing.T) {
	m := placesMerge()
	assert.Equal(t,
		`CREATE TEMP TABLE "_stage_geodata" (LIKE "geodata" INCLUDING DEFAULTS) ON COMMIT DROP`,
		m.stageSQL())
	assert.Equal(t,
		`INSERT INTO "geodata" ("id", "name", "ascii") SELECT "id", "name", "ascii" FROM "_stage_geodata" `+
			`ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name", "ascii" = EXCLUDED."ascii"`,
		m.mergeSQL())

	m.Keep = []string{"name", "ascii"}
	assert.Contains(t, m.mergeSQL(), `ON CONFLICT ("id") DO NOTHING`)
}

func TestIdent(t *testing.T) {
	assert.Equal(t, `"geodata"`, ident("geodata"))
	assert.Equal(t, `"public"."geodata"`, ident("public.geodata"))
	assert.Equal(t, `"_stage_public_geodata"`, ident(Merge{Target: "public.geodata"}.staging()))
	assert.Equal(t, `"id", "plz"`, identList([]string{"id", "plz"}))
}

func TestMerge_RunBatches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"id", "name", "ascii"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_stage_geodata"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_geodata"}, cols).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_geodata"}, cols).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "geodata" .* ON CONFLICT \("id"\) DO UPDATE`).
		WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectCommit()

	m := placesMerge()
	m.BatchSize = 2
	n, err := m.Run(context.Background(), mock, [][]any{
		{1, "Berlin", "BERLIN"},
		{2, "Köln", "KOELN"},
		{3, "Potsdam", "POTSDAM"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerge_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_geodata"}, []string{"id", "name", "ascii"}).
		WillReturnError(errors.New("broken pipe"))
	mock.ExpectRollback()

	_, err = placesMerge().Run(context.Background(), mock, [][]any{{1, "Berlin", "BERLIN"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy geodata rows 0-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerge_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	_, err = placesMerge().Run(context.Background(), mock, [][]any{{1, "Berlin", "BERLIN"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}
