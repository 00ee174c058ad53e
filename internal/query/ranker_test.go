package query

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/geo"
)

func ids(entries []*entry.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestRank_RecencyOrder(t *testing.T) {
	older := approvedEntry(1, "group")
	newer := approvedEntry(2, "group")
	sameApproval := approvedEntry(3, "group")
	sameApproval.ApprovedTimestamp = newer.ApprovedTimestamp
	sameApproval.SubmittedTimestamp = newer.SubmittedTimestamp.Add(time.Minute)
	unapproved := approvedEntry(9, "group")
	unapproved.ApprovedTimestamp = nil

	src := &sliceSource{entries: []*entry.Entry{older, unapproved, newer, sameApproval}}
	r := NewRanker(src, 10, nil)

	page, err := r.Rank(context.Background(), All(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"e-003", "e-002", "e-001", "e-009"}, ids(page.Entries))
	assert.False(t, page.More)
}

func TestRank_IDBreaksFullTies(t *testing.T) {
	a := approvedEntry(1, "group")
	b := approvedEntry(1, "group")
	b.ID = "e-100"

	src := &sliceSource{entries: []*entry.Entry{a, b}}
	page, err := NewRanker(src, 10, nil).Rank(context.Background(), All(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"e-100", "e-001"}, ids(page.Entries))
}

func TestRank_PaginationComplete(t *testing.T) {
	src := &sliceSource{entries: fixture()}
	full, err := NewRanker(src, 100, nil).Rank(context.Background(), Public(Criteria{}), nil, 0)
	require.NoError(t, err)
	require.Len(t, full.Entries, 28)

	r := NewRanker(src, 4, nil)
	var concat []string
	pages := 0
	for page := 0; ; page++ {
		p, err := r.Rank(context.Background(), Public(Criteria{}), nil, page)
		require.NoError(t, err)
		pages++
		concat = append(concat, ids(p.Entries)...)
		assert.Equal(t, len(p.Entries) == 4, p.More)
		if !p.More {
			break
		}
	}

	assert.Equal(t, ids(full.Entries), concat)
	assert.Equal(t, 8, pages, "a full last page reports more")
	assert.Equal(t, 28, src.last.Offset)
	assert.Equal(t, 4, src.last.Limit)
}

func TestRank_Idempotent(t *testing.T) {
	src := &sliceSource{entries: fixture()}
	r := NewRanker(src, 5, nil)

	a, err := r.Rank(context.Background(), Public(Criteria{Attributes: []string{"remote"}}), nil, 1)
	require.NoError(t, err)
	b, err := r.Rank(context.Background(), Public(Criteria{Attributes: []string{"remote"}}), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, ids(a.Entries), ids(b.Entries))
}

func TestRank_NegativePageIsFirst(t *testing.T) {
	src := &sliceSource{entries: fixture()}
	_, err := NewRanker(src, 5, nil).Rank(context.Background(), All(), nil, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, src.last.Offset)
}

func TestRank_PageBeyondOffsetRangeIsEmpty(t *testing.T) {
	src := &sliceSource{entries: fixture()}
	r := NewRanker(src, 4, nil)

	for _, page := range []int{math.MaxInt/4 + 1, math.MaxInt} {
		p, err := r.Rank(context.Background(), All(), nil, page)
		require.NoError(t, err)
		assert.Empty(t, p.Entries)
		assert.False(t, p.More)
	}
	assert.Equal(t, Query{}, src.last, "store not queried")

	p, err := r.Rank(context.Background(), All(), nil, math.MaxInt/4)
	require.NoError(t, err)
	assert.Empty(t, p.Entries)
	assert.Equal(t, math.MaxInt/4*4, src.last.Offset)
}

func TestRank_GeoOrderAndRounding(t *testing.T) {
	pivot := geo.NewPoint(13.4050, 52.5200)
	src := &sliceSource{entries: fixture()}
	r := NewRanker(src, 10, nil)

	page, err := r.Rank(context.Background(), Public(Criteria{}), &pivot, 0)
	require.NoError(t, err)
	require.NotEmpty(t, page.Entries)

	prev := -1.0
	for _, e := range page.Entries {
		require.NotNil(t, e.Location, "geo mode only returns geocoded entries")
		require.NotNil(t, e.Distance)
		assert.Equal(t, geo.RoundKm(*e.Distance), *e.Distance)
		assert.GreaterOrEqual(t, *e.Distance, prev)
		prev = *e.Distance
	}
}

func TestRankPublic_AppliesOutputFilter(t *testing.T) {
	pivot := geo.NewPoint(13.4050, 52.5200)
	src := &sliceSource{entries: fixture()}
	r := NewRanker(src, 10, nil)

	page, err := r.RankPublic(context.Background(), Public(Criteria{}), &pivot, 0)
	require.NoError(t, err)
	require.NotEmpty(t, page.Entries)
	for _, e := range page.Entries {
		assert.Nil(t, e.ApprovedBy)
		assert.Nil(t, e.ApprovedTimestamp)
		assert.True(t, e.SubmittedTimestamp.IsZero())
		assert.Nil(t, e.Location)
		assert.NotNil(t, e.Distance)
	}
}

type countingFilter struct{ calls int }

func (c *countingFilter) Filter(es []*entry.Entry) []*entry.Entry {
	c.calls++
	return es
}

func TestRankPublic_UsesInjectedFilter(t *testing.T) {
	out := &countingFilter{}
	r := NewRanker(&sliceSource{}, 10, out)

	page, err := r.RankPublic(context.Background(), All(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.NotNil(t, page.Entries)
	assert.Equal(t, 1, out.calls)
}

func TestRank_SourceError(t *testing.T) {
	r := NewRanker(&sliceSource{err: errors.New("db down")}, 10, nil)

	_, err := r.Rank(context.Background(), All(), nil, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "ORDER BY distance ASC, id ASC", OrderBy(true))
	assert.Equal(t, "ORDER BY approved_at DESC NULLS LAST, submitted_at DESC, id DESC", OrderBy(false))
}

func TestNewRanker_Defaults(t *testing.T) {
	r := NewRanker(&sliceSource{}, 0, nil)
	assert.Equal(t, DefaultPageSize, r.PageSize())
}
