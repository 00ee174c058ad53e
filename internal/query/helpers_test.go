package query

import (
	"context"
	"fmt"
	"time"

	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/geo"
)

func ptr[T any](v T) *T { return &v }

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// sliceSource answers queries from a fixed slice the way the stores do.
type sliceSource struct {
	entries []*entry.Entry
	err     error
	last    Query
}

func (s *sliceSource) Query(_ context.Context, q Query) ([]*entry.Entry, error) {
	s.last = q
	if s.err != nil {
		return nil, s.err
	}
	var hits []*entry.Entry
	for _, e := range s.entries {
		if q.Pivot != nil && e.Location == nil {
			continue
		}
		if q.Where.Match(e) {
			hits = append(hits, e.Clone())
		}
	}
	Sort(hits, q.Pivot)
	if q.Offset >= len(hits) {
		return nil, nil
	}
	hits = hits[q.Offset:]
	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

func approvedEntry(i int, kind string) *entry.Entry {
	at := base.Add(time.Duration(i) * time.Hour)
	return &entry.Entry{
		ID:                 fmt.Sprintf("e-%03d", i),
		Type:               kind,
		Name:               fmt.Sprintf("Praxis %d", i),
		Address:            entry.Address{City: "Berlin"},
		Approved:           true,
		ApprovedBy:         ptr("mod-1"),
		ApprovedTimestamp:  &at,
		SubmittedTimestamp: at.Add(-time.Hour),
	}
}

// fixture is a mixed data set covering every criterion.
func fixture() []*entry.Entry {
	var out []*entry.Entry
	kinds := []string{"surgeon", "therapist", "group"}
	offers := [][]string{{"mastectomy", "ffs"}, {"indication"}, nil}
	attrs := [][]string{{"remote"}, {"treatsNB", "remote"}, {"trans"}}
	access := []string{"yes", "no", "unknown"}
	for i := 0; i < 30; i++ {
		e := approvedEntry(i, kinds[i%3])
		e.Meta.Offers = offers[i%3]
		e.Meta.Attributes = attrs[(i/3)%3]
		e.Accessible = ptr(access[(i/2)%3])
		if i%4 == 0 {
			e.FirstName = ptr("Anna")
			e.LastName = ptr(fmt.Sprintf("Meier-%d", i))
		}
		if i%5 == 0 {
			e.Location = ptr(geo.NewPoint(13.4+float64(i)*0.01, 52.5))
		}
		out = append(out, e)
	}
	// Moderation states.
	out[1].Blocked = true
	out[2].Approved = false
	out[2].ApprovedBy = nil
	out[2].ApprovedTimestamp = nil
	return out
}
