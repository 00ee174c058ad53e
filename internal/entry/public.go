package entry

import "time"

// Public returns a copy of e without the moderator-only fields
// (approvedBy, timestamps, raw location, blocked). Distance survives.
func Public(e *Entry) *Entry {
	if e == nil {
		return nil
	}
	p := e.Clone()
	p.ApprovedBy = nil
	p.ApprovedTimestamp = nil
	p.SubmittedTimestamp = time.Time{}
	p.Location = nil
	p.Blocked = false
	return p
}

// OutputFilter strips moderator-only data from entries leaving the public
// boundary.
type OutputFilter interface {
	Filter(entries []*Entry) []*Entry
}

// PublicFilter is the OutputFilter used for anonymous callers.
type PublicFilter struct{}

// Filter implements OutputFilter.
func (PublicFilter) Filter(entries []*Entry) []*Entry {
	out := make([]*Entry, len(entries))
	for i, e := range entries {
		out[i] = Public(e)
	}
	return out
}
