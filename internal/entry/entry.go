// Package entry defines directory listings and their per-kind meta rules.
package entry

import (
	"time"

	"github.com/sells-group/provider-directory/internal/geo"
)

// Accessibility values.
const (
	AccessibleYes     = "yes"
	AccessibleNo      = "no"
	AccessibleUnknown = "unknown"
)

// Academic titles.
const (
	TitleDr     = "dr"
	TitleProf   = "prof"
	TitleProfDr = "prof_dr"
)

// Entry is a directory listing for a service provider or group.
type Entry struct {
	ID            string  `json:"id" yaml:"id"`
	Type          string  `json:"type" yaml:"type"`
	Name          string  `json:"name" yaml:"name"`
	AcademicTitle *string `json:"academicTitle,omitempty" yaml:"academicTitle,omitempty"`
	FirstName     *string `json:"firstName,omitempty" yaml:"firstName,omitempty"`
	LastName      *string `json:"lastName,omitempty" yaml:"lastName,omitempty"`
	Email         *string `json:"email,omitempty" yaml:"email,omitempty"`
	Website       *string `json:"website,omitempty" yaml:"website,omitempty"`
	Telephone     *string `json:"telephone,omitempty" yaml:"telephone,omitempty"`
	Accessible    *string `json:"accessible,omitempty" yaml:"accessible,omitempty"`
	Address       Address `json:"address" yaml:"address"`
	Meta          Meta    `json:"meta" yaml:"meta"`

	Approved           bool       `json:"approved" yaml:"approved"`
	Blocked            bool       `json:"blocked,omitempty" yaml:"blocked"`
	PossibleDuplicate  *string    `json:"possibleDuplicate,omitempty" yaml:"possibleDuplicate,omitempty"`
	ApprovedBy         *string    `json:"approvedBy,omitempty" yaml:"approvedBy,omitempty"`
	ApprovedTimestamp  *time.Time `json:"approvedTimestamp,omitempty" yaml:"approvedTimestamp,omitempty"`
	SubmittedTimestamp time.Time  `json:"submittedTimestamp,omitzero" yaml:"submittedTimestamp"`

	Location *geo.Point `json:"location,omitempty" yaml:"location,omitempty"`
	// Distance in km from the query pivot, set on geo-ranked results only.
	Distance *float64 `json:"distance,omitempty" yaml:"-"`
}

// Address is the postal address of an entry. Only City is mandatory.
type Address struct {
	City   string  `json:"city" yaml:"city"`
	Plz    *string `json:"plz,omitempty" yaml:"plz,omitempty"`
	Street *string `json:"street,omitempty" yaml:"street,omitempty"`
	House  *string `json:"house,omitempty" yaml:"house,omitempty"`
}

// Meta holds the kind-dependent details of an entry.
type Meta struct {
	Offers     []string `json:"offers,omitempty" yaml:"offers,omitempty"`
	Attributes []string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Specials   *string  `json:"specials,omitempty" yaml:"specials,omitempty"`
	MinAge     *int     `json:"minAge,omitempty" yaml:"minAge,omitempty"`
	Subject    *string  `json:"subject,omitempty" yaml:"subject,omitempty"`
}

// IsEmpty reports whether no meta field is populated.
func (m Meta) IsEmpty() bool {
	return len(m.Offers) == 0 && len(m.Attributes) == 0 && m.Specials == nil && m.MinAge == nil && m.Subject == nil
}

// Clone returns a deep copy so callers can mutate the result freely.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.AcademicTitle = cloneStr(e.AcademicTitle)
	c.FirstName = cloneStr(e.FirstName)
	c.LastName = cloneStr(e.LastName)
	c.Email = cloneStr(e.Email)
	c.Website = cloneStr(e.Website)
	c.Telephone = cloneStr(e.Telephone)
	c.Accessible = cloneStr(e.Accessible)
	c.Address.Plz = cloneStr(e.Address.Plz)
	c.Address.Street = cloneStr(e.Address.Street)
	c.Address.House = cloneStr(e.Address.House)
	c.Meta.Offers = append([]string(nil), e.Meta.Offers...)
	c.Meta.Attributes = append([]string(nil), e.Meta.Attributes...)
	c.Meta.Specials = cloneStr(e.Meta.Specials)
	c.Meta.Subject = cloneStr(e.Meta.Subject)
	if e.Meta.MinAge != nil {
		v := *e.Meta.MinAge
		c.Meta.MinAge = &v
	}
	c.PossibleDuplicate = cloneStr(e.PossibleDuplicate)
	c.ApprovedBy = cloneStr(e.ApprovedBy)
	if e.ApprovedTimestamp != nil {
		ts := *e.ApprovedTimestamp
		c.ApprovedTimestamp = &ts
	}
	if e.Location != nil {
		p := *e.Location
		c.Location = &p
	}
	if e.Distance != nil {
		d := *e.Distance
		c.Distance = &d
	}
	return &c
}

// AddressEqual reports whether two addresses are field-wise identical.
func AddressEqual(a, b Address) bool {
	return a.City == b.City && strEqual(a.Plz, b.Plz) && strEqual(a.Street, b.Street) && strEqual(a.House, b.House)
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func strEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
