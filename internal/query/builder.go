package query

import (
	"strings"

	"github.com/sells-group/provider-directory/internal/geo"
)

// Criteria are the optional public filter inputs. Zero values are ignored.
type Criteria struct {
	Type       string   `json:"type,omitempty"`
	Offers     []string `json:"offers,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Text       string   `json:"text,omitempty"`
	Accessible string   `json:"accessible,omitempty"`
	Page       int      `json:"page"`

	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"long,omitempty"`
	Location string   `json:"location,omitempty"`
}

// Lookup returns the geo input of c.
func (c Criteria) Lookup() geo.Lookup {
	return geo.Lookup{Lat: c.Lat, Lng: c.Lng, Text: c.Location}
}

// Match composes the criteria into one conjunctive predicate. Tag validity
// for the requested type is not checked here.
func (c Criteria) Match() Predicate {
	var ps []Predicate
	if c.Type != "" {
		ps = append(ps, Eq(FieldType, c.Type))
	}
	if len(c.Offers) > 0 {
		ps = append(ps, Overlaps(FieldOffers, c.Offers))
	}
	if len(c.Attributes) > 0 {
		ps = append(ps, Overlaps(FieldAttributes, c.Attributes))
	}
	if t := strings.TrimSpace(c.Text); t != "" {
		ps = append(ps, Text(t, FieldName, FieldFirstName, FieldLastName))
	}
	if c.Accessible != "" {
		ps = append(ps, Eq(FieldAccessible, c.Accessible))
	}
	return And(ps...)
}

// Published restricts to approved entries that are not blocked.
func Published() Predicate {
	return And(IsTrue(FieldApproved), IsNotTrue(FieldBlocked))
}

// Unapproved restricts to entries awaiting moderation that are not blocked.
func Unapproved() Predicate {
	return And(IsNotTrue(FieldApproved), IsNotTrue(FieldBlocked))
}

// Public is the predicate of the public listing.
func Public(c Criteria) Predicate {
	return And(Published(), c.Match())
}
