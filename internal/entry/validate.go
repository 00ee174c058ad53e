package entry

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

var (
	academicTitles = []string{TitleDr, TitleProf, TitleProfDr}
	accessibility  = []string{AccessibleYes, AccessibleNo, AccessibleUnknown}
)

// Validate checks field presence and lengths and the kind's meta rules.
// It returns one message per violation; an empty result means valid.
func (e *Entry) Validate() []string {
	k, err := ParseKind(e.Type)
	if err != nil {
		return []string{fmt.Sprintf("type: %q is not a known type", e.Type)}
	}

	var problems []string
	check := func(field string, v *string, lo, hi int) {
		if v == nil {
			return
		}
		if n := utf8.RuneCountInString(*v); n < lo || n > hi {
			problems = append(problems, fmt.Sprintf("%s: length must be between %d and %d", field, lo, hi))
		}
	}

	name := e.Name
	check("name", &name, 1, 160)
	check("firstName", e.FirstName, 2, 30)
	check("lastName", e.LastName, 2, 30)
	check("email", e.Email, 5, 320)
	check("website", e.Website, 5, 500)
	check("telephone", e.Telephone, 5, 30)
	city := e.Address.City
	check("address.city", &city, 2, 50)
	check("address.plz", e.Address.Plz, 0, 10)
	check("address.street", e.Address.Street, 0, 50)
	check("address.house", e.Address.House, 0, 10)

	if e.AcademicTitle != nil && !slices.Contains(academicTitles, *e.AcademicTitle) {
		problems = append(problems, fmt.Sprintf("academicTitle: %q not allowed", *e.AcademicTitle))
	}
	if e.Accessible != nil && !slices.Contains(accessibility, *e.Accessible) {
		problems = append(problems, fmt.Sprintf("accessible: %q not allowed", *e.Accessible))
	}

	return append(problems, Validate(k, e.Meta)...)
}
