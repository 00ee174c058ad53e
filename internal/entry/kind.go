package entry

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// ErrUnknownKind is returned by ParseKind for type strings without a variant.
var ErrUnknownKind = eris.New("entry: unknown type")

// Kind is the type discriminator of an entry. Each variant fixes the meta
// fields and tag sets its entries may carry. The set of variants is closed.
type Kind interface {
	Name() string
	rules() rules
}

type rules struct {
	attributes     []string
	offers         []string
	offersRequired bool
	minAge         bool
	subjects       []string
}

type (
	// Group is a self-help group or association.
	Group struct{}
	// Therapist is a therapist or psychiatrist.
	Therapist struct{}
	// Surveyor writes expert opinions.
	Surveyor struct{}
	// Endocrinologist is an endocrinological practice.
	Endocrinologist struct{}
	// Surgeon performs surgery.
	Surgeon struct{}
	// Logopedics is a speech therapist.
	Logopedics struct{}
	// HairRemoval offers hair removal.
	HairRemoval struct{}
	// Urologist is a urological practice.
	Urologist struct{}
	// Gynecologist is a gynecological practice.
	Gynecologist struct{}
	// GP is a general practitioner.
	GP struct{}
)

var medicalOffers = []string{"hrt", "medication"}

func (Group) Name() string { return "group" }
func (Group) rules() rules {
	return rules{
		attributes: []string{"trans", "regularMeetings", "consulting", "activities", "remote"},
		minAge:     true,
	}
}

func (Therapist) Name() string { return "therapist" }
func (Therapist) rules() rules {
	return rules{
		attributes:     []string{"selfPayedOnly", "youthOnly", "treatsNB", "remote"},
		offers:         []string{"indication", "therapy"},
		offersRequired: true,
		subjects:       []string{"therapist", "psychologist", "naturopath", "other"},
	}
}

func (Surveyor) Name() string { return "surveyor" }
func (Surveyor) rules() rules {
	return rules{attributes: []string{"enby", "remote"}}
}

func (Endocrinologist) Name() string { return "endocrinologist" }
func (Endocrinologist) rules() rules {
	return rules{attributes: []string{"treatsNB", "remote"}}
}

func (Surgeon) Name() string { return "surgeon" }
func (Surgeon) rules() rules {
	return rules{
		attributes: []string{"selfPayedOnly", "remote"},
		offers: []string{
			"mastectomy", "vaginPI", "vaginCombined", "ffs", "penoid", "breast",
			"hyst", "orch", "clitPI", "bodyfem", "glottoplasty", "fms",
		},
		offersRequired: true,
	}
}

func (Logopedics) Name() string { return "logopedics" }
func (Logopedics) rules() rules {
	return rules{attributes: []string{"remote"}}
}

func (HairRemoval) Name() string { return "hairremoval" }
func (HairRemoval) rules() rules {
	return rules{
		attributes:     []string{"insurancePay", "transfriendly", "hasDoctor"},
		offers:         []string{"laser", "ipl", "electro", "electroAE"},
		offersRequired: true,
	}
}

func (Urologist) Name() string { return "urologist" }
func (Urologist) rules() rules {
	return rules{
		attributes:     []string{"treatsNB", "transFem", "transMasc", "remote"},
		offers:         medicalOffers,
		offersRequired: true,
	}
}

func (Gynecologist) Name() string { return "gynecologist" }
func (Gynecologist) rules() rules {
	return rules{
		attributes:     []string{"treatsNB", "transFem", "transMasc", "remote"},
		offers:         medicalOffers,
		offersRequired: true,
	}
}

func (GP) Name() string { return "GP" }
func (GP) rules() rules {
	return rules{
		attributes:     []string{"treatsNB", "remote"},
		offers:         medicalOffers,
		offersRequired: true,
	}
}

// Kinds lists every variant in display order.
func Kinds() []Kind {
	return []Kind{
		Group{}, Therapist{}, Surveyor{}, Endocrinologist{}, Surgeon{},
		Logopedics{}, HairRemoval{}, Urologist{}, Gynecologist{}, GP{},
	}
}

// ParseKind maps a type string to its variant.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "group":
		return Group{}, nil
	case "therapist":
		return Therapist{}, nil
	case "surveyor":
		return Surveyor{}, nil
	case "endocrinologist":
		return Endocrinologist{}, nil
	case "surgeon":
		return Surgeon{}, nil
	case "logopedics":
		return Logopedics{}, nil
	case "hairremoval":
		return HairRemoval{}, nil
	case "urologist":
		return Urologist{}, nil
	case "gynecologist":
		return Gynecologist{}, nil
	case "GP":
		return GP{}, nil
	default:
		return nil, eris.Wrapf(ErrUnknownKind, "%q", s)
	}
}

// AllowsAttribute reports whether k accepts the attribute tag.
func AllowsAttribute(k Kind, tag string) bool {
	return slices.Contains(k.rules().attributes, tag)
}

// AllowsOffer reports whether k accepts the offer tag.
func AllowsOffer(k Kind, tag string) bool {
	return slices.Contains(k.rules().offers, tag)
}

// Sanitize drops every meta field and tag that k does not accept.
func Sanitize(k Kind, m Meta) Meta {
	r := k.rules()
	out := Meta{Specials: m.Specials}

	for _, a := range m.Attributes {
		if slices.Contains(r.attributes, a) && !slices.Contains(out.Attributes, a) {
			out.Attributes = append(out.Attributes, a)
		}
	}
	for _, o := range m.Offers {
		if slices.Contains(r.offers, o) && !slices.Contains(out.Offers, o) {
			out.Offers = append(out.Offers, o)
		}
	}
	if r.minAge {
		out.MinAge = m.MinAge
	}
	if m.Subject != nil && slices.Contains(r.subjects, *m.Subject) {
		out.Subject = m.Subject
	}

	return out
}

// Validate reports every rule of k that m violates.
func Validate(k Kind, m Meta) []string {
	r := k.rules()
	var problems []string

	for _, a := range m.Attributes {
		if !slices.Contains(r.attributes, a) {
			problems = append(problems, fmt.Sprintf("meta.attributes: %q not allowed for %s", a, k.Name()))
		}
	}
	switch {
	case len(r.offers) == 0 && len(m.Offers) > 0:
		problems = append(problems, fmt.Sprintf("meta.offers: not allowed for %s", k.Name()))
	case r.offersRequired && len(m.Offers) == 0:
		problems = append(problems, fmt.Sprintf("meta.offers: required for %s", k.Name()))
	default:
		for _, o := range m.Offers {
			if !slices.Contains(r.offers, o) {
				problems = append(problems, fmt.Sprintf("meta.offers: %q not allowed for %s", o, k.Name()))
			}
		}
	}
	if m.MinAge != nil {
		if !r.minAge {
			problems = append(problems, fmt.Sprintf("meta.minAge: not allowed for %s", k.Name()))
		} else if *m.MinAge < 0 {
			problems = append(problems, "meta.minAge: must be >= 0")
		}
	}
	if m.Subject == nil && len(r.subjects) > 0 {
		problems = append(problems, fmt.Sprintf("meta.subject: required for %s", k.Name()))
	}
	if m.Subject != nil {
		switch {
		case len(r.subjects) == 0:
			problems = append(problems, fmt.Sprintf("meta.subject: not allowed for %s", k.Name()))
		case !slices.Contains(r.subjects, *m.Subject):
			problems = append(problems, fmt.Sprintf("meta.subject: %q not allowed", *m.Subject))
		}
	}
	if m.Specials != nil && utf8.RuneCountInString(*m.Specials) > 280 {
		problems = append(problems, "meta.specials: at most 280 characters")
	}

	return problems
}
