// Package query builds, compiles and ranks entry queries.
package query

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/geo"
)

// Predicate is a filter over entries. Every predicate can be evaluated in
// memory and rendered as a Postgres WHERE fragment; both agree on NULLs.
type Predicate interface {
	Match(e *entry.Entry) bool
	SQL(a *Args) string
}

// Args collects positional SQL parameters.
type Args struct {
	Values []any
}

// Add appends v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.Values = append(a.Values, v)
	return "$" + strconv.Itoa(len(a.Values))
}

type allPred struct{}

// All matches every entry.
func All() Predicate { return allPred{} }

func (allPred) Match(*entry.Entry) bool { return true }
func (allPred) SQL(*Args) string        { return "TRUE" }

type nonePred struct{}

// None matches no entry.
func None() Predicate { return nonePred{} }

func (nonePred) Match(*entry.Entry) bool { return false }
func (nonePred) SQL(*Args) string        { return "FALSE" }

type andPred []Predicate

// And matches when every p matches. And() is All().
func And(ps ...Predicate) Predicate {
	ps = slices.DeleteFunc(slices.Clone(ps), func(p Predicate) bool { return p == nil || p == allPred{} })
	switch len(ps) {
	case 0:
		return All()
	case 1:
		return ps[0]
	}
	return andPred(ps)
}

func (p andPred) Match(e *entry.Entry) bool {
	for _, c := range p {
		if !c.Match(e) {
			return false
		}
	}
	return true
}

func (p andPred) SQL(a *Args) string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.SQL(a)
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

type orPred []Predicate

// Or matches when any p matches. Or() is None().
func Or(ps ...Predicate) Predicate {
	ps = slices.DeleteFunc(slices.Clone(ps), func(p Predicate) bool { return p == nil })
	switch len(ps) {
	case 0:
		return None()
	case 1:
		return ps[0]
	}
	return orPred(ps)
}

func (p orPred) Match(e *entry.Entry) bool {
	for _, c := range p {
		if c.Match(e) {
			return true
		}
	}
	return false
}

func (p orPred) SQL(a *Args) string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.SQL(a)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

type notPred struct{ p Predicate }

// Not inverts p. A comparison against a missing value is false, so its
// negation is true.
func Not(p Predicate) Predicate { return notPred{p} }

func (p notPred) Match(e *entry.Entry) bool { return !p.p.Match(e) }
func (p notPred) SQL(a *Args) string {
	return "NOT COALESCE(" + p.p.SQL(a) + ", FALSE)"
}

type eqPred struct {
	f Field
	v any
}

// Eq matches entries whose field equals v.
func Eq(f Field, v any) Predicate { return eqPred{f, v} }

func (p eqPred) Match(e *entry.Entry) bool {
	got, ok := p.f.get(e)
	if !ok {
		return false
	}
	c, ok := compareValues(got, p.v)
	return ok && c == 0
}

func (p eqPred) SQL(a *Args) string {
	return p.f.Column + " = " + a.Add(p.v)
}

type inPred struct {
	f  Field
	vs []string
}

// In matches text fields equal to any of vs.
func In(f Field, vs []string) Predicate { return inPred{f, vs} }

func (p inPred) Match(e *entry.Entry) bool {
	got, ok := p.f.get(e)
	if !ok {
		return false
	}
	s, ok := got.(string)
	return ok && slices.Contains(p.vs, s)
}

func (p inPred) SQL(a *Args) string {
	return p.f.Column + " = ANY(" + a.Add(p.vs) + "::text[])"
}

type boolPred struct {
	f    Field
	want bool
}

// IsTrue matches entries whose boolean field is set.
func IsTrue(f Field) Predicate { return boolPred{f, true} }

// IsNotTrue matches entries whose boolean field is false or missing.
func IsNotTrue(f Field) Predicate { return boolPred{f, false} }

func (p boolPred) Match(e *entry.Entry) bool {
	got, _ := p.f.get(e)
	b, _ := got.(bool)
	return b == p.want
}

func (p boolPred) SQL(*Args) string {
	if p.want {
		return p.f.Column + " IS TRUE"
	}
	return p.f.Column + " IS NOT TRUE"
}

type overlapPred struct {
	f   Field
	vs  []string
	all bool
}

// Overlaps matches entries whose tag field shares at least one value with vs.
func Overlaps(f Field, vs []string) Predicate { return overlapPred{f: f, vs: vs} }

// ContainsAll matches entries whose tag field holds every value of vs.
func ContainsAll(f Field, vs []string) Predicate { return overlapPred{f: f, vs: vs, all: true} }

func (p overlapPred) Match(e *entry.Entry) bool {
	got, _ := p.f.get(e)
	tags, _ := got.([]string)
	if p.all {
		for _, v := range p.vs {
			if !slices.Contains(tags, v) {
				return false
			}
		}
		return true
	}
	for _, v := range p.vs {
		if slices.Contains(tags, v) {
			return true
		}
	}
	return false
}

func (p overlapPred) SQL(a *Args) string {
	op := " && "
	if p.all {
		op = " @> "
	}
	return p.f.Column + op + a.Add(p.vs) + "::text[]"
}

type textPred struct {
	fs      []Field
	pattern string
	re      *regexp.Regexp
}

// Text matches entries where any of fs contains s, case-insensitively.
// s is always taken literally.
func Text(s string, fs ...Field) Predicate {
	pattern := regexp.QuoteMeta(s)
	return textPred{fs: fs, pattern: pattern, re: regexp.MustCompile("(?i)" + pattern)}
}

func (p textPred) Match(e *entry.Entry) bool {
	for _, f := range p.fs {
		got, ok := f.get(e)
		if !ok {
			continue
		}
		if s, ok := got.(string); ok && p.re.MatchString(s) {
			return true
		}
	}
	return false
}

func (p textPred) SQL(a *Args) string {
	ph := a.Add(p.pattern)
	parts := make([]string, len(p.fs))
	for i, f := range p.fs {
		parts[i] = f.Column + " ~* " + ph
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// Comparison operators accepted by Cmp.
const (
	OpLT  = "<"
	OpLTE = "<="
	OpGT  = ">"
	OpGTE = ">="
)

type cmpPred struct {
	f  Field
	op string
	v  any
}

// Cmp orders field against v with one of the Op constants.
func Cmp(f Field, op string, v any) Predicate { return cmpPred{f, op, v} }

func (p cmpPred) Match(e *entry.Entry) bool {
	got, ok := p.f.get(e)
	if !ok {
		return false
	}
	c, ok := compareValues(got, p.v)
	if !ok {
		return false
	}
	switch p.op {
	case OpLT:
		return c < 0
	case OpLTE:
		return c <= 0
	case OpGT:
		return c > 0
	case OpGTE:
		return c >= 0
	}
	return false
}

func (p cmpPred) SQL(a *Args) string {
	return p.f.Column + " " + p.op + " " + a.Add(p.v)
}

type existsPred struct{ f Field }

// Exists matches entries where the field is populated.
func Exists(f Field) Predicate { return existsPred{f} }

func (p existsPred) Match(e *entry.Entry) bool {
	_, ok := p.f.get(e)
	return ok
}

func (p existsPred) SQL(*Args) string {
	switch p.f.Kind {
	case TagsField:
		return "cardinality(" + p.f.Column + ") > 0"
	case BoolField:
		return "TRUE"
	case TextField:
		return "COALESCE(" + p.f.Column + ", '') <> ''"
	}
	return p.f.Column + " IS NOT NULL"
}

type withinPred struct {
	pivot geo.Point
	km    float64
}

// Within matches geocoded entries at most km from pivot.
func Within(pivot geo.Point, km float64) Predicate { return withinPred{pivot, km} }

func (p withinPred) Match(e *entry.Entry) bool {
	return e.Location != nil && geo.Distance(*e.Location, p.pivot) <= p.km
}

func (p withinPred) SQL(a *Args) string {
	return fmt.Sprintf("ST_DWithin(location, ST_SetSRID(ST_MakePoint(%s, %s), %d)::geography, %s)",
		a.Add(p.pivot.Lng), a.Add(p.pivot.Lat), geo.SRID, a.Add(p.km*1000))
}
