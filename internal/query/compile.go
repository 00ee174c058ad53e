package query

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/geo"
)

// ErrCompilation marks an admin filter that could not be compiled. It is
// distinct from a filter that compiles and matches nothing.
var ErrCompilation = eris.New("query: compilation failed")

const maxDepth = 16

// Filter operators.
const (
	OpEq       = "eq"
	OpNe       = "ne"
	OpIn       = "in"
	OpContains = "contains"
	OpExists   = "exists"
	OpOverlaps = "overlaps"
	OpAll      = "all"
	OpGt       = "gt"
	OpGte      = "gte"
	OpLt       = "lt"
	OpLte      = "lte"
)

// Expression is an admin filter node: either a group (And, Or, Not) or a
// single condition (Field, Op, Value).
type Expression struct {
	And []Expression `json:"and,omitempty"`
	Or  []Expression `json:"or,omitempty"`
	Not *Expression  `json:"not,omitempty"`

	Field string          `json:"field,omitempty"`
	Op    string          `json:"op,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// LocationFilter orders admin results by distance from a named place,
// optionally limited to a radius in km.
type LocationFilter struct {
	LocationName string  `json:"locationName"`
	Distance     float64 `json:"distance,omitempty"`
}

// AdminFilter is the body of a full admin query.
type AdminFilter struct {
	Filter   *Expression     `json:"filter"`
	Location *LocationFilter `json:"location,omitempty"`
	Page     int             `json:"page"`
}

// NameResolver maps moderator user names to their ids, so expressions can
// match approvedBy by name.
type NameResolver interface {
	IDsFor(ctx context.Context, username string) ([]string, error)
}

// Compiler turns admin expressions into predicates.
type Compiler struct {
	names NameResolver
}

// NewCompiler creates a Compiler. names may be nil, in which case
// approvedBy is matched by raw id.
func NewCompiler(names NameResolver) *Compiler {
	return &Compiler{names: names}
}

// Compile translates expr. With a pivot and a positive radiusKm the result
// is restricted to entries within that radius. Every failure wraps
// ErrCompilation.
func (c *Compiler) Compile(ctx context.Context, expr *Expression, pivot *geo.Point, radiusKm float64) (Predicate, error) {
	p := All()
	if expr != nil {
		var err error
		p, err = c.compile(ctx, *expr, 0)
		if err != nil {
			return nil, err
		}
	}
	if pivot != nil && radiusKm > 0 {
		p = And(p, Within(*pivot, radiusKm))
	}
	return p, nil
}

func (c *Compiler) compile(ctx context.Context, x Expression, depth int) (Predicate, error) {
	if depth > maxDepth {
		return nil, eris.Wrapf(ErrCompilation, "nesting deeper than %d", maxDepth)
	}

	groups := 0
	for _, set := range []bool{x.And != nil, x.Or != nil, x.Not != nil, x.Field != ""} {
		if set {
			groups++
		}
	}
	if groups != 1 {
		return nil, eris.Wrap(ErrCompilation, "node must hold exactly one of and, or, not, field")
	}

	switch {
	case x.And != nil, x.Or != nil:
		children := x.And
		if x.Or != nil {
			children = x.Or
		}
		if len(children) == 0 {
			return nil, eris.Wrap(ErrCompilation, "empty group")
		}
		ps := make([]Predicate, 0, len(children))
		for _, child := range children {
			p, err := c.compile(ctx, child, depth+1)
			if err != nil {
				return nil, err
			}
			ps = append(ps, p)
		}
		if x.And != nil {
			return And(ps...), nil
		}
		return Or(ps...), nil
	case x.Not != nil:
		p, err := c.compile(ctx, *x.Not, depth+1)
		if err != nil {
			return nil, err
		}
		return Not(p), nil
	default:
		return c.condition(ctx, x)
	}
}

func (c *Compiler) condition(ctx context.Context, x Expression) (Predicate, error) {
	f, ok := LookupField(x.Field)
	if !ok {
		return nil, eris.Wrapf(ErrCompilation, "unknown field %q", x.Field)
	}

	if x.Op == OpExists {
		want := true
		if len(x.Value) > 0 {
			if err := json.Unmarshal(x.Value, &want); err != nil {
				return nil, eris.Wrapf(ErrCompilation, "%s: exists expects a boolean", f.Name)
			}
		}
		if want {
			return Exists(f), nil
		}
		return Not(Exists(f)), nil
	}

	if f.Name == FieldApprovedBy.Name && c.names != nil {
		return c.approvedBy(ctx, f, x)
	}

	switch f.Kind {
	case TagsField:
		var vs []string
		if err := decodeStrings(x.Value, &vs); err != nil {
			return nil, eris.Wrapf(ErrCompilation, "%s: expects a string list", f.Name)
		}
		switch x.Op {
		case OpOverlaps, OpIn, OpContains:
			return Overlaps(f, vs), nil
		case OpAll, OpEq:
			return ContainsAll(f, vs), nil
		case OpNe:
			return Not(Overlaps(f, vs)), nil
		}
	case TextField:
		switch x.Op {
		case OpIn:
			var vs []string
			if err := json.Unmarshal(x.Value, &vs); err != nil {
				return nil, eris.Wrapf(ErrCompilation, "%s: in expects a string list", f.Name)
			}
			return In(f, vs), nil
		case OpEq, OpNe, OpContains, OpGt, OpGte, OpLt, OpLte:
			var v string
			if err := json.Unmarshal(x.Value, &v); err != nil {
				return nil, eris.Wrapf(ErrCompilation, "%s: expects a string", f.Name)
			}
			if x.Op == OpContains {
				return Text(v, f), nil
			}
			if p, ok := scalar(f, x.Op, v); ok {
				return p, nil
			}
		}
	case BoolField:
		var v bool
		if err := json.Unmarshal(x.Value, &v); err != nil {
			return nil, eris.Wrapf(ErrCompilation, "%s: expects a boolean", f.Name)
		}
		switch x.Op {
		case OpEq:
			return boolIs(f, v), nil
		case OpNe:
			return boolIs(f, !v), nil
		}
	case IntField:
		var v int
		if err := json.Unmarshal(x.Value, &v); err != nil {
			return nil, eris.Wrapf(ErrCompilation, "%s: expects an integer", f.Name)
		}
		if p, ok := scalar(f, x.Op, v); ok {
			return p, nil
		}
	case TimeField:
		var raw string
		if err := json.Unmarshal(x.Value, &raw); err != nil {
			return nil, eris.Wrapf(ErrCompilation, "%s: expects an RFC 3339 timestamp", f.Name)
		}
		v, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, eris.Wrapf(ErrCompilation, "%s: expects an RFC 3339 timestamp", f.Name)
		}
		if p, ok := scalar(f, x.Op, v.UTC()); ok {
			return p, nil
		}
	}

	return nil, eris.Wrapf(ErrCompilation, "%s: operator %q not supported for %s fields", f.Name, x.Op, f.Kind)
}

// approvedBy matches moderators by user name.
func (c *Compiler) approvedBy(ctx context.Context, f Field, x Expression) (Predicate, error) {
	var names []string
	switch x.Op {
	case OpEq, OpNe:
		var v string
		if err := json.Unmarshal(x.Value, &v); err != nil {
			return nil, eris.Wrapf(ErrCompilation, "%s: expects a string", f.Name)
		}
		names = []string{v}
	case OpIn:
		if err := json.Unmarshal(x.Value, &names); err != nil {
			return nil, eris.Wrapf(ErrCompilation, "%s: in expects a string list", f.Name)
		}
	default:
		return nil, eris.Wrapf(ErrCompilation, "%s: operator %q not supported", f.Name, x.Op)
	}

	var ids []string
	for _, name := range names {
		found, err := c.names.IDsFor(ctx, name)
		if err != nil {
			return nil, eris.Wrapf(err, "query: resolve moderator %q", name)
		}
		ids = append(ids, found...)
	}

	p := In(f, ids)
	if x.Op == OpNe {
		return Not(p), nil
	}
	return p, nil
}

func scalar(f Field, op string, v any) (Predicate, bool) {
	switch op {
	case OpEq:
		return Eq(f, v), true
	case OpNe:
		return Not(Eq(f, v)), true
	case OpGt:
		return Cmp(f, OpGT, v), true
	case OpGte:
		return Cmp(f, OpGTE, v), true
	case OpLt:
		return Cmp(f, OpLT, v), true
	case OpLte:
		return Cmp(f, OpLTE, v), true
	}
	return nil, false
}

func boolIs(f Field, v bool) Predicate {
	if v {
		return IsTrue(f)
	}
	return IsNotTrue(f)
}

// decodeStrings accepts a single string or a list of strings.
func decodeStrings(raw json.RawMessage, out *[]string) error {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		*out = []string{one}
		return nil
	}
	return json.Unmarshal(raw, out)
}
