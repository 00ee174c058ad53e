package query

import (
	"time"

	"github.com/sells-group/provider-directory/internal/entry"
)

// FieldKind is the value type of a queryable field.
type FieldKind int

// Field kinds.
const (
	TextField FieldKind = iota
	TagsField
	BoolField
	IntField
	TimeField
)

func (k FieldKind) String() string {
	switch k {
	case TextField:
		return "text"
	case TagsField:
		return "tags"
	case BoolField:
		return "bool"
	case IntField:
		return "int"
	case TimeField:
		return "time"
	default:
		return "unknown"
	}
}

// Field maps an entry attribute to its column.
type Field struct {
	Name   string
	Column string
	Kind   FieldKind
	// get returns the value and whether it is present.
	get func(e *entry.Entry) (any, bool)
}

func text(get func(e *entry.Entry) *string) func(e *entry.Entry) (any, bool) {
	return func(e *entry.Entry) (any, bool) {
		v := get(e)
		if v == nil {
			return nil, false
		}
		return *v, true
	}
}

func required(get func(e *entry.Entry) string) func(e *entry.Entry) (any, bool) {
	return func(e *entry.Entry) (any, bool) {
		v := get(e)
		return v, v != ""
	}
}

// Queryable fields.
var (
	FieldID            = Field{"id", "id", TextField, required(func(e *entry.Entry) string { return e.ID })}
	FieldType          = Field{"type", "type", TextField, required(func(e *entry.Entry) string { return e.Type })}
	FieldName          = Field{"name", "name", TextField, required(func(e *entry.Entry) string { return e.Name })}
	FieldAcademicTitle = Field{"academicTitle", "academic_title", TextField, text(func(e *entry.Entry) *string { return e.AcademicTitle })}
	FieldFirstName     = Field{"firstName", "first_name", TextField, text(func(e *entry.Entry) *string { return e.FirstName })}
	FieldLastName      = Field{"lastName", "last_name", TextField, text(func(e *entry.Entry) *string { return e.LastName })}
	FieldEmail         = Field{"email", "email", TextField, text(func(e *entry.Entry) *string { return e.Email })}
	FieldWebsite       = Field{"website", "website", TextField, text(func(e *entry.Entry) *string { return e.Website })}
	FieldTelephone     = Field{"telephone", "telephone", TextField, text(func(e *entry.Entry) *string { return e.Telephone })}
	FieldAccessible    = Field{"accessible", "accessible", TextField, text(func(e *entry.Entry) *string { return e.Accessible })}
	FieldCity          = Field{"address.city", "city", TextField, required(func(e *entry.Entry) string { return e.Address.City })}
	FieldPlz           = Field{"address.plz", "plz", TextField, text(func(e *entry.Entry) *string { return e.Address.Plz })}
	FieldStreet        = Field{"address.street", "street", TextField, text(func(e *entry.Entry) *string { return e.Address.Street })}
	FieldHouse         = Field{"address.house", "house", TextField, text(func(e *entry.Entry) *string { return e.Address.House })}
	FieldOffers        = Field{"meta.offers", "offers", TagsField, func(e *entry.Entry) (any, bool) { return e.Meta.Offers, len(e.Meta.Offers) > 0 }}
	FieldAttributes    = Field{"meta.attributes", "attributes", TagsField, func(e *entry.Entry) (any, bool) { return e.Meta.Attributes, len(e.Meta.Attributes) > 0 }}
	FieldSpecials      = Field{"meta.specials", "specials", TextField, text(func(e *entry.Entry) *string { return e.Meta.Specials })}
	FieldSubject       = Field{"meta.subject", "subject", TextField, text(func(e *entry.Entry) *string { return e.Meta.Subject })}
	FieldMinAge        = Field{"meta.minAge", "min_age", IntField, func(e *entry.Entry) (any, bool) {
		if e.Meta.MinAge == nil {
			return nil, false
		}
		return *e.Meta.MinAge, true
	}}
	FieldApproved          = Field{"approved", "approved", BoolField, func(e *entry.Entry) (any, bool) { return e.Approved, true }}
	FieldBlocked           = Field{"blocked", "blocked", BoolField, func(e *entry.Entry) (any, bool) { return e.Blocked, true }}
	FieldPossibleDuplicate = Field{"possibleDuplicate", "possible_duplicate", TextField, text(func(e *entry.Entry) *string { return e.PossibleDuplicate })}
	FieldApprovedBy        = Field{"approvedBy", "approved_by", TextField, text(func(e *entry.Entry) *string { return e.ApprovedBy })}
	FieldApprovedAt        = Field{"approvedTimestamp", "approved_at", TimeField, func(e *entry.Entry) (any, bool) {
		if e.ApprovedTimestamp == nil {
			return nil, false
		}
		return *e.ApprovedTimestamp, true
	}}
	FieldSubmittedAt = Field{"submittedTimestamp", "submitted_at", TimeField, func(e *entry.Entry) (any, bool) {
		return e.SubmittedTimestamp, !e.SubmittedTimestamp.IsZero()
	}}
)

var fields = map[string]Field{}

func init() {
	for _, f := range []Field{
		FieldID, FieldType, FieldName, FieldAcademicTitle, FieldFirstName, FieldLastName,
		FieldEmail, FieldWebsite, FieldTelephone, FieldAccessible,
		FieldCity, FieldPlz, FieldStreet, FieldHouse,
		FieldOffers, FieldAttributes, FieldSpecials, FieldSubject, FieldMinAge,
		FieldApproved, FieldBlocked, FieldPossibleDuplicate, FieldApprovedBy, FieldApprovedAt, FieldSubmittedAt,
	} {
		fields[f.Name] = f
	}
}

// LookupField returns the field named name, e.g. "address.city".
func LookupField(name string) (Field, bool) {
	f, ok := fields[name]
	return f, ok
}

func compareValues(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case int:
		bv, ok := b.(int)
		if !ok {
			return 0, false
		}
		return av - bv, true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		return 1, true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}
	return 0, false
}
