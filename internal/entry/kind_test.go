package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParseKind_RoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.Name())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	assert.Len(t, Kinds(), 10)
}

func TestParseKind_Unknown(t *testing.T) {
	_, err := ParseKind("dentist")
	assert.Error(t, err)
	_, err = ParseKind("gp")
	assert.Error(t, err, "type names are case-sensitive")
}

func TestAllows(t *testing.T) {
	assert.True(t, AllowsAttribute(Group{}, "regularMeetings"))
	assert.False(t, AllowsAttribute(Surveyor{}, "treatsNB"))
	assert.True(t, AllowsOffer(Surgeon{}, "glottoplasty"))
	assert.True(t, AllowsOffer(GP{}, "hrt"))
	assert.False(t, AllowsOffer(Group{}, "hrt"))
}

func TestSanitize_DropsDisallowedMeta(t *testing.T) {
	m := Meta{
		Offers:     []string{"ffs", "ffs", "laser"},
		Attributes: []string{"remote", "trans", "selfPayedOnly"},
		Specials:   ptr("Wheelchair ramp"),
		MinAge:     ptr(16),
		Subject:    ptr("psychologist"),
	}

	got := Sanitize(Surgeon{}, m)
	assert.Equal(t, []string{"ffs"}, got.Offers)
	assert.Equal(t, []string{"remote", "selfPayedOnly"}, got.Attributes)
	assert.Equal(t, "Wheelchair ramp", *got.Specials)
	assert.Nil(t, got.MinAge)
	assert.Nil(t, got.Subject)

	got = Sanitize(Group{}, m)
	assert.Empty(t, got.Offers)
	assert.Equal(t, []string{"remote", "trans"}, got.Attributes)
	assert.Equal(t, 16, *got.MinAge)

	got = Sanitize(Therapist{}, Meta{Subject: ptr("psychologist")})
	assert.Equal(t, "psychologist", *got.Subject)
	got = Sanitize(Therapist{}, Meta{Subject: ptr("astrologer")})
	assert.Nil(t, got.Subject)
}

func TestValidate_Kinds(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		meta    Meta
		wantErr string
	}{
		{"group ok", Group{}, Meta{Attributes: []string{"trans"}, MinAge: ptr(14)}, ""},
		{"group offers forbidden", Group{}, Meta{Offers: []string{"hrt"}}, "meta.offers: not allowed for group"},
		{"surgeon offers required", Surgeon{}, Meta{}, "meta.offers: required for surgeon"},
		{"surgeon unknown offer", Surgeon{}, Meta{Offers: []string{"laser"}}, `"laser" not allowed`},
		{"surveyor attribute", Surveyor{}, Meta{Attributes: []string{"treatsNB"}}, `"treatsNB" not allowed for surveyor`},
		{"minAge only group", GP{}, Meta{Offers: []string{"hrt"}, MinAge: ptr(18)}, "meta.minAge: not allowed for GP"},
		{"therapist subject required", Therapist{}, Meta{Offers: []string{"therapy"}}, "meta.subject: required for therapist"},
		{"therapist ok", Therapist{}, Meta{Offers: []string{"therapy"}, Subject: ptr("other")}, ""},
		{"subject elsewhere", Logopedics{}, Meta{Subject: ptr("other")}, "meta.subject: not allowed for logopedics"},
		{"hairremoval ok", HairRemoval{}, Meta{Offers: []string{"electroAE"}, Attributes: []string{"hasDoctor"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := Validate(tt.kind, tt.meta)
			if tt.wantErr == "" {
				assert.Empty(t, problems)
				return
			}
			require.NotEmpty(t, problems)
			assert.Contains(t, problems[0], tt.wantErr)
		})
	}
}

func TestSanitizedMetaAlwaysValidatesTags(t *testing.T) {
	m := Meta{
		Offers:     []string{"hrt", "ffs", "laser", "therapy"},
		Attributes: []string{"remote", "trans", "enby", "hasDoctor"},
		MinAge:     ptr(12),
	}
	for _, k := range Kinds() {
		clean := Sanitize(k, m)
		for _, a := range clean.Attributes {
			assert.True(t, AllowsAttribute(k, a), "%s/%s", k.Name(), a)
		}
		for _, o := range clean.Offers {
			assert.True(t, AllowsOffer(k, o), "%s/%s", k.Name(), o)
		}
		if _, isGroup := k.(Group); !isGroup {
			assert.Nil(t, clean.MinAge, k.Name())
		}
	}
}
