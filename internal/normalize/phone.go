package normalize

import (
	"regexp"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is the region used to parse numbers without a country prefix.
const DefaultRegion = "DE"

var phoneJunkRe = regexp.MustCompile(`[^0-9+()]`)

// PhoneNormalizer canonicalizes telephone numbers on ingestion.
type PhoneNormalizer struct {
	region string
}

// NewPhoneNormalizer creates a normalizer parsing against region
// (ISO 3166-1 alpha-2). An empty region falls back to DefaultRegion.
func NewPhoneNormalizer(region string) *PhoneNormalizer {
	if region == "" {
		region = DefaultRegion
	}
	return &PhoneNormalizer{region: region}
}

// Normalize strips everything but digits, '+' and parentheses and renders
// the number in international format when it parses. Unparseable input is
// returned cleaned but otherwise unchanged. Nil stays nil.
func (n *PhoneNormalizer) Normalize(raw *string) *string {
	if raw == nil {
		return nil
	}

	cleaned := phoneJunkRe.ReplaceAllString(*raw, "")
	num, err := phonenumbers.Parse(cleaned, n.region)
	if err != nil {
		return &cleaned
	}

	formatted := phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
	return &formatted
}
