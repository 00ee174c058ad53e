// Package normalize holds the text normalizers applied on search and ingestion.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	germanLetters = strings.NewReplacer(
		"ß", "ss", "ẞ", "ss",
		"ä", "ae", "Ä", "ae",
		"ö", "oe", "Ö", "oe",
		"ü", "ue", "Ü", "ue",
	)
	sanktRe = regexp.MustCompile(`(?i)sankt`)

	// Combining Diacritical Marks block only.
	combiningMarks = runes.Predicate(func(r rune) bool {
		return r >= 0x0300 && r <= 0x036F
	})
)

// ASCIIFold converts a place name to the upper-case ASCII spelling used by
// the gazetteer's ascii column: German umlauts and sharp s are expanded,
// "Sankt" is abbreviated to "ST.", remaining accents are stripped.
//
//	ASCIIFold("Düsseldorf") == "DUESSELDORF"
//	ASCIIFold("Sankt Augustin") == "ST. AUGUSTIN"
func ASCIIFold(s string) string {
	s = germanLetters.Replace(s)
	s = sanktRe.ReplaceAllString(s, "ST.")

	t := transform.Chain(norm.NFD, runes.Remove(combiningMarks), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	return strings.ToUpper(stripped)
}

// SearchTerms splits the input and its folded variant into unique
// whitespace-separated tokens, original tokens first.
func SearchTerms(s string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, tok := range append(strings.Fields(s), strings.Fields(ASCIIFold(s))...) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		terms = append(terms, tok)
	}
	return terms
}
