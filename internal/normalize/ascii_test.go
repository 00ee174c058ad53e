package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestASCIIFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Düsseldorf", "DUESSELDORF"},
		{"Straße", "STRASSE"},
		{"GROẞ GLIENICKE", "GROSS GLIENICKE"},
		{"Köln", "KOELN"},
		{"ÜBERLINGEN", "UEBERLINGEN"},
		{"Sankt Augustin", "ST. AUGUSTIN"},
		{"SANKT WENDEL", "ST. WENDEL"},
		{"Île-de-France", "ILE-DE-FRANCE"},
		{"Görlitz 02826", "GOERLITZ 02826"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ASCIIFold(tt.input))
		})
	}
}

func TestASCIIFold_Idempotent(t *testing.T) {
	for _, s := range []string{"Düsseldorf", "Straße", "Sankt Peter-Ording", "Èze", "münchen"} {
		once := ASCIIFold(s)
		assert.Equal(t, once, ASCIIFold(once), s)
	}
}

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, []string{"Düsseldorf", "DUESSELDORF"}, SearchTerms("Düsseldorf"))
	assert.Equal(t, []string{"Bad", "Tölz", "BAD", "TOELZ"}, SearchTerms("Bad Tölz"))
	assert.Equal(t, []string{"BERLIN"}, SearchTerms("BERLIN"))
	assert.Empty(t, SearchTerms("   "))
}
