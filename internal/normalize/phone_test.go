package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestPhoneNormalize_Nil(t *testing.T) {
	n := NewPhoneNormalizer("")
	assert.Nil(t, n.Normalize(nil))
}

func TestPhoneNormalize_NationalNumber(t *testing.T) {
	n := NewPhoneNormalizer("DE")

	got := n.Normalize(strPtr("030 12345678"))
	require.NotNil(t, got)
	assert.Equal(t, "+49 30 12345678", *got)
}

func TestPhoneNormalize_StripsSeparators(t *testing.T) {
	n := NewPhoneNormalizer("DE")

	a := n.Normalize(strPtr("030/123 456-78"))
	b := n.Normalize(strPtr("+49 30 12345678"))
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, *b, *a)
}

func TestPhoneNormalize_ForeignNumberKeepsCountry(t *testing.T) {
	n := NewPhoneNormalizer("DE")

	got := n.Normalize(strPtr("+1 650-253-0000"))
	require.NotNil(t, got)
	assert.Equal(t, "+1 650-253-0000", *got)
}

func TestPhoneNormalize_UnparseableKeepsCleaned(t *testing.T) {
	n := NewPhoneNormalizer("DE")

	got := n.Normalize(strPtr("on request"))
	require.NotNil(t, got)
	assert.Equal(t, "", *got)

	got = n.Normalize(strPtr("+ (x)"))
	require.NotNil(t, got)
	assert.Equal(t, "+()", *got)
}

func TestPhoneNormalize_Idempotent(t *testing.T) {
	n := NewPhoneNormalizer("DE")

	once := n.Normalize(strPtr("0221 9876543"))
	require.NotNil(t, once)
	twice := n.Normalize(once)
	require.NotNil(t, twice)
	assert.Equal(t, *once, *twice)
}

func TestNewPhoneNormalizer_DefaultRegion(t *testing.T) {
	assert.Equal(t, DefaultRegion, NewPhoneNormalizer("").region)
	assert.Equal(t, "AT", NewPhoneNormalizer("AT").region)
}
