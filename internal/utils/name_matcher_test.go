package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuzzyMatchTaxon(t *testing.T) {
	testCases := []struct {
		query     string
		candidate string
		minScore  float64
		maxScore  float64
	}{
		{"Euptychia ordinata", "Euptychia ordinata", 1, 1},
		{"euptychia ORDINATA", "Euptychia ordinata", 1, 1},
		{"Euptychia ordinata Butler, 1867", "Euptychia ordinata", 1, 1},
		{"Momotus momota (Linnaeus, 1766)", "Momotus momota", 1, 1},
		{"Müllerina alba", "Mullerina alba", 1, 1},
		{"E. ordinata", "Euptychia ordinata", 0.85, 0.85},
		{"Euptychia sp.", "Euptychia", 0.95, 0.95},
		{"Euptychia ordinata", "Euptychia westwoodi", 0.5, 0.6},
		{"Aves", "Euptychia", 0, 0.2},
	}

	for _, tc := range testCases {
		score := FuzzyMatchTaxon(tc.query, tc.candidate)
		assert.GreaterOrEqual(t, score, tc.minScore, "%q vs %q", tc.query, tc.candidate)
		assert.LessOrEqual(t, score, tc.maxScore, "%q vs %q", tc.query, tc.candidate)
	}

	assert.Zero(t, FuzzyMatchTaxon("", "Aves"))
	assert.Zero(t, FuzzyMatchTaxon("sp.", "Aves"))
}

func TestBestTaxonMatch(t *testing.T) {
	candidates := []string{"Euptychia westwoodi", "Euptychia ordinata", "Euptychia", "Momotus"}

	idx, score := BestTaxonMatch("E. ordinata", candidates, 0.5)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 0.85, score)

	idx, _ = BestTaxonMatch("Euptychia sp.", candidates, 0.5)
	assert.Equal(t, 2, idx)

	idx, score = BestTaxonMatch("Fabaceae", candidates, 0.5)
	assert.Equal(t, -1, idx)
	assert.Zero(t, score)
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, "mullerina cafe", FoldName("Müllerina CAFÉ"))
	assert.Equal(t, "euptychia", FoldName("Euptychia"))
}

func TestCanonicalTaxonName(t *testing.T) {
	testCases := map[string]string{
		"euptychia ORDINATA":   "Euptychia ordinata",
		"  momotus   momota  ": "Momotus momota",
		"FABACEAE":             "Fabaceae",
		"":                     "",
	}
	for in, want := range testCases {
		assert.Equal(t, want, CanonicalTaxonName(in), in)
	}
}
