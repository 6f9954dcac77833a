package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// qualifiers are open-nomenclature markers that carry no name information
var qualifiers = map[string]bool{
	"sp": true, "spp": true, "cf": true, "aff": true, "nr": true, "ssp": true, "subsp": true, "var": true,
}

// authorship strips trailing "(Linnaeus, 1758)" or "Butler, 1867" style authorship
var authorship = regexp.MustCompile(`\s+\(?[A-Z][\p{L}'.-]*(?:\s*&\s*[A-Z][\p{L}'.-]*)?,\s*\d{4}\)?\s*$`)

// TaxonFeatures parsed parts of a scientific name
type TaxonFeatures struct {
	Original  string
	Parts     []string // folded words, qualifiers removed
	Initials  []string // first letter of each part, upper case
	FullWords []string // parts longer than one letter
	Abbrevs   []string // single-letter parts such as the "E" of "E. ordinata"
	Qualified bool     // name carried sp., cf., aff. and the like
	PartCount int
}

// FoldName lower-cases a name and strips diacritics, so that "Müller" and
// "Muller" compare equal.
func FoldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return cases.Lower(language.Und).String(folded)
}

// CanonicalTaxonName formats a binomial the way BOLD displays it: genus
// capitalized, everything else lower case.
func CanonicalTaxonName(name string) string {
	parts := strings.Fields(cleanName(name))
	if len(parts) == 0 {
		return ""
	}
	lower := cases.Lower(language.Und)
	parts[0] = cases.Title(language.Und).String(parts[0])
	for i := 1; i < len(parts); i++ {
		parts[i] = lower.String(parts[i])
	}
	return strings.Join(parts, " ")
}

// ParseTaxonFeatures extracts the comparable parts of a taxon name
func ParseTaxonFeatures(name string) *TaxonFeatures {
	cleaned := cleanName(authorship.ReplaceAllString(name, ""))
	if cleaned == "" {
		return nil
	}

	features := &TaxonFeatures{Original: name}

	for _, p := range strings.Fields(FoldName(cleaned)) {
		word := strings.Trim(p, ".")
		if word == "" {
			continue
		}
		if qualifiers[word] {
			features.Qualified = true
			continue
		}
		for _, w := range strings.Split(word, "-") {
			if w == "" {
				continue
			}
			features.Parts = append(features.Parts, w)
			features.Initials = append(features.Initials, strings.ToUpper(string([]rune(w)[0])))
			if len([]rune(w)) > 1 {
				features.FullWords = append(features.FullWords, w)
			} else {
				features.Abbrevs = append(features.Abbrevs, strings.ToUpper(w))
			}
		}
	}

	if len(features.Parts) == 0 {
		return nil
	}
	features.PartCount = len(features.Parts)
	return features
}

// cleanName keeps letters, digits, spaces, dots and hyphens
func cleanName(name string) string {
	if name == "" {
		return ""
	}
	var result strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || r == ' ' || r == '.' || r == '-' {
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}

// isAbbreviationMatch reports whether abbrev is full with the genus (or
// another leading word) shortened to its initial, as in "E. ordinata".
func isAbbreviationMatch(full, abbrev *TaxonFeatures) bool {
	if full == nil || abbrev == nil || len(abbrev.Abbrevs) == 0 {
		return false
	}

	fullInitials := strings.Join(full.Initials, "")
	abbrevChars := strings.Join(abbrev.Abbrevs, "")
	if !strings.HasPrefix(fullInitials, abbrevChars) {
		return false
	}

	// the remaining words must all be present in the full name
	for _, aw := range abbrev.FullWords {
		found := false
		for _, fw := range full.FullWords {
			if fw == aw {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return len(abbrev.FullWords) > 0
}

// CalculateMatchScore scores two names between 0 and 1
func CalculateMatchScore(f1, f2 *TaxonFeatures) float64 {
	if f1 == nil || f2 == nil {
		return 0.0
	}

	if sliceEqual(f1.Parts, f2.Parts) {
		if f1.Qualified != f2.Qualified {
			return 0.95
		}
		return 1.0
	}

	if isAbbreviationMatch(f1, f2) || isAbbreviationMatch(f2, f1) {
		return 0.85
	}

	var score float64

	// whole words
	if len(f1.FullWords) > 0 && len(f2.FullWords) > 0 {
		overlap := setIntersectionCount(f1.FullWords, f2.FullWords)
		total := setUnionCount(f1.FullWords, f2.FullWords)
		if total > 0 {
			score += 40 * float64(overlap) / float64(total)
		}
	}

	// same genus weighs more than any other shared word
	if f1.Parts[0] == f2.Parts[0] {
		score += 20
	}

	// initials
	if len(f1.Initials) > 0 && len(f2.Initials) > 0 {
		overlap := setIntersectionCount(f1.Initials, f2.Initials)
		total := max(len(f1.Initials), len(f2.Initials))
		score += 20 * float64(overlap) / float64(total)
	}

	// structure
	if f1.PartCount == f2.PartCount {
		score += 10
	} else if abs(f1.PartCount-f2.PartCount) == 1 {
		score += 5
	}

	return score / 100
}

// FuzzyMatchTaxon scores a query name against a candidate name
func FuzzyMatchTaxon(query, candidate string) float64 {
	return CalculateMatchScore(ParseTaxonFeatures(query), ParseTaxonFeatures(candidate))
}

// BestTaxonMatch returns the index of the candidate scoring highest against
// query and its score. The first candidate wins ties. index is -1 when no
// candidate beats threshold.
func BestTaxonMatch(query string, candidates []string, threshold float64) (int, float64) {
	q := ParseTaxonFeatures(query)
	best, bestScore := -1, threshold

	for i, c := range candidates {
		score := CalculateMatchScore(q, ParseTaxonFeatures(c))
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return -1, 0
	}
	return best, bestScore
}

// Helper functions
func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func setIntersectionCount(a, b []string) int {
	set := make(map[string]bool)
	for _, s := range a {
		set[s] = true
	}
	count := 0
	for _, s := range b {
		if set[s] {
			count++
		}
	}
	return count
}

func setUnionCount(a, b []string) int {
	set := make(map[string]bool)
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		set[s] = true
	}
	return len(set)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
