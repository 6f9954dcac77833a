package fetcher

import (
	"regexp"
	"strings"
)

type markerPattern struct {
	code     string
	patterns []*regexp.Regexp
}

// markerPatterns maps loose marker spellings to BOLD marker codes. Checked
// in order, first hit wins.
var markerPatterns = compileMarkers([]struct {
	code     string
	patterns []string
}{
	{"COI-5P", []string{
		`(?i)^co(?:x)?[i1]?[\s_-]*5p?$`,
		`(?i)^co(?:x)?[i1]$`,
		`(?i)^cytochrome\s+(?:c\s+)?oxidase(?:\s+subunit)?\s+(?:i|1)$`,
	}},
	{"COI-3P", []string{
		`(?i)^co(?:x)?[i1][\s_-]*3p?$`,
	}},
	{"COII", []string{
		`(?i)^co(?:x)?(?:ii|2)$`,
	}},
	{"CYTB", []string{
		`(?i)^cyt[\s_-]*b$`,
		`(?i)^cytochrome\s+b$`,
	}},
	{"ITS", []string{
		`(?i)^its$`,
		`(?i)^internal\s+transcribed\s+spacer$`,
	}},
	{"ITS2", []string{
		`(?i)^its[\s_-]*2$`,
	}},
	{"matK", []string{
		`(?i)^mat[\s_-]*k$`,
	}},
	{"rbcLa", []string{
		`(?i)^rbcl[\s_-]*a$`,
	}},
	{"rbcL", []string{
		`(?i)^rbcl$`,
	}},
	{"16S", []string{
		`(?i)^16s(?:[\s_-]*r(?:rna|dna))?$`,
	}},
	{"18S", []string{
		`(?i)^18s(?:[\s_-]*r(?:rna|dna))?$`,
	}},
	{"28S", []string{
		`(?i)^28s(?:[\s_-]*r(?:rna|dna))?$`,
	}},
})

func compileMarkers(defs []struct {
	code     string
	patterns []string
}) []markerPattern {
	out := make([]markerPattern, len(defs))
	for i, def := range defs {
		out[i].code = def.code
		for _, p := range def.patterns {
			out[i].patterns = append(out[i].patterns, regexp.MustCompile(p))
		}
	}
	return out
}

// NormalizeMarker returns the BOLD code for marker ("coi" becomes "COI-5P").
// Unrecognized markers are returned trimmed but otherwise unchanged.
func NormalizeMarker(marker string) string {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return ""
	}
	marker = strings.ReplaceAll(marker, "\u00a0", " ")
	marker = strings.ReplaceAll(marker, "\u2013", "-")

	for _, m := range markerPatterns {
		for _, p := range m.patterns {
			if p.MatchString(marker) {
				return m.code
			}
		}
	}
	return marker
}

// NormalizeMarkers applies NormalizeMarker to each entry
func NormalizeMarkers(markers []string) []string {
	if len(markers) == 0 {
		return nil
	}
	out := make([]string, len(markers))
	for i, m := range markers {
		out[i] = NormalizeMarker(m)
	}
	return out
}
