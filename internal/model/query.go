package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownQueryMode is returned for a mode tag outside AllQueryModes.
var ErrUnknownQueryMode = errors.New("unknown query mode")

// QueryMode identifies which BOLD operation produced a payload
type QueryMode string

const (
	ModeIdentify     QueryMode = "identify"
	ModeTaxonSearch  QueryMode = "taxon_search"
	ModeTaxonData    QueryMode = "taxon_data"
	ModeSpecimenData QueryMode = "specimen_data"
	ModeSequenceData QueryMode = "sequence_data"
	ModeFullData     QueryMode = "full_data"
	ModeTraceFiles   QueryMode = "trace_files"
)

// AllQueryModes lists every supported mode
var AllQueryModes = []QueryMode{
	ModeIdentify, ModeTaxonSearch, ModeTaxonData,
	ModeSpecimenData, ModeSequenceData, ModeFullData, ModeTraceFiles,
}

// ParseQueryMode validates a mode tag. Dashes are accepted in place of
// underscores so that "taxon-search" works on the command line.
func ParseQueryMode(s string) (QueryMode, error) {
	m := QueryMode(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if m.Valid() {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownQueryMode, s)
}

// Valid reports whether m is one of AllQueryModes
func (m QueryMode) Valid() bool {
	for _, known := range AllQueryModes {
		if m == known {
			return true
		}
	}
	return false
}

// IsBinary reports whether the mode returns raw bytes instead of text
func (m QueryMode) IsBinary() bool {
	return m == ModeTraceFiles
}

// RecordTag is the XML element name that delimits one record for the mode.
// Only meaningful for identify, specimen_data and full_data.
func (m QueryMode) RecordTag() string {
	if m == ModeIdentify {
		return "match"
	}
	return "record"
}

func (m QueryMode) String() string {
	return string(m)
}

// Format names the payload representation a Response was built from
type Format string

const (
	FormatXML    Format = "xml"
	FormatJSON   Format = "json"
	FormatFASTA  Format = "fasta"
	FormatTSV    Format = "tsv"
	FormatBinary Format = "binary"
)
