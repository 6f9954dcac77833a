package fetcher

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bold-client-go/internal/model"
)

// ErrInvalidQuery is wrapped by every validation failure
var ErrInvalidQuery = errors.New("invalid query")

// Identification databases accepted by the identify mode
const (
	DBCOX1              = "COX1"
	DBCOX1Species       = "COX1_SPECIES"
	DBCOX1SpeciesPublic = "COX1_SPECIES_PUBLIC"
	DBCOX1L640bp        = "COX1_L640bp"
)

// IdentificationDBs lists the databases in the order BOLD documents them
var IdentificationDBs = []string{DBCOX1, DBCOX1Species, DBCOX1SpeciesPublic, DBCOX1L640bp}

// Filter narrows the public record endpoints. Every list is sent pipe-joined.
type Filter struct {
	Taxon        []string `json:"taxon,omitempty" yaml:"taxon,omitempty"`
	IDs          []string `json:"ids,omitempty" yaml:"ids,omitempty"`
	Bin          []string `json:"bin,omitempty" yaml:"bin,omitempty"`
	Container    []string `json:"container,omitempty" yaml:"container,omitempty"`
	Institutions []string `json:"institutions,omitempty" yaml:"institutions,omitempty"`
	Researchers  []string `json:"researchers,omitempty" yaml:"researchers,omitempty"`
	Geo          []string `json:"geo,omitempty" yaml:"geo,omitempty"`
}

// IsEmpty reports whether no filter value is set
func (f Filter) IsEmpty() bool {
	return len(f.Taxon) == 0 && len(f.IDs) == 0 && len(f.Bin) == 0 && len(f.Container) == 0 &&
		len(f.Institutions) == 0 && len(f.Researchers) == 0 && len(f.Geo) == 0
}

// Narrow reports whether the filter selects records by identifier, BIN or
// container rather than by broad criteria.
func (f Filter) Narrow() bool {
	return len(f.IDs) > 0 || len(f.Bin) > 0 || len(f.Container) > 0
}

// Query holds the parameters of one BOLD call. Which fields are read depends
// on the mode it is sent with.
type Query struct {
	// identify
	Sequence string `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	DB       string `json:"db,omitempty" yaml:"db,omitempty"`

	// taxon_search
	TaxonName string `json:"taxon_name,omitempty" yaml:"taxon_name,omitempty"`
	Fuzzy     bool   `json:"fuzzy,omitempty" yaml:"fuzzy,omitempty"`

	// taxon_data
	TaxonID     string   `json:"tax_id,omitempty" yaml:"tax_id,omitempty"`
	DataTypes   []string `json:"data_types,omitempty" yaml:"data_types,omitempty"`
	IncludeTree bool     `json:"include_tree,omitempty" yaml:"include_tree,omitempty"`

	// specimen_data, sequence_data, full_data, trace_files
	Filter Filter   `json:"filter,omitempty" yaml:"filter,omitempty"`
	Marker []string `json:"marker,omitempty" yaml:"marker,omitempty"`
	Format string   `json:"format,omitempty" yaml:"format,omitempty"`
}

// Validate checks that q carries what mode needs
func (q *Query) Validate(mode model.QueryMode) error {
	switch mode {
	case model.ModeIdentify:
		if strings.TrimSpace(q.Sequence) == "" {
			return fmt.Errorf("%w: identify needs a sequence", ErrInvalidQuery)
		}
		if q.DB != "" && !validDB(q.DB) {
			return fmt.Errorf("%w: unknown identification database %q", ErrInvalidQuery, q.DB)
		}
	case model.ModeTaxonSearch:
		if strings.TrimSpace(q.TaxonName) == "" {
			return fmt.Errorf("%w: taxon_search needs a taxon name", ErrInvalidQuery)
		}
	case model.ModeTaxonData:
		if strings.TrimSpace(q.TaxonID) == "" {
			return fmt.Errorf("%w: taxon_data needs a taxon id", ErrInvalidQuery)
		}
	case model.ModeSpecimenData, model.ModeSequenceData, model.ModeFullData, model.ModeTraceFiles:
		if q.Filter.IsEmpty() {
			return fmt.Errorf("%w: %s needs at least one filter", ErrInvalidQuery, mode)
		}
		if q.Format != "" && q.Format != "xml" && q.Format != "tsv" {
			return fmt.Errorf("%w: format must be xml or tsv, got %q", ErrInvalidQuery, q.Format)
		}
	default:
		return fmt.Errorf("%w: %q", model.ErrUnknownQueryMode, string(mode))
	}
	return nil
}

// Summary is a short label for logs and SSE state
func (q *Query) Summary(mode model.QueryMode) string {
	switch mode {
	case model.ModeIdentify:
		seq := q.Sequence
		if len(seq) > 24 {
			seq = seq[:24] + "..."
		}
		return seq
	case model.ModeTaxonSearch:
		return q.TaxonName
	case model.ModeTaxonData:
		return q.TaxonID
	}

	var parts []string
	add := func(name string, values []string) {
		if len(values) > 0 {
			parts = append(parts, name+"="+strings.Join(values, "|"))
		}
	}
	add("taxon", q.Filter.Taxon)
	add("ids", q.Filter.IDs)
	add("bin", q.Filter.Bin)
	add("container", q.Filter.Container)
	add("institutions", q.Filter.Institutions)
	add("researchers", q.Filter.Researchers)
	add("geo", q.Filter.Geo)
	return strings.Join(parts, " ")
}

// IsExpensive reports whether the query may download a very large payload.
// Trace archives always are; record and sequence downloads are unless the
// filter names records directly.
func IsExpensive(mode model.QueryMode, q *Query) bool {
	switch mode {
	case model.ModeTraceFiles:
		return true
	case model.ModeSpecimenData, model.ModeSequenceData, model.ModeFullData:
		return !q.Filter.Narrow()
	}
	return false
}

// WarnIfExpensive logs a warning for expensive queries and reports whether
// one was logged.
func WarnIfExpensive(mode model.QueryMode, q *Query) bool {
	if !IsExpensive(mode, q) {
		return false
	}
	slog.Warn("[BOLD] query may download a large payload, narrow it with ids, bin or container",
		"mode", mode, "query", q.Summary(mode))
	return true
}

func validDB(db string) bool {
	for _, known := range IdentificationDBs {
		if db == known {
			return true
		}
	}
	return false
}
