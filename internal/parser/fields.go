package parser

import (
	"strings"

	"github.com/andybalholm/cascadia"
)

// FieldKind is the value type a field is coerced to
type FieldKind int

const (
	KindText FieldKind = iota
	KindFloat
)

// Field maps one XML source path to its canonical record key
type Field struct {
	Path  string
	Key   string
	Kind  FieldKind
	steps []cascadia.Selector
}

// fieldTable is built once and shared read-only by every extraction.
var fieldTable = buildFields([]Field{
	// identification (match elements)
	{Path: "ID", Key: "bold_id"},
	{Path: "sequencedescription", Key: "sequence_description"},
	{Path: "database"},
	{Path: "citation"},
	{Path: "taxonomicidentification", Key: "taxonomic_identification"},
	{Path: "similarity", Kind: KindFloat},
	{Path: "specimen/url", Key: "specimen_url"},
	{Path: "specimen/collectionlocation/country", Key: "specimen_collection_location_country"},
	{Path: "specimen/collectionlocation/coord/lat", Key: "specimen_collection_location_latitude", Kind: KindFloat},
	{Path: "specimen/collectionlocation/coord/lon", Key: "specimen_collection_location_longitude", Kind: KindFloat},

	// specimen identifiers
	{Path: "record_id"},
	{Path: "processid"},
	{Path: "bin_uri"},
	{Path: "specimen_identifiers/sampleid"},
	{Path: "specimen_identifiers/catalognum"},
	{Path: "specimen_identifiers/fieldnum"},
	{Path: "specimen_identifiers/institution_storing"},

	// taxonomy
	{Path: "taxonomy/identification_provided_by"},
	{Path: "taxonomy/phylum/taxon/taxID"},
	{Path: "taxonomy/phylum/taxon/name"},
	{Path: "taxonomy/class/taxon/taxID"},
	{Path: "taxonomy/class/taxon/name"},
	{Path: "taxonomy/order/taxon/taxID"},
	{Path: "taxonomy/order/taxon/name"},
	{Path: "taxonomy/family/taxon/taxID"},
	{Path: "taxonomy/family/taxon/name"},
	{Path: "taxonomy/subfamily/taxon/taxID"},
	{Path: "taxonomy/subfamily/taxon/name"},
	{Path: "taxonomy/genus/taxon/taxID"},
	{Path: "taxonomy/genus/taxon/name"},
	{Path: "taxonomy/species/taxon/taxID"},
	{Path: "taxonomy/species/taxon/name"},

	// specimen details
	{Path: "specimen_details/voucher_status"},
	{Path: "specimen_details/extrainfo"},
	{Path: "specimen_details/lifestage"},
	{Path: "specimen_details/sex"},

	// collection event
	{Path: "collection_event/collector"},
	{Path: "collection_event/collectiondate"},
	{Path: "collection_event/coordinates/lat", Kind: KindFloat},
	{Path: "collection_event/coordinates/lon", Kind: KindFloat},
	{Path: "collection_event/exactsite"},
	{Path: "collection_event/country"},
	{Path: "collection_event/province"},
	{Path: "collection_event/region"},

	// imagery
	{Path: "specimen_imagery/media/mediaID"},
	{Path: "specimen_imagery/media/caption"},
	{Path: "specimen_imagery/media/metadata"},
	{Path: "specimen_imagery/media/copyright/copyright_holder"},
	{Path: "specimen_imagery/media/copyright/copyright_license"},
	{Path: "specimen_imagery/media/photographer"},
	{Path: "specimen_imagery/media/image_file"},

	// trace reads
	{Path: "tracefiles/read/read_id"},
	{Path: "tracefiles/read/run_date"},
	{Path: "tracefiles/read/sequencing_center"},
	{Path: "tracefiles/read/direction"},
	{Path: "tracefiles/read/seq_primer"},
	{Path: "tracefiles/read/trace_link"},
	{Path: "tracefiles/read/markercode"},

	// sequences
	{Path: "sequences/sequence/sequenceID"},
	{Path: "sequences/sequence/markercode"},
	{Path: "sequences/sequence/genbank_accession"},
	{Path: "sequences/sequence/nucleotides"},
})

func buildFields(fields []Field) []Field {
	for i := range fields {
		f := &fields[i]
		parts := splitPath(f.Path)
		if f.Key == "" {
			f.Key = strings.Join(parts, "_")
		}
		f.steps = make([]cascadia.Selector, len(parts))
		for j, part := range parts {
			f.steps[j] = elementNamed(part)
		}
	}
	return fields
}

// splitPath accepts both slash and dot separated paths
func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '.'
	})
}

// Fields returns a copy of the field mapping table in extraction order
func Fields() []Field {
	out := make([]Field, len(fieldTable))
	copy(out, fieldTable)
	return out
}

// CanonicalKey returns the record key for a source path, applying the table's
// friendly-name overrides.
func CanonicalKey(path string) string {
	for _, f := range fieldTable {
		if f.Path == path {
			return f.Key
		}
	}
	return strings.Join(splitPath(path), "_")
}
