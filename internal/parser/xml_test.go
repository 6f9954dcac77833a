package parser

import (
	"encoding/xml"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bold-client-go/internal/model"
)

const identifyXML = `<?xml version="1.0" encoding="UTF-8"?>
<matches>
  <match>
    <ID>GBLN1153-09</ID>
    <sequencedescription>Euptychia ordinata</sequencedescription>
    <database>Published</database>
    <citation>Euptychia ordinata</citation>
    <taxonomicidentification>Euptychia ordinata</taxonomicidentification>
    <similarity>1</similarity>
    <specimen>
      <url>http://www.boldsystems.org/index.php/Public_RecordView?processid=GBLN1153-09</url>
      <collectionlocation>
        <country>Peru</country>
        <coord>
          <lat>-12.55</lat>
          <lon>-70.1</lon>
        </coord>
      </collectionlocation>
    </specimen>
  </match>
  <match>
    <ID>GBLN1154-09</ID>
    <taxonomicidentification>Euptychia sp.</taxonomicidentification>
    <similarity>0.9856</similarity>
    <specimen>
      <url></url>
      <collectionlocation>
        <country/>
        <coord><lat>unknown</lat><lon/></coord>
      </collectionlocation>
    </specimen>
  </match>
</matches>
`

const specimenXML = `<?xml version="1.0" encoding="UTF-8"?>
<bold_records>
  <record>
    <record_id>1</record_id>
    <processid>ABC-1</processid>
    <taxonomy>
      <family><taxon><taxID>7044</taxID><name>Nymphalidae</name></taxon></family>
    </taxonomy>
    <collection_event>
      <coordinates><lat>9.93</lat><lon>-84.08</lon></coordinates>
    </collection_event>
    <specimen_imagery>
      <media><mediaID>11</mediaID><caption>Dorsal</caption></media>
      <media><mediaID>12</mediaID><caption>Ventral</caption></media>
    </specimen_imagery>
    <tracefiles>
      <read><read_id>r1</read_id><direction>F</direction></read>
      <read><read_id>r2</read_id><direction>R</direction></read>
      <read><read_id>r3</read_id><direction></direction></read>
    </tracefiles>
  </record>
  <record>
    <record_id>2</record_id>
  </record>
</bold_records>
`

func TestExtractXML_Identify(t *testing.T) {
	records, err := ExtractXML(identifyXML, "match")
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "GBLN1153-09", first["bold_id"])
	assert.Equal(t, "Euptychia ordinata", first["sequence_description"])
	assert.Equal(t, "Euptychia ordinata", first["taxonomic_identification"])
	assert.Equal(t, 1.0, first["similarity"])
	assert.Equal(t, "Peru", first["specimen_collection_location_country"])
	assert.Equal(t, -12.55, first["specimen_collection_location_latitude"])
	assert.Equal(t, -70.1, first["specimen_collection_location_longitude"])

	second := records[1]
	assert.Equal(t, 0.9856, second["similarity"])
	assert.False(t, second.Has("sequence_description"), "unmatched path must be omitted")
	assert.False(t, second.Has("database"))

	// matched but empty fields are present with a nil value
	for _, key := range []string{
		"specimen_url",
		"specimen_collection_location_country",
		"specimen_collection_location_latitude",
		"specimen_collection_location_longitude",
	} {
		require.True(t, second.Has(key), key)
		assert.Nil(t, second[key], key)
	}
}

func TestExtractXML_Multiplicity(t *testing.T) {
	records, err := ExtractXML(specimenXML, "record")
	require.NoError(t, err)
	require.Len(t, records, 2)

	rec := records[0]
	assert.Equal(t, "1", rec["record_id"])
	assert.Equal(t, "Nymphalidae", rec["taxonomy_family_taxon_name"])
	assert.Equal(t, "7044", rec["taxonomy_family_taxon_taxID"])
	assert.Equal(t, 9.93, rec["collection_event_coordinates_lat"])
	assert.Equal(t, -84.08, rec["collection_event_coordinates_lon"])

	assert.Equal(t, []string{"11", "12"}, rec["specimen_imagery_media_mediaID"])
	assert.Equal(t, []string{"Dorsal", "Ventral"}, rec["specimen_imagery_media_caption"])
	assert.Equal(t, []string{"r1", "r2", "r3"}, rec["tracefiles_read_read_id"])
	assert.Equal(t, []string{"F", "R", ""}, rec["tracefiles_read_direction"])
	assert.False(t, rec.Has("tracefiles_read_run_date"))

	assert.Equal(t, map[string]any{"record_id": "2"}, map[string]any(records[1]))
}

func TestExtractXML_PathIsRelativeToRecord(t *testing.T) {
	xml := `<matches><match><extra><ID>nested</ID></extra><similarity>0.5</similarity></match></matches>`

	records, err := ExtractXML(xml, "match")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Has("bold_id"))
	assert.Equal(t, 0.5, records[0]["similarity"])
}

func TestExtractXML_OnlyDirectChildrenOfRoot(t *testing.T) {
	xml := `<bold_records><record><record_id>1</record_id></record><group><record><record_id>2</record_id></record></group></bold_records>`

	records, err := ExtractXML(xml, "record")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1", records[0]["record_id"])
}

func TestExtractXML_NoRecords(t *testing.T) {
	records, err := ExtractXML(`<bold_records></bold_records>`, "record")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestExtractXML_Malformed(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"unclosed", `<bold_records><record><record_id>1</record_id>`},
		{"mismatched", `<bold_records><record></bold_records>`},
		{"tsv", "processid\tsampleid\nABC-1\tS1\n"},
		{"two roots", `<a></a><b></b>`},
		{"trailing text", `<a></a>processid`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractXML(tc.input, "record")
			require.Error(t, err)

			var malformed *MalformedPayloadError
			require.True(t, errors.As(err, &malformed))
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestFieldTable(t *testing.T) {
	fields := Fields()
	assert.GreaterOrEqual(t, len(fields), 40)

	seen := make(map[string]bool)
	for _, f := range fields {
		assert.False(t, seen[f.Key], "duplicate key %s", f.Key)
		seen[f.Key] = true
		assert.NotEmpty(t, f.steps, f.Path)
	}

	testCases := []struct {
		path string
		key  string
	}{
		{"ID", "bold_id"},
		{"taxonomicidentification", "taxonomic_identification"},
		{"specimen/collectionlocation/country", "specimen_collection_location_country"},
		{"specimen/collectionlocation/coord/lat", "specimen_collection_location_latitude"},
		{"taxonomy/species/taxon/name", "taxonomy_species_taxon_name"},
		{"sequences/sequence/nucleotides", "sequences_sequence_nucleotides"},
		{"specimen.details.unknown", "specimen_details_unknown"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.key, CanonicalKey(tc.path), tc.path)
	}

	for _, rank := range []string{"phylum", "class", "order", "family", "subfamily", "genus", "species"} {
		assert.True(t, seen["taxonomy_"+rank+"_taxon_taxID"], rank)
		assert.True(t, seen["taxonomy_"+rank+"_taxon_name"], rank)
	}
}

// xmlNode is a minimal element tree used to write records back as XML
type xmlNode struct {
	name     string
	text     *string
	children []*xmlNode
}

func (n *xmlNode) child(name string) *xmlNode {
	for _, c := range n.children {
		if c.name == name && c.text == nil && c.children != nil {
			return c
		}
	}
	c := &xmlNode{name: name, children: []*xmlNode{}}
	n.children = append(n.children, c)
	return c
}

func (n *xmlNode) leaf(name string, text *string) {
	n.children = append(n.children, &xmlNode{name: name, text: text})
}

func (n *xmlNode) write(sb *strings.Builder) {
	sb.WriteString("<" + n.name + ">")
	if n.text != nil {
		xml.EscapeText(sb, []byte(*n.text))
	}
	for _, c := range n.children {
		c.write(sb)
	}
	sb.WriteString("</" + n.name + ">")
}

// encodeRecords writes records in the upstream layout, one tag element per
// record, placing every value at its field path.
func encodeRecords(t *testing.T, tag string, records []model.Record) string {
	var sb strings.Builder
	sb.WriteString("<root>")
	for _, rec := range records {
		elem := &xmlNode{name: tag, children: []*xmlNode{}}
		for _, f := range Fields() {
			v, ok := rec[f.Key]
			if !ok {
				continue
			}
			parts := splitPath(f.Path)
			parent := elem
			for _, p := range parts[:len(parts)-1] {
				parent = parent.child(p)
			}
			last := parts[len(parts)-1]

			switch v := v.(type) {
			case nil:
				parent.leaf(last, nil)
			case string:
				parent.leaf(last, &v)
			case float64:
				text := strconv.FormatFloat(v, 'f', -1, 64)
				parent.leaf(last, &text)
			case []string:
				for _, item := range v {
					if item == "" {
						parent.leaf(last, nil)
						continue
					}
					parent.leaf(last, &item)
				}
			default:
				t.Fatalf("unexpected value %T for %s", v, f.Key)
			}
		}
		elem.write(&sb)
	}
	sb.WriteString("</root>")
	return sb.String()
}

func TestExtractXML_RoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		tag   string
		input string
	}{
		{"identify scalars and floats", "match", identifyXML},
		{"specimen repeated paths", "record", specimenXML},
		{"empty list items and unparsable float", "record", `<bold_records><record>
			<processid>X-1</processid>
			<collection_event><coordinates><lat>n/a</lat><lon>10.5</lon></coordinates></collection_event>
			<tracefiles><read><read_id>a</read_id><direction/></read><read><read_id>b</read_id><direction>R &amp; F</direction></read></tracefiles>
		</record></bold_records>`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			first, err := ExtractXML(tc.input, tc.tag)
			require.NoError(t, err)
			require.NotEmpty(t, first)

			again, err := ExtractXML(encodeRecords(t, tc.tag, first), tc.tag)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		})
	}
}

func TestExtractXML_ByteOrderMark(t *testing.T) {
	records, err := ExtractXML("\ufeff<?xml version=\"1.0\"?><matches><match><ID>A</ID></match></matches>", "match")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0]["bold_id"])
}

func TestExtractXML_NamesAreCaseSensitive(t *testing.T) {
	records, err := ExtractXML(`<matches><match><ID>A</ID><id>b</id></match><Match><ID>C</ID></Match></matches>`, "match")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0]["bold_id"])
}
