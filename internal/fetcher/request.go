package fetcher

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"bold-client-go/internal/model"
)

// DefaultBaseURL is the public BOLD v3 service root
const DefaultBaseURL = "http://www.boldsystems.org/index.php"

// endpoints maps each mode to its path under the base URL
var endpoints = map[model.QueryMode]string{
	model.ModeIdentify:     "Ids_xml",
	model.ModeTaxonSearch:  "API_Tax/TaxonSearch",
	model.ModeTaxonData:    "API_Tax/TaxonData",
	model.ModeSpecimenData: "API_Public/specimen",
	model.ModeSequenceData: "API_Public/sequence",
	model.ModeFullData:     "API_Public/combined",
	model.ModeTraceFiles:   "API_Public/trace",
}

// BuildURL validates q and returns the request URL for mode. Parameters are
// encoded in sorted order so identical queries give identical URLs.
func BuildURL(baseURL string, mode model.QueryMode, q *Query) (string, error) {
	if err := q.Validate(mode); err != nil {
		return "", err
	}

	params := url.Values{}
	switch mode {
	case model.ModeIdentify:
		seq, err := PrepareSequence(q.Sequence)
		if err != nil {
			return "", err
		}
		db := q.DB
		if db == "" {
			db = DBCOX1
		}
		params.Set("db", db)
		params.Set("sequence", seq)

	case model.ModeTaxonSearch:
		params.Set("taxName", strings.TrimSpace(q.TaxonName))
		params.Set("fuzzy", strconv.FormatBool(q.Fuzzy))

	case model.ModeTaxonData:
		dataTypes := q.DataTypes
		if len(dataTypes) == 0 {
			dataTypes = []string{"basic"}
		}
		params.Set("taxId", strings.TrimSpace(q.TaxonID))
		params.Set("dataTypes", strings.Join(dataTypes, ","))
		params.Set("includeTree", strconv.FormatBool(q.IncludeTree))

	default:
		setList(params, "taxon", q.Filter.Taxon)
		setList(params, "ids", q.Filter.IDs)
		setList(params, "bin", q.Filter.Bin)
		setList(params, "container", q.Filter.Container)
		setList(params, "institutions", q.Filter.Institutions)
		setList(params, "researchers", q.Filter.Researchers)
		setList(params, "geo", q.Filter.Geo)

		if mode != model.ModeSpecimenData {
			setList(params, "marker", NormalizeMarkers(q.Marker))
		}
		if mode == model.ModeSpecimenData || mode == model.ModeFullData {
			format := q.Format
			if format == "" {
				format = "xml"
			}
			params.Set("format", format)
		}
	}

	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return fmt.Sprintf("%s/%s?%s", base, endpoints[mode], params.Encode()), nil
}

func setList(params url.Values, key string, values []string) {
	var kept []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) > 0 {
		params.Set(key, strings.Join(kept, "|"))
	}
}
