package parser

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bold-client-go/internal/model"
)

func TestNormalizeJSON_KeyedCollection(t *testing.T) {
	payload := `{"302603":{"taxid":302603,"taxon":"Euptychia ordinata","tax_rank":"species","tax_division":"Animals","parentid":7044,"parentname":"Euptychia"}}`

	items, warnings, err := NormalizeJSON(model.ModeTaxonSearch, payload)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, warnings)

	rec := items[0]
	assert.Equal(t, int64(302603), rec["tax_id"])
	assert.Equal(t, "Euptychia ordinata", rec["taxon"])
	assert.Equal(t, "species", rec["tax_rank"])
	assert.Equal(t, "Animals", rec["tax_division"])
	assert.Equal(t, int64(7044), rec["parent_id"])
	assert.Equal(t, "Euptychia", rec["parent_name"])
	assert.False(t, rec.Has("taxid"))
}

func TestNormalizeJSON_TaxIDFromOuterKey(t *testing.T) {
	payload := `{"302603":{"taxon":"Euptychia ordinata","tax_rank":"species"}}`

	items, _, err := NormalizeJSON(model.ModeTaxonData, payload)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(302603), items[0]["tax_id"])
}

func TestNormalizeJSON_FlatObject(t *testing.T) {
	payload := `{"taxid":891,"taxon":"Fabaceae","tax_rank":"family","tax_division":"Plants","parentid":187,"parentname":"Fabales","taxonrep":"Fabaceae"}`

	items, warnings, err := NormalizeJSON(model.ModeTaxonSearch, payload)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, warnings)

	rec := items[0]
	assert.Equal(t, "Fabaceae", rec["taxon"])
	assert.Equal(t, int64(891), rec["tax_id"])
	assert.Equal(t, "Plants", rec["tax_division"])
	assert.Equal(t, int64(187), rec["parent_id"])
	assert.Equal(t, "Fabales", rec["parent_name"])
	assert.Equal(t, "Fabaceae", rec["taxon_rep"])
}

func TestNormalizeJSON_KeepsPayloadOrder(t *testing.T) {
	payload := `{"30":{"taxid":30,"taxon":"c","tax_rank":"genus"},"10":{"taxid":10,"taxon":"a","tax_rank":"genus"},"20":{"taxid":20,"taxon":"b","tax_rank":"genus"}}`

	items, _, err := NormalizeJSON(model.ModeTaxonData, payload)
	require.NoError(t, err)
	require.Len(t, items, 3)

	var ids []int64
	for _, item := range items {
		id, ok := item.Int("tax_id")
		require.True(t, ok)
		ids = append(ids, id)
	}
	assert.Equal(t, []int64{30, 10, 20}, ids)
}

func TestNormalizeJSON_CompoundValuesPreserved(t *testing.T) {
	payload := `{"taxid":88899,"taxon":"Momotus","tax_rank":"genus","images":[{"image":"BSPBB/MM_A.jpg","copyright_license":"CreativeCommons"}],"depth":{"level":2}}`

	items, _, err := NormalizeJSON(model.ModeTaxonData, payload)
	require.NoError(t, err)
	require.Len(t, items, 1)

	images, ok := items[0]["images"].([]any)
	require.True(t, ok)
	require.Len(t, images, 1)
	assert.Equal(t, map[string]any{"image": "BSPBB/MM_A.jpg", "copyright_license": "CreativeCommons"}, images[0])
	assert.Equal(t, map[string]any{"level": int64(2)}, items[0]["depth"])
}

func TestNormalizeJSON_MissingFieldWarning(t *testing.T) {
	items, warnings, err := NormalizeJSON(model.ModeTaxonData, `{"taxon":"Aves","score":0.5}`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0.5, items[0]["score"])

	require.Len(t, warnings, 1)
	assert.Equal(t, model.ModeTaxonData, warnings[0].Mode)
	assert.Equal(t, 0, warnings[0].Index)
	assert.Equal(t, []string{"tax_id", "tax_rank"}, warnings[0].Keys)
}

func TestNormalizeJSON_NoResults(t *testing.T) {
	testCases := []string{
		`{}`,
		`[]`,
		`[{"taxid":1}]`,
		`"Aves"`,
		`not json`,
		`{"taxid":1`,
		`{"1":5,"2":"x"}`,
		`{"taxid":1} {"taxid":2}`,
	}

	for _, payload := range testCases {
		t.Run(payload, func(t *testing.T) {
			_, _, err := NormalizeJSON(model.ModeTaxonSearch, payload)
			require.Error(t, err)

			var noResults *NoResultsError
			assert.ErrorAs(t, err, &noResults)
			assert.ErrorIs(t, err, ErrNoResults)
		})
	}
}

// encodeTaxon reverses the key renames, producing the upstream shape
func encodeTaxon(rec model.Record) map[string]any {
	reverse := make(map[string]string, len(jsonRenames))
	for from, to := range jsonRenames {
		reverse[to] = from
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if upstream, ok := reverse[k]; ok {
			k = upstream
		}
		out[k] = v
	}
	return out
}

func TestNormalizeJSON_Idempotent(t *testing.T) {
	payloads := []string{
		`{"taxid":891,"taxon":"Fabaceae","tax_rank":"family","tax_division":"Plants","parentid":187,"parentname":"Fabales","taxonrep":"Fabaceae"}`,
		`{"302603":{"taxid":302603,"taxon":"Euptychia ordinata","tax_rank":"species","images":[{"image":"a.jpg"}]},"7044":{"taxid":7044,"taxon":"Euptychia","tax_rank":"genus"}}`,
	}

	for i, payload := range payloads {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			first, _, err := NormalizeJSON(model.ModeTaxonData, payload)
			require.NoError(t, err)

			var again []model.Record
			if len(first) == 1 {
				encoded, err := json.Marshal(encodeTaxon(first[0]))
				require.NoError(t, err)
				again, _, err = NormalizeJSON(model.ModeTaxonData, string(encoded))
				require.NoError(t, err)
			} else {
				// a map would lose order, so the keyed object is written by hand
				buf := []byte("{")
				for j, rec := range first {
					id, ok := rec.Int("tax_id")
					require.True(t, ok)
					member, err := json.Marshal(encodeTaxon(rec))
					require.NoError(t, err)
					if j > 0 {
						buf = append(buf, ',')
					}
					buf = append(buf, fmt.Sprintf("%q:", fmt.Sprint(id))...)
					buf = append(buf, member...)
				}
				buf = append(buf, '}')
				again, _, err = NormalizeJSON(model.ModeTaxonData, string(buf))
				require.NoError(t, err)
			}

			assert.Equal(t, first, again)
		})
	}
}
