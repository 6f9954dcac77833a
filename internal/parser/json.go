package parser

import (
	"encoding/json"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"bold-client-go/internal/model"
)

// numericKey detects taxon-ID keys of a keyed collection
var numericKey = regexp.MustCompile(`^[0-9]+`)

// jsonRenames maps BOLD taxon keys to canonical keys. taxon, tax_rank and
// tax_division are already canonical.
var jsonRenames = map[string]string{
	"taxid":      "tax_id",
	"parentid":   "parent_id",
	"parentname": "parent_name",
	"taxonrep":   "taxon_rep",
}

// expectedTaxonKeys are reported through MissingFieldWarning when absent
var expectedTaxonKeys = []string{"tax_id", "taxon", "tax_rank"}

type jsonMember struct {
	key   string
	value any
}

// NormalizeJSON converts a taxon payload into flat records.
//
// An object whose keys all start with a digit is a collection keyed by taxon
// ID and yields one record per object value. Any other object is a single
// taxon and yields one record.
func NormalizeJSON(mode model.QueryMode, text string) ([]model.Record, []model.MissingFieldWarning, error) {
	members, err := decodeObject(text)
	if err != nil {
		return nil, nil, err
	}
	if len(members) == 0 {
		return nil, nil, &NoResultsError{Reason: "empty object"}
	}

	keyed := true
	for _, m := range members {
		if !numericKey.MatchString(m.key) {
			keyed = false
			break
		}
	}

	var items []model.Record
	if keyed {
		for _, m := range members {
			obj, ok := m.value.(map[string]any)
			if !ok {
				slog.Debug("skipping non-object taxon entry", "mode", mode, "key", m.key)
				continue
			}
			rec := renameKeys(obj)
			if !rec.Has("tax_id") {
				rec["tax_id"] = keyID(m.key)
			}
			items = append(items, rec)
		}
	} else {
		obj := make(map[string]any, len(members))
		for _, m := range members {
			obj[m.key] = m.value
		}
		items = append(items, renameKeys(obj))
	}

	if len(items) == 0 {
		return nil, nil, &NoResultsError{Reason: "keyed collection holds no objects"}
	}

	var warnings []model.MissingFieldWarning
	for i, rec := range items {
		var missing []string
		for _, key := range expectedTaxonKeys {
			if !rec.Has(key) {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			w := model.MissingFieldWarning{Mode: mode, Index: i, Keys: missing}
			slog.Warn("taxon record is missing expected fields", "mode", mode, "index", i, "missing", strings.Join(missing, ","))
			warnings = append(warnings, w)
		}
	}

	return items, warnings, nil
}

func renameKeys(obj map[string]any) model.Record {
	rec := make(model.Record, len(obj))
	for k, v := range obj {
		if canonical, ok := jsonRenames[k]; ok {
			k = canonical
		}
		rec[k] = v
	}
	return rec
}

// keyID turns an outer collection key into a taxon ID, numeric when possible
func keyID(key string) any {
	if n, err := strconv.ParseInt(key, 10, 64); err == nil {
		return n
	}
	return key
}

// decodeObject reads a top-level JSON object keeping member order, so keyed
// collections come out in payload order.
func decodeObject(text string) ([]jsonMember, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &NoResultsError{Reason: "invalid JSON", cause: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &NoResultsError{Reason: "top level is not an object"}
	}

	var members []jsonMember
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, &NoResultsError{Reason: "invalid JSON", cause: err}
		}
		key, _ := kt.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, &NoResultsError{Reason: "invalid JSON", cause: err}
		}
		members = append(members, jsonMember{key: key, value: convertNumbers(v)})
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, &NoResultsError{Reason: "invalid JSON", cause: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &NoResultsError{Reason: "trailing data after object"}
	}

	return members, nil
}

// convertNumbers replaces json.Number with int64 for integers and float64
// otherwise, recursively.
func convertNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, item := range t {
			t[k] = convertNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = convertNumbers(item)
		}
		return t
	}
	return v
}
