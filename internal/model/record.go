package model

import (
	"fmt"
	"strconv"
)

// Record is one normalized result row keyed by canonical field name.
//
// Values are string, float64, int64, nil, []string for repeated XML paths,
// or compound JSON values (map[string]any, []any) copied through unchanged.
type Record map[string]any

// Has reports whether the source carried the field, even if it was empty
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the text value of key. Numbers are formatted; lists and
// nil report false.
func (r Record) String(key string) (string, bool) {
	switch v := r[key].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(v, 10), true
	}
	return "", false
}

// Float returns key as a float64, parsing text when needed
func (r Record) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// Int returns key as an int64, parsing text when needed
func (r Record) Int(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int64:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Strings returns key as a list. A scalar yields a one-element list, nil an
// empty one.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	if s, ok := r.String(key); ok {
		return []string{s}
	}
	return nil
}

// Clone returns a shallow copy with list values copied
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out[k] = v
	}
	return out
}

// SequenceRecord is one FASTA entry
type SequenceRecord struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Sequence    string `json:"sequence"`
}

// Record converts the sequence into the generic record shape
func (s SequenceRecord) Record() Record {
	return Record{
		"id":          s.ID,
		"description": s.Description,
		"sequence":    s.Sequence,
	}
}
