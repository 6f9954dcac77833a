package model

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"
)

// RawTextKey holds the verbatim payload of a degraded (tabular text) response.
const RawTextKey = "raw_text"

// MissingFieldWarning reports expected keys absent from a taxon record. It is
// logged and attached to the Response, never returned as an error.
type MissingFieldWarning struct {
	Mode  QueryMode `json:"query_mode"`
	Index int       `json:"index"`
	Keys  []string  `json:"missing_keys"`
}

func (w MissingFieldWarning) Error() string {
	return fmt.Sprintf("%s record %d is missing %s", w.Mode, w.Index, strings.Join(w.Keys, ", "))
}

// Response is the normalized outcome of one BOLD call. Either the record list
// or the byte blob is populated, never both. It is not modified after
// construction and accessors hand out copies.
type Response struct {
	mode      QueryMode
	format    Format
	items     []Record
	blob      []byte
	degraded  bool
	warnings  []MissingFieldWarning
	sequences iter.Seq[SequenceRecord]
}

// NewRecordResponse wraps parsed records
func NewRecordResponse(mode QueryMode, format Format, items []Record, warnings []MissingFieldWarning) *Response {
	if items == nil {
		items = []Record{}
	}
	return &Response{mode: mode, format: format, items: items, warnings: warnings}
}

// NewDegradedResponse stores text that could not be parsed as XML as a single
// record under RawTextKey.
func NewDegradedResponse(mode QueryMode, text string) *Response {
	return &Response{
		mode:     mode,
		format:   FormatTSV,
		items:    []Record{{RawTextKey: text}},
		degraded: true,
	}
}

// NewSequenceResponse materializes a FASTA decoding and keeps the iterator
// for lazy re-reads through Sequences.
func NewSequenceResponse(mode QueryMode, seqs iter.Seq[SequenceRecord]) *Response {
	items := []Record{}
	for s := range seqs {
		items = append(items, s.Record())
	}
	return &Response{mode: mode, format: FormatFASTA, items: items, sequences: seqs}
}

// NewBlobResponse stores an opaque binary payload
func NewBlobResponse(mode QueryMode, blob []byte) *Response {
	b := make([]byte, len(blob))
	copy(b, blob)
	return &Response{mode: mode, format: FormatBinary, blob: b}
}

// Mode returns the query mode that produced the payload
func (r *Response) Mode() QueryMode { return r.mode }

// Format returns the representation the payload was parsed from
func (r *Response) Format() Format { return r.format }

// Len returns the number of records
func (r *Response) Len() int { return len(r.items) }

// IsBinary reports whether the response carries a byte blob
func (r *Response) IsBinary() bool { return r.format == FormatBinary }

// Degraded reports whether the XML parse failed and the payload was kept as text
func (r *Response) Degraded() bool { return r.degraded }

// Items returns copies of the records in payload order
func (r *Response) Items() []Record {
	if r.items == nil {
		return nil
	}
	out := make([]Record, len(r.items))
	for i, item := range r.items {
		out[i] = item.Clone()
	}
	return out
}

// Item returns a copy of record i
func (r *Response) Item(i int) Record {
	return r.items[i].Clone()
}

// All iterates over record copies
func (r *Response) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i, item := range r.items {
			if !yield(i, item.Clone()) {
				return
			}
		}
	}
}

// Blob returns a copy of the binary payload, nil for text responses
func (r *Response) Blob() []byte {
	if r.blob == nil {
		return nil
	}
	b := make([]byte, len(r.blob))
	copy(b, r.blob)
	return b
}

// Text returns the verbatim payload of a degraded response
func (r *Response) Text() (string, bool) {
	if !r.degraded {
		return "", false
	}
	s, ok := r.items[0][RawTextKey].(string)
	return s, ok
}

// Warnings returns the missing-field warnings gathered during normalization
func (r *Response) Warnings() []MissingFieldWarning {
	return append([]MissingFieldWarning(nil), r.warnings...)
}

// Sequences re-decodes the FASTA payload. Empty for other modes.
func (r *Response) Sequences() iter.Seq[SequenceRecord] {
	if r.sequences == nil {
		return func(func(SequenceRecord) bool) {}
	}
	return r.sequences
}

type responseJSON struct {
	Mode     QueryMode             `json:"query_mode"`
	Format   Format                `json:"format"`
	Degraded bool                  `json:"degraded,omitempty"`
	Total    int                   `json:"total"`
	Items    []Record              `json:"items,omitempty"`
	Blob     []byte                `json:"blob,omitempty"`
	Warnings []MissingFieldWarning `json:"warnings,omitempty"`
}

// MarshalJSON renders the response for the HTTP layer
func (r *Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(responseJSON{
		Mode:     r.mode,
		Format:   r.format,
		Degraded: r.degraded,
		Total:    len(r.items),
		Items:    r.items,
		Blob:     r.blob,
		Warnings: r.warnings,
	})
}
