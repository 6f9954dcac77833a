// Package parser normalizes raw BOLD payloads into model.Response values.
//
// Normalize is a pure function of (mode, payload): it performs no I/O and
// touches no mutable shared state, so it is safe for concurrent use.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"bold-client-go/internal/model"
)

type strategy func(mode model.QueryMode, payload []byte) (*model.Response, error)

// strategies has one entry per model.AllQueryModes member
var strategies = map[model.QueryMode]strategy{
	model.ModeIdentify:     parseRecords,
	model.ModeTaxonSearch:  parseTaxa,
	model.ModeTaxonData:    parseTaxa,
	model.ModeSpecimenData: parseRecords,
	model.ModeSequenceData: parseSequences,
	model.ModeFullData:     parseRecords,
	model.ModeTraceFiles:   keepBlob,
}

// Normalize converts a payload returned for mode into a Response.
//
// Text payloads that are empty or whitespace fail with *EmptyResponseError.
// trace_files payloads are kept as an opaque blob and never checked for
// emptiness.
func Normalize(mode model.QueryMode, payload []byte) (*model.Response, error) {
	parse, ok := strategies[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownQueryMode, string(mode))
	}
	if !mode.IsBinary() && len(bytes.TrimSpace(payload)) == 0 {
		return nil, &EmptyResponseError{Mode: mode}
	}
	return parse(mode, payload)
}

// NormalizeText is Normalize for callers holding a string
func NormalizeText(mode model.QueryMode, text string) (*model.Response, error) {
	return Normalize(mode, []byte(text))
}

// parseRecords tries the XML extractor first. Only a malformed payload
// switches to the text fallback, since the same endpoint returns TSV when
// that format was requested.
func parseRecords(mode model.QueryMode, payload []byte) (*model.Response, error) {
	text := string(payload)

	items, err := ExtractXML(text, mode.RecordTag())
	if err != nil {
		var malformed *MalformedPayloadError
		if errors.As(err, &malformed) {
			slog.Debug("payload is not XML, keeping it as text", "mode", mode, "reason", malformed.Reason)
			return model.NewDegradedResponse(mode, text), nil
		}
		return nil, err
	}

	return model.NewRecordResponse(mode, model.FormatXML, items, nil), nil
}

func parseTaxa(mode model.QueryMode, payload []byte) (*model.Response, error) {
	items, warnings, err := NormalizeJSON(mode, string(payload))
	if err != nil {
		return nil, err
	}
	return model.NewRecordResponse(mode, model.FormatJSON, items, warnings), nil
}

func parseSequences(mode model.QueryMode, payload []byte) (*model.Response, error) {
	return model.NewSequenceResponse(mode, DecodeFASTA(string(payload))), nil
}

func keepBlob(mode model.QueryMode, payload []byte) (*model.Response, error) {
	return model.NewBlobResponse(mode, payload), nil
}
