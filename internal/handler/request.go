package handler

import (
	"fmt"
	"strings"

	"bold-client-go/internal/fetcher"
	"bold-client-go/internal/model"
	"bold-client-go/internal/parser"
)

// QueryRequest body of the query endpoints
type QueryRequest struct {
	Mode  string        `json:"mode"`  // one of the query modes, dashes accepted
	Query fetcher.Query `json:"query"` // parameters read by that mode
}

// BatchRequest body of the batch identification endpoint. Sequences and
// FASTA may be combined.
type BatchRequest struct {
	DB        string                 `json:"db,omitempty"`
	Sequences []model.SequenceRecord `json:"sequences,omitempty"`
	FASTA     string                 `json:"fasta,omitempty"`
}

// MaxBatchSize caps the sequences accepted by one batch request
const MaxBatchSize = 100

// records merges the explicit sequences with those decoded from FASTA
func (b *BatchRequest) records() ([]model.SequenceRecord, error) {
	seqs := append([]model.SequenceRecord(nil), b.Sequences...)
	if strings.TrimSpace(b.FASTA) != "" {
		for rec := range parser.DecodeFASTA(b.FASTA) {
			seqs = append(seqs, rec)
		}
	}
	if len(seqs) == 0 {
		return nil, fmt.Errorf("%w: no sequences", fetcher.ErrInvalidQuery)
	}
	if len(seqs) > MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d sequences per batch, got %d", fetcher.ErrInvalidQuery, MaxBatchSize, len(seqs))
	}
	return seqs, nil
}
