package fetcher

import (
	"fmt"
	"strings"

	"bold-client-go/internal/model"
)

// iupacBases are the nucleotide codes BOLD accepts in a query sequence
const iupacBases = "ACGTURYSWKMBDHVN-"

// PrepareSequence turns a sequence value into the bare uppercase string the
// identification endpoint expects. It accepts a string, a []byte, a
// model.SequenceRecord or anything with a String method. Text starting with
// '>' is read as FASTA and its first record is used.
func PrepareSequence(v any) (string, error) {
	var raw string
	switch s := v.(type) {
	case string:
		raw = s
	case []byte:
		raw = string(s)
	case model.SequenceRecord:
		raw = s.Sequence
	case *model.SequenceRecord:
		if s == nil {
			return "", fmt.Errorf("%w: nil sequence", ErrInvalidQuery)
		}
		raw = s.Sequence
	case fmt.Stringer:
		raw = s.String()
	default:
		return "", fmt.Errorf("%w: unsupported sequence type %T", ErrInvalidQuery, v)
	}

	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, ">") {
		// drop the header line, keep the first record only
		_, body, _ := strings.Cut(raw, "\n")
		if next := strings.Index(body, ">"); next >= 0 {
			body = body[:next]
		}
		raw = body
	}

	var sb strings.Builder
	for _, chunk := range strings.Fields(raw) {
		sb.WriteString(strings.ToUpper(chunk))
	}
	seq := sb.String()

	if seq == "" {
		return "", fmt.Errorf("%w: empty sequence", ErrInvalidQuery)
	}
	if i := strings.IndexFunc(seq, func(r rune) bool { return !strings.ContainsRune(iupacBases, r) }); i >= 0 {
		return "", fmt.Errorf("%w: invalid nucleotide %q at position %d", ErrInvalidQuery, seq[i], i)
	}
	return seq, nil
}
