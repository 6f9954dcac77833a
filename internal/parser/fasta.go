package parser

import (
	"iter"
	"strings"
	"unicode"

	"bold-client-go/internal/model"
)

// DecodeFASTA returns a lazy sequence of FASTA records read straight from
// text. Ranging over it again restarts decoding from the first header.
//
// The first whitespace-delimited token of a header is the ID and the rest is
// the description. Sequence lines are concatenated with all whitespace
// removed. Lines before the first header are ignored.
func DecodeFASTA(text string) iter.Seq[model.SequenceRecord] {
	return func(yield func(model.SequenceRecord) bool) {
		var (
			cur      model.SequenceRecord
			seq      strings.Builder
			inRecord bool
		)

		for line := range strings.Lines(text) {
			line = strings.TrimRight(line, "\r\n")

			if strings.HasPrefix(line, ">") {
				if inRecord {
					cur.Sequence = seq.String()
					if !yield(cur) {
						return
					}
				}
				cur = splitDefline(line[1:])
				seq.Reset()
				inRecord = true
				continue
			}

			if !inRecord {
				continue
			}
			for _, chunk := range strings.Fields(line) {
				seq.WriteString(chunk)
			}
		}

		if inRecord {
			cur.Sequence = seq.String()
			yield(cur)
		}
	}
}

// splitDefline separates the identifier from the description
func splitDefline(line string) model.SequenceRecord {
	line = strings.TrimSpace(line)
	pos := strings.IndexFunc(line, unicode.IsSpace)
	if pos < 0 {
		return model.SequenceRecord{ID: line}
	}
	return model.SequenceRecord{
		ID:          line[:pos],
		Description: strings.TrimSpace(line[pos:]),
	}
}
