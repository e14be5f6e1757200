package engine

import (
	"strconv"
	"strings"

	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/token"
)

// Extraction is one field capture of a match.
type Extraction struct {
	Field      *expr.Field
	Start, End token.Location
}

// Gap reports whether the capture is the skipped text of a span. Gap
// captures use synthetic locations.
func (x Extraction) Gap() bool {
	return x.Start.Synthetic()
}

// Match is a final match of a search-target pattern.
type Match struct {
	Pattern     *expr.Pattern
	Start, End  token.Location
	Extractions []Extraction // in completion order
}

// Latest returns the most recent capture of the named field.
func (m Match) Latest(field string) (Extraction, bool) {
	for i := len(m.Extractions) - 1; i >= 0; i-- {
		if m.Extractions[i].Field.Name == field {
			return m.Extractions[i], true
		}
	}
	return Extraction{}, false
}

// key identifies a match for duplicate suppression.
func (m Match) key() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(m.Pattern.Number))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(m.Start.Number))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(m.End.Number))
	for _, x := range m.Extractions {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(x.Field.Number))
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(x.Start.Number))
		b.WriteByte('-')
		b.WriteString(strconv.Itoa(x.End.Number))
	}
	return b.String()
}

// latest scans extractions backward for the given field number.
func latest(extractions []Extraction, field int) (Extraction, bool) {
	for i := len(extractions) - 1; i >= 0; i-- {
		if extractions[i].Field.Number == field {
			return extractions[i], true
		}
	}
	return Extraction{}, false
}
