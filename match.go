package coresearch

import (
	"github.com/coregx/coresearch/engine"
	"github.com/coregx/coresearch/token"
)

// Match is a final match resolved against the searched text.
type Match struct {
	Pattern string
	Text    string

	// byte offsets of the match in the text
	Start, End int

	Fields []Field
}

// Field is one captured value of a match.
type Field struct {
	Name string
	Text string
	Gap  bool // the skipped text of a span
}

// Field returns the latest value captured into the named field.
func (m Match) Field(name string) (string, bool) {
	for i := len(m.Fields) - 1; i >= 0; i-- {
		if m.Fields[i].Name == name {
			return m.Fields[i].Text, true
		}
	}
	return "", false
}

func newMatch(src *token.Text, m engine.Match) Match {
	start := src.At(m.Start.TokenNumber()).Location.Position
	end := src.At(m.End.TokenNumber()).Location.EndPosition()
	out := Match{
		Pattern: m.Pattern.Name,
		Text:    src.GetText(m.Start, m.End),
		Start:   start,
		End:     end,
	}
	for _, x := range m.Extractions {
		out.Fields = append(out.Fields, Field{
			Name: x.Field.Name,
			Text: src.GetText(x.Start, x.End),
			Gap:  x.Gap(),
		})
	}
	return out
}
