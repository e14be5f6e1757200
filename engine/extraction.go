package engine

import (
	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/token"
)

// genKey caches the tree generated for one field reference and one value.
type genKey struct {
	ref  *expr.FieldReference
	text string
}

// entryLeaves returns the leaves through which entry can be entered at the
// current token. Field references resolve against extractions and yield
// leaves of the generated tree.
func (s *Session) entryLeaves(entry expr.Entry, extractions []Extraction) ([]expr.Expression, error) {
	switch leaf := entry.Leaf.(type) {
	case *expr.Token:
		if s.matchedSet[leaf] || (!s.prog.index.Contains(leaf) && leaf.Matches(s.tok)) {
			return []expr.Expression{leaf}, nil
		}
	case *expr.PatternReference:
		if s.startedSet[leaf.Pattern] {
			return []expr.Expression{leaf}, nil
		}
	case *expr.FieldReference:
		gen, err := s.fieldTree(leaf, extractions)
		if err != nil || gen == nil {
			return nil, err
		}
		var out []expr.Expression
		for _, e := range gen.First() {
			if t := e.Token(); t != nil && t.Matches(s.tok) {
				out = append(out, t)
			}
		}
		return out, nil
	}
	return nil, nil
}

// fieldTree returns the token tree matching the latest value of the field
// referenced by f, or nil when the value has no tokens.
func (s *Session) fieldTree(f *expr.FieldReference, extractions []Extraction) (expr.Expression, error) {
	x, ok := latest(extractions, f.Field().Number)
	if !ok {
		err := &FieldError{
			Pattern: expr.PatternOf(f).Name,
			Field:   f.FieldName,
			Token:   s.loc.Number,
		}
		s.log.Debug("field reference without value", "pattern", err.Pattern, "field", err.Field, "token", err.Token)
		return nil, err
	}
	text := s.src.GetText(x.Start, x.End)
	key := genKey{ref: f, text: text}
	if gen, ok := s.generated[key]; ok {
		return gen, nil
	}
	gen := s.generate(f, text)
	s.generated[key] = gen
	return gen, nil
}

// generate re-tokenizes text into a word sequence attached under f.
func (s *Session) generate(f *expr.FieldReference, text string) expr.Expression {
	var words []expr.Expression
	for _, tok := range token.Tokenize(text) {
		if tok.Kind == token.Start || tok.Kind == token.End || tok.Kind.IsWhitespace() {
			continue
		}
		if s.cfg.FoldFieldReferences {
			words = append(words, expr.Word(tok.Text))
		} else {
			words = append(words, expr.ExactWord(tok.Text))
		}
	}

	var gen expr.Expression
	switch len(words) {
	case 0:
		return nil
	case 1:
		gen = words[0]
	default:
		gen = expr.Seq(words...)
	}
	if err := expr.AttachGenerated(gen, f); err != nil {
		panic(&InvariantError{Candidate: f.String(), Err: err})
	}
	return gen
}
