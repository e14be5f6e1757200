package literal

import (
	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/token"
)

// ExtractorConfig configures literal extraction limits.
//
//   - MaxLiterals: a requirement with more alternatives is dropped
//   - MaxLiteralLen: longer literals are truncated to an incomplete prefix
//   - MaxDepth: bounds descent into referenced patterns
type ExtractorConfig struct {
	// MaxLiterals limits the number of alternatives of one requirement.
	// Larger sets are treated as unconstrained. Default: 64.
	MaxLiterals int

	// MaxLiteralLen limits the length of each literal in bytes. Default: 64.
	MaxLiteralLen int

	// MaxDepth limits how many pattern references are followed. Default: 16.
	MaxDepth int
}

// DefaultConfig returns the default extractor configuration.
func DefaultConfig() ExtractorConfig {
	return ExtractorConfig{
		MaxLiterals:   64,
		MaxLiteralLen: 64,
		MaxDepth:      16,
	}
}

// Extractor computes required literals of expression trees.
//
// Algorithm overview:
//   - Token with text: its folded text
//   - Sequence, Conjunction, spans: the most selective requirement among
//     the required (non-optional) parts
//   - Variation: union of every element's requirement (exceptions ignored)
//   - Repetition: the body's requirement when Min > 0
//   - Pattern references: the referenced pattern's requirement
//   - Text-less tokens and field references: unconstrained
//
// Example:
//
//	ex := literal.New(literal.DefaultConfig())
//	seq := ex.Extract(expr.Seq(expr.Word("new"), expr.Var(expr.Word("York"), expr.Word("Jersey"))))
//	// seq = ["new"]
type Extractor struct {
	config ExtractorConfig
}

// New creates a new literal extractor with the given configuration.
func New(config ExtractorConfig) *Extractor {
	return &Extractor{config: config}
}

// Extract returns the required literals of e, nil if unconstrained.
func (e *Extractor) Extract(x expr.Expression) *Seq {
	seq := e.extract(x, 0)
	if seq != nil {
		seq.Minimize()
	}
	return seq
}

func (e *Extractor) extract(x expr.Expression, depth int) *Seq {
	switch n := x.(type) {
	case *expr.Token:
		return e.token(n)
	case *expr.Sequence:
		return e.all(n.Elements, depth)
	case *expr.Conjunction:
		return e.all(n.Elements, depth)
	case *expr.Variation:
		var out *Seq
		for i, el := range n.Elements {
			seq := e.extract(el, depth)
			if seq == nil {
				return nil
			}
			if i == 0 {
				out = seq
			} else {
				out = out.Union(seq)
			}
			if out.Len() > e.config.MaxLiterals {
				return nil
			}
		}
		return out
	case *expr.Repetition:
		if n.Min == 0 {
			return nil
		}
		return e.extract(n.Body, depth)
	case *expr.AnySpan:
		return e.all([]expr.Expression{n.Left, n.Right}, depth)
	case *expr.WordSpan:
		return e.all([]expr.Expression{n.Left, n.Right}, depth)
	case *expr.Exception:
		return e.extract(n.Body, depth)
	case *expr.Inside:
		return e.extract(n.Body, depth)
	case *expr.Outside:
		return e.extract(n.Body, depth)
	case *expr.Having:
		return e.extract(n.Body, depth)
	case *expr.Extraction:
		return e.extract(n.Body, depth)
	case *expr.PatternReference:
		if n.Pattern == nil || depth >= e.config.MaxDepth {
			return nil
		}
		return e.extract(n.Pattern.Body, depth+1)
	case *expr.Pattern:
		return e.extract(n.Body, depth)
	}
	// field references match dynamic text
	return nil
}

func (e *Extractor) token(t *expr.Token) *Seq {
	if t.Text == "" {
		return nil
	}
	text := t.Folded()
	if text == "" {
		text = token.Fold(t.Text)
	}
	complete := !t.Prefix
	if len(text) > e.config.MaxLiteralLen {
		text = text[:e.config.MaxLiteralLen]
		complete = false
	}
	return NewSeq(NewLiteral([]byte(text), complete))
}

// all picks the most selective requirement among required elements.
func (e *Extractor) all(elements []expr.Expression, depth int) *Seq {
	var best *Seq
	for _, el := range elements {
		if el.IsOptional() {
			continue
		}
		if seq := e.extract(el, depth); better(seq, best) {
			best = seq
		}
	}
	return best
}
