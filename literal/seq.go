// Package literal extracts required literals from expression trees.
//
// A required literal is a piece of case-folded text that every match of an
// expression contains. The prefilter package uses the union of the required
// literals of all search targets to skip texts that cannot match.
//
// Key concepts:
//   - A Literal is a folded byte sequence that must appear in a match
//   - A Seq is a set of alternatives: at least one of them appears
//   - A nil *Seq means unconstrained: no literal is required
package literal

import (
	"bytes"
	"slices"
)

// Literal is a folded byte sequence required by a match.
// Complete is true when the literal is the whole text of a token, false when
// it is only a prefix of one (prefix token expressions, truncated literals).
//
// Example:
//   - Word("Paris") -> Literal{[]byte("paris"), true}
//   - Prefix("par") -> Literal{[]byte("par"), false}
type Literal struct {
	Bytes    []byte
	Complete bool
}

// NewLiteral creates a new Literal from the given byte sequence and completeness flag.
func NewLiteral(b []byte, complete bool) Literal {
	return Literal{
		Bytes:    b,
		Complete: complete,
	}
}

// Len returns the length of the literal in bytes.
func (l Literal) Len() int {
	return len(l.Bytes)
}

// String returns a string representation of the literal for debugging purposes.
// Format: "literal{bytes, complete=true/false}"
func (l Literal) String() string {
	complete := "false"
	if l.Complete {
		complete = "true"
	}
	return "literal{" + string(l.Bytes) + ", complete=" + complete + "}"
}

// Seq is a set of alternative literals.
//
// Example:
//
//	seq := literal.NewSeq(
//	    literal.NewLiteral([]byte("paris"), true),
//	    literal.NewLiteral([]byte("london"), true),
//	)
//	fmt.Println(seq.Len()) // Output: 2
type Seq struct {
	literals []Literal
}

// NewSeq creates a new sequence from the given literals.
func NewSeq(lits ...Literal) *Seq {
	return &Seq{
		literals: lits,
	}
}

// Len returns the number of literals in the sequence.
func (s *Seq) Len() int {
	if s == nil {
		return 0
	}
	return len(s.literals)
}

// Get returns the literal at the specified index.
// Panics if index is out of bounds.
func (s *Seq) Get(i int) Literal {
	return s.literals[i]
}

// IsEmpty returns true if the sequence has no literals.
func (s *Seq) IsEmpty() bool {
	return s.Len() == 0
}

// Clone returns a deep copy of the sequence.
func (s *Seq) Clone() *Seq {
	if s == nil {
		return nil
	}
	cloned := make([]Literal, len(s.literals))
	for i, lit := range s.literals {
		cloned[i] = Literal{
			Bytes:    bytes.Clone(lit.Bytes),
			Complete: lit.Complete,
		}
	}
	return &Seq{literals: cloned}
}

// Union returns the alternatives of both sequences. A nil operand is
// unconstrained, so the union is nil as well.
func (s *Seq) Union(other *Seq) *Seq {
	if s == nil || other == nil {
		return nil
	}
	lits := make([]Literal, 0, len(s.literals)+len(other.literals))
	lits = append(lits, s.literals...)
	lits = append(lits, other.literals...)
	return &Seq{literals: lits}
}

// MinLen returns the length of the shortest literal, 0 for an empty sequence.
func (s *Seq) MinLen() int {
	if s.IsEmpty() {
		return 0
	}
	n := s.literals[0].Len()
	for _, lit := range s.literals[1:] {
		n = min(n, lit.Len())
	}
	return n
}

// Minimize removes redundant literals from the sequence.
//
// A literal L is redundant if a shorter kept literal S occurs inside L: any
// text containing L also contains S. Equal literals collapse to one, keeping
// Complete only if every copy was complete.
//
// Example:
//
//	seq := literal.NewSeq(
//	    literal.NewLiteral([]byte("york"), true),
//	    literal.NewLiteral([]byte("yorkshire"), true),
//	)
//	seq.Minimize()
//	fmt.Println(seq.Len()) // Output: 1 (only "york" remains)
func (s *Seq) Minimize() {
	if s.IsEmpty() {
		return
	}

	slices.SortStableFunc(s.literals, func(a, b Literal) int {
		return a.Len() - b.Len()
	})

	kept := make([]Literal, 0, len(s.literals))
	for _, current := range s.literals {
		redundant := false
		for j := range kept {
			if bytes.Equal(kept[j].Bytes, current.Bytes) {
				kept[j].Complete = kept[j].Complete && current.Complete
				redundant = true
				break
			}
			if bytes.Contains(current.Bytes, kept[j].Bytes) {
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, current)
		}
	}
	s.literals = kept
}

// better reports whether a is a more selective requirement than b: fewer
// alternatives first, then a longer shortest literal.
func better(a, b *Seq) bool {
	if b == nil {
		return a != nil
	}
	if a == nil {
		return false
	}
	if a.Len() != b.Len() {
		return a.Len() < b.Len()
	}
	return a.MinLen() > b.MinLen()
}
