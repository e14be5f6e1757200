// Package prefilter rejects texts that cannot contain a match of any search
// target before they are tokenized and fed to the engine.
//
// The prefilter is built from the required literals of every search-target
// pattern (see package literal) and runs a single Aho-Corasick pass over the
// case-folded text. A text without any required literal cannot match.
//
// Example usage:
//
//	pf, err := prefilter.ForPackage(pkg, literal.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	if !pf.MayMatch(text) {
//	    return nil // no search target can match
//	}
package prefilter

import (
	"github.com/coregx/ahocorasick"

	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/literal"
	"github.com/coregx/coresearch/token"
)

// Prefilter is a multi-literal filter over folded text.
// A nil *Prefilter is valid and accepts every text.
type Prefilter struct {
	auto     *ahocorasick.Automaton
	literals *literal.Seq
}

// Build constructs a prefilter for the given required literals.
// It returns nil (accept everything) when lits is nil or empty.
func Build(lits *literal.Seq) (*Prefilter, error) {
	if lits.IsEmpty() {
		return nil, nil
	}
	builder := ahocorasick.NewBuilder()
	for i := 0; i < lits.Len(); i++ {
		builder.AddPattern(lits.Get(i).Bytes)
	}
	auto, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return &Prefilter{auto: auto, literals: lits}, nil
}

// ForPackage builds a prefilter from the search targets of a linked package.
// If any target is unconstrained the result is nil.
func ForPackage(pkg *expr.Package, config literal.ExtractorConfig) (*Prefilter, error) {
	ex := literal.New(config)
	var union *literal.Seq
	for i, pat := range pkg.Targets() {
		seq := ex.Extract(pat)
		if seq == nil {
			return nil, nil
		}
		if i == 0 {
			union = seq
		} else {
			union = union.Union(seq)
		}
	}
	if union == nil {
		return nil, nil
	}
	union.Minimize()
	return Build(union)
}

// MayMatch reports whether text contains at least one required literal.
func (p *Prefilter) MayMatch(text string) bool {
	if p == nil {
		return true
	}
	return p.find([]byte(token.Fold(text)), 0) >= 0
}

// find returns the byte offset of the first literal occurrence at or after
// start in an already folded haystack, or -1.
func (p *Prefilter) find(folded []byte, start int) int {
	if p == nil {
		return start
	}
	m := p.auto.Find(folded, start)
	if m == nil {
		return -1
	}
	return m.Start
}

// Literals returns the literals the prefilter searches for.
func (p *Prefilter) Literals() *literal.Seq {
	if p == nil {
		return nil
	}
	return p.literals
}
