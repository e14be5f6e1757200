package engine

import (
	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/index"
)

// Program is the immutable, compiled form of a linked package. It may be
// shared by any number of concurrent sessions.
type Program struct {
	pkg   *expr.Package
	index *index.Index

	// patterns whose first set contains the token directly
	startsOnToken map[*expr.Token][]*expr.Pattern
	// patterns whose first set contains a reference to the key
	startsOnRef map[*expr.Pattern][]*expr.Pattern

	// indexed by pattern number
	active []bool

	// unbounded spans of patterns that can never be rejected
	suppressible map[expr.Expression]bool

	// patterns whose roots are tracked for inside/outside/having
	operands map[*expr.Pattern]bool
	// patterns whose completions are delivered to references
	referenced map[*expr.Pattern]bool
}

// Compile prepares a linked package for matching.
func Compile(pkg *expr.Package) (*Program, error) {
	if pkg == nil || !pkg.Linked() {
		return nil, ErrUnlinked
	}
	p := &Program{
		pkg:           pkg,
		index:         index.New(pkg),
		startsOnToken: make(map[*expr.Token][]*expr.Pattern),
		startsOnRef:   make(map[*expr.Pattern][]*expr.Pattern),
		active:        make([]bool, len(pkg.Patterns)),
		suppressible:  make(map[expr.Expression]bool),
		operands:      make(map[*expr.Pattern]bool),
		referenced:    make(map[*expr.Pattern]bool),
	}
	p.markActive()

	for _, pat := range pkg.Patterns {
		if !p.active[pat.Number] {
			continue
		}
		for _, entry := range pat.First() {
			switch {
			case entry.Token() != nil:
				t := entry.Token()
				p.startsOnToken[t] = appendPattern(p.startsOnToken[t], pat)
			case entry.Reference() != nil:
				q := entry.Reference().Pattern
				p.startsOnRef[q] = appendPattern(p.startsOnRef[q], pat)
			}
		}
		expr.Walk(pat.Body, func(e expr.Expression) bool {
			switch x := e.(type) {
			case *expr.Inside:
				p.operands[x.Outer.(*expr.PatternReference).Pattern] = true
			case *expr.Outside:
				p.operands[x.Outer.(*expr.PatternReference).Pattern] = true
			case *expr.Having:
				p.operands[x.Inner.(*expr.PatternReference).Pattern] = true
			case *expr.PatternReference:
				p.referenced[x.Pattern] = true
			}
			return true
		})
		if !rejectable(pat) {
			expr.Walk(pat.Body, func(e expr.Expression) bool {
				switch s := e.(type) {
				case *expr.AnySpan:
					if s.Max == expr.Unbounded {
						p.suppressible[s] = true
					}
				case *expr.WordSpan:
					if s.Max == expr.Unbounded {
						p.suppressible[s] = true
					}
				}
				return true
			})
		}
	}
	return p, nil
}

// markActive flags search targets and every pattern reachable from them
// through references.
func (p *Program) markActive() {
	var queue []*expr.Pattern
	for _, pat := range p.pkg.Targets() {
		p.active[pat.Number] = true
		queue = append(queue, pat)
	}
	for len(queue) > 0 {
		pat := queue[0]
		queue = queue[1:]
		expr.Walk(pat.Body, func(e expr.Expression) bool {
			if r, ok := e.(*expr.PatternReference); ok && !p.active[r.Pattern.Number] {
				p.active[r.Pattern.Number] = true
				queue = append(queue, r.Pattern)
			}
			return true
		})
	}
}

// rejectable reports whether a completed match of pat can still be
// retracted by a dependent.
func rejectable(pat *expr.Pattern) bool {
	found := false
	expr.Walk(pat.Body, func(e expr.Expression) bool {
		switch x := e.(type) {
		case *expr.Variation:
			found = found || len(x.Exceptions) > 0
		case *expr.Inside, *expr.Outside, *expr.Having, *expr.PatternReference:
			found = true
		}
		return !found
	})
	return found
}

func appendPattern(list []*expr.Pattern, pat *expr.Pattern) []*expr.Pattern {
	for _, x := range list {
		if x == pat {
			return list
		}
	}
	return append(list, pat)
}

// Package returns the compiled package.
func (p *Program) Package() *expr.Package { return p.pkg }

// started returns the active patterns that can start at a token matched by
// the given token expressions, following references in first sets.
func (p *Program) started(matched []*expr.Token) []*expr.Pattern {
	var out []*expr.Pattern
	seen := make(map[*expr.Pattern]bool)
	for _, t := range matched {
		for _, pat := range p.startsOnToken[t] {
			if !seen[pat] {
				seen[pat] = true
				out = append(out, pat)
			}
		}
	}
	for i := 0; i < len(out); i++ {
		for _, pat := range p.startsOnRef[out[i]] {
			if !seen[pat] {
				seen[pat] = true
				out = append(out, pat)
			}
		}
	}
	return out
}
