package engine

import (
	"slices"

	"github.com/coregx/coresearch/expr"
)

type verdict uint8

const (
	verdictWait verdict = iota
	verdictConfirm
	verdictReject
)

// addCondition registers the operand check of a completed Inside, Outside
// or Having candidate on its root.
func (s *Session) addCondition(c *conditionCandidate) {
	d := &dependency{
		owner: c.root(),
		start: c.start,
		end:   c.end,
	}
	switch x := c.expr.(type) {
	case *expr.Inside:
		d.kind, d.operand = depInside, operandPattern(x.Outer)
	case *expr.Outside:
		d.kind, d.operand = depOutside, operandPattern(x.Outer)
	case *expr.Having:
		d.kind, d.operand = depHaving, operandPattern(x.Inner)
	}
	s.register(d)
}

func operandPattern(e expr.Expression) *expr.Pattern {
	return e.(*expr.PatternReference).Pattern
}

// evaluateConditions resolves every condition whose operand has settled.
func (s *Session) evaluateConditions() {
	if len(s.conditions) == 0 {
		return
	}
	for p, roots := range s.roots {
		s.roots[p] = slices.DeleteFunc(roots, func(r *rootCandidate) bool { return !r.alive() })
	}
	// rejecting an owner never registers a condition
	keep := s.conditions[:0]
	for _, d := range s.conditions {
		if d.done {
			continue
		}
		switch s.decide(d) {
		case verdictConfirm:
			d.done = true
			s.changed = true
		case verdictReject:
			d.done = true
			s.reject(d.owner)
		default:
			keep = append(keep, d)
		}
	}
	clear(s.conditions[len(keep):])
	s.conditions = keep
}

func (s *Session) decide(d *dependency) verdict {
	from, to := d.start.TokenNumber(), d.end.TokenNumber()
	finals := s.finals[d.operand]
	live := s.roots[d.operand]

	switch d.kind {
	case depInside, depOutside:
		covered := slices.ContainsFunc(finals, func(f extent) bool {
			return f.start <= from && f.end >= to
		})
		mayCover := slices.ContainsFunc(live, func(r *rootCandidate) bool {
			return r.start.TokenNumber() <= from && (!r.completed || r.end.TokenNumber() >= to)
		})
		switch {
		case covered && d.kind == depInside:
			return verdictConfirm
		case covered:
			return verdictReject
		case mayCover:
			return verdictWait
		case d.kind == depInside:
			return verdictReject
		default:
			return verdictConfirm
		}

	case depHaving:
		found := slices.ContainsFunc(finals, func(f extent) bool {
			return f.start >= from && f.end <= to
		})
		if found {
			return verdictConfirm
		}
		// in-progress roots can only end after the current token
		mayFind := slices.ContainsFunc(live, func(r *rootCandidate) bool {
			return r.completed && r.start.TokenNumber() >= from && r.end.TokenNumber() <= to
		})
		if mayFind {
			return verdictWait
		}
		return verdictReject
	}
	panic(&InvariantError{Candidate: d.owner.expr.String(), Err: ErrUnexpectedPosition})
}
