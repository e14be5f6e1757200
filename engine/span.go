package engine

import (
	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/token"
)

type spanState uint8

const (
	spanLeft  spanState = iota // matching Left
	spanGap                    // master: counting gap tokens
	spanRight                  // member: matching Right after a fixed gap
)

// spanCandidate matches AnySpan and WordSpan. Once Left completes the
// candidate becomes the master of a span family and waits, skipping gap
// tokens; every token Right can start at yields a member clone with the
// gap length fixed.
type spanCandidate struct {
	candidateBase
	state spanState

	gap     int // bounded quantity: tokens, or words for WordSpan
	skipped int // non-whitespace tokens skipped
	gapFirst, gapLast token.Location

	family *spanFamily
}

func (c *spanCandidate) onNext(ev *event) { ev.s.enter(c, ev) }

func (c *spanCandidate) onElementMatch(child candidate, ev *event) {
	switch position(child) {
	case 0:
		if c.state != spanLeft {
			panic(invariant(c, ErrUnexpectedPosition))
		}
		c.end = child.base().end
		ev.s.openSpan(c, ev)
	case 1:
		if c.state != spanRight {
			panic(invariant(c, ErrUnexpectedPosition))
		}
		ev.s.closeSpan(c, child, ev)
	default:
		panic(invariant(c, ErrUnexpectedPosition))
	}
}

func (c *spanCandidate) clone() candidate {
	n := *c
	n.candidateBase = c.copyBase()
	return &n
}

// spanShape is the static description shared by both span kinds.
type spanShape struct {
	right    expr.Expression
	min, max int
	gap      *expr.Field
	words    bool
}

func shapeOf(e expr.Expression) spanShape {
	switch x := e.(type) {
	case *expr.AnySpan:
		return spanShape{right: x.Right, min: x.Min, max: x.Max, gap: x.Gap()}
	case *expr.WordSpan:
		return spanShape{right: x.Right, min: x.Min, max: x.Max, gap: x.Gap(), words: true}
	}
	panic(&InvariantError{Candidate: e.String(), Err: ErrUnexpectedPosition})
}

// spanFamily groups the members created from one master. At most one gap
// length of a family reaches final match: the shortest whose root does.
type spanFamily struct {
	master  *spanCandidate
	entries []*spanEntry

	closed       bool // no new members
	rightMatched bool
}

// holding reports whether the family suppresses new left sides.
func (f *spanFamily) holding() bool {
	return !f.closed && !f.rightMatched && !f.master.root().rejected
}

// spanEntry is a root's membership in a span family.
type spanEntry struct {
	family *spanFamily
	gap    int
	root   *rootCandidate
}

func (s *Session) joinSpanFamily(f *spanFamily, gap int, r *rootCandidate) {
	e := &spanEntry{family: f, gap: gap, root: r}
	f.entries = append(f.entries, e)
	r.spans = append(r.spans, e)
}

// openSpan turns c into the master of a new family after Left completed.
func (s *Session) openSpan(c *spanCandidate, ev *event) {
	suppressible := s.cfg.SuppressOverlappingSpans && s.prog.suppressible[c.expr]
	if suppressible {
		if h := s.spanHolders[c.expr]; h != nil && h.holding() {
			ev.outcome = Reject
			s.reject(c.root())
			return
		}
	}
	c.state = spanGap
	c.family = &spanFamily{master: c}
	if suppressible {
		s.spanHolders[c.expr] = c.family
	}
	s.waitMaster(c, shapeOf(c.expr).right.First(), ev)
}

// startRight forks a member off master m at the current token.
func (s *Session) startRight(m *spanCandidate, leaf expr.Expression) {
	if m.family.closed || m.root().rejected {
		return
	}
	if m.gap < shapeOf(m.expr).min {
		return
	}
	n := s.cloneChain(m).(*spanCandidate)
	n.state = spanRight
	s.joinSpanFamily(m.family, m.gap, n.root())
	s.enter(n, s.newEvent(leaf))
}

// masterStep accounts the current token as part of the gap. It reports
// false once the master is retired.
func (s *Session) masterStep(m *spanCandidate) bool {
	f := m.family
	if f.closed {
		s.reject(m.root())
		return false
	}
	if s.tok.Kind.IsWhitespace() {
		return true
	}
	m.skipped++
	if m.skipped == 1 {
		m.gapFirst = s.loc
	}
	m.gapLast = s.loc

	shape := shapeOf(m.expr)
	if !shape.words || s.tok.Kind == token.Word {
		m.gap++
	}
	if shape.max != expr.Unbounded && m.gap > shape.max {
		f.closed = true
		s.reject(m.root())
		return false
	}
	return true
}

// closeSpan completes a member whose Right side matched.
func (s *Session) closeSpan(c *spanCandidate, child candidate, ev *event) {
	c.end = child.base().end
	c.family.rightMatched = true
	if f := shapeOf(c.expr).gap; f != nil && c.skipped > 0 {
		c.root().addExtraction(f, c.gapFirst.Synthesized(), c.gapLast.Synthesized())
	}
	s.completeMatch(c, ev)
}

// deferred reports whether a strictly shorter member of one of r's span
// families is still alive.
func (s *Session) deferred(r *rootCandidate) bool {
	for _, e := range r.spans {
		for _, o := range e.family.entries {
			if o.gap < e.gap && !o.root.rejected {
				return true
			}
		}
	}
	return false
}

// decideSpans closes the span families of a final root and rejects every
// strictly longer member.
func (s *Session) decideSpans(r *rootCandidate) {
	for _, e := range r.spans {
		f := e.family
		if !f.closed {
			f.closed = true
			s.reject(f.master.root())
		}
		for _, o := range f.entries {
			if o.gap > e.gap {
				s.reject(o.root)
			}
		}
		s.log.Debug("span resolved", "pattern", r.name(), "start", r.start.Number, "gap", e.gap)
	}
}
