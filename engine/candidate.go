package engine

import (
	"slices"

	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/internal/sparse"
	"github.com/coregx/coresearch/token"
)

// Outcome is the effect an event had on the candidate it was presented to.
type Outcome uint8

const (
	// Ignore means no structural change, e.g. a span skipping a gap token.
	Ignore Outcome = iota
	// UpdateEventObserver means a different candidate now expects the next token.
	UpdateEventObserver
	// Reject means the chain cannot produce a match.
	Reject
	// Complete means a completion propagated to an ancestor.
	Complete
)

var outcomeNames = [...]string{"Ignore", "UpdateEventObserver", "Reject", "Complete"}

// String returns the outcome name
func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "Outcome(?)"
}

// event is one token (or one referenced-pattern completion) travelling
// through a candidate chain. A fresh event is used per cascade.
type event struct {
	s    *Session
	loc  token.Location
	leaf expr.Expression // entry leaf to enter, nil for completion events

	outcome Outcome
	next    candidate // observer expecting the next token

	// last repetition this cascade completed past its minimum
	innerRepetition *repetitionCandidate
}

// candidate is the mutable match state bound to one expression node.
type candidate interface {
	base() *candidateBase

	// onNext consumes an event addressed to this candidate.
	onNext(ev *event)

	// onElementMatch is called by a child that completed locally.
	onElementMatch(child candidate, ev *event)

	// clone copies local state. The copy has no target and no cached root.
	clone() candidate
}

// candidateBase holds the state shared by every candidate kind.
type candidateBase struct {
	expr       expr.Expression
	target     candidate // parent this candidate attaches to on completion
	start, end token.Location

	cached *rootCandidate // reset on clone
}

func (b *candidateBase) base() *candidateBase { return b }

// root walks target links up to the root and caches it.
func (b *candidateBase) root() *rootCandidate {
	if b.cached == nil {
		var c candidate = b.target
		for c != nil {
			if r, ok := c.(*rootCandidate); ok {
				b.cached = r
				break
			}
			c = c.base().target
		}
	}
	return b.cached
}

func (b *candidateBase) copyBase() candidateBase {
	return candidateBase{expr: b.expr, start: b.start, end: b.end}
}

func position(c candidate) int {
	return c.base().expr.Position()
}

// tokenCandidate matches a single token and never branches.
type tokenCandidate struct {
	candidateBase
}

func (c *tokenCandidate) onNext(ev *event) {
	c.end = ev.loc
	ev.s.completeMatch(c, ev)
}

func (c *tokenCandidate) onElementMatch(candidate, *event) {
	panic(invariant(c, ErrNotCompound))
}

func (c *tokenCandidate) clone() candidate {
	panic(invariant(c, ErrNotBranchable))
}

// sequenceCandidate advances through Elements one position at a time.
type sequenceCandidate struct {
	candidateBase
	pos int // next element to match
}

func (c *sequenceCandidate) onNext(ev *event) { ev.s.enter(c, ev) }

func (c *sequenceCandidate) onElementMatch(child candidate, ev *event) {
	seq := c.expr.(*expr.Sequence)
	p := position(child)
	if p < c.pos || p >= len(seq.Elements) {
		panic(invariant(c, ErrUnexpectedPosition))
	}
	c.pos = p + 1
	c.end = child.base().end

	switch {
	case c.pos <= seq.LastRequired():
		ev.s.wait(c, seq.FirstFrom(c.pos), ev)
	case c.pos < len(seq.Elements):
		// done enough: keep a copy trying the optional tail
		ev.s.wait(ev.s.cloneChain(c), seq.FirstFrom(c.pos), ev)
		ev.s.completeMatch(c, ev)
	default:
		ev.s.completeMatch(c, ev)
	}
}

func (c *sequenceCandidate) clone() candidate {
	return &sequenceCandidate{candidateBase: c.copyBase(), pos: c.pos}
}

// variationCandidate completes with the first element that completes.
// With exceptions it is a rejection target and is instantiated eagerly so
// the exception family can start at the same token.
type variationCandidate struct {
	candidateBase
	family    *exceptionFamily
	completed bool
}

func (c *variationCandidate) onNext(ev *event) { ev.s.enter(c, ev) }

func (c *variationCandidate) onElementMatch(child candidate, ev *event) {
	v := c.expr.(*expr.Variation)
	if position(child) >= len(v.Elements) {
		panic(invariant(c, ErrUnexpectedPosition))
	}
	c.end = child.base().end
	c.completed = true
	if c.family != nil {
		ev.s.addExceptionTarget(c)
	}
	ev.s.completeMatch(c, ev)
}

func (c *variationCandidate) clone() candidate {
	return &variationCandidate{candidateBase: c.copyBase(), family: c.family, completed: c.completed}
}

// conjunctionCandidate matches its elements adjacently in any order.
type conjunctionCandidate struct {
	candidateBase
	matched  *sparse.SparseSet // MatchPerPosition
	required int               // matched non-optional elements
}

func newConjunctionCandidate(e *expr.Conjunction) *conjunctionCandidate {
	//nolint:gosec // G115: element counts are small
	return &conjunctionCandidate{matched: sparse.NewSparseSet(uint32(len(e.Elements)))}
}

func (c *conjunctionCandidate) onNext(ev *event) { ev.s.enter(c, ev) }

func (c *conjunctionCandidate) onElementMatch(child candidate, ev *event) {
	conj := c.expr.(*expr.Conjunction)
	p := position(child)
	//nolint:gosec // G115: p is a valid element position
	if p >= len(conj.Elements) || !c.matched.Insert(uint32(p)) {
		panic(invariant(c, ErrUnexpectedPosition))
	}
	c.end = child.base().end
	if !conj.Elements[p].IsOptional() {
		c.required++
	}

	total := 0
	var rest []expr.Entry
	for i, el := range conj.Elements {
		if !el.IsOptional() {
			total++
		}
		//nolint:gosec // G115: i is a valid element position
		if !c.matched.Contains(uint32(i)) {
			rest = append(rest, el.First()...)
		}
	}

	switch {
	case c.required < total:
		ev.s.wait(c, rest, ev)
	case len(rest) > 0:
		ev.s.wait(ev.s.cloneChain(c), rest, ev)
		ev.s.completeMatch(c, ev)
	default:
		ev.s.completeMatch(c, ev)
	}
}

func (c *conjunctionCandidate) clone() candidate {
	return &conjunctionCandidate{
		candidateBase: c.copyBase(),
		matched:       c.matched.Clone(),
		required:      c.required,
	}
}

// repetitionCandidate counts matches of Body.
type repetitionCandidate struct {
	candidateBase
	count int
}

func (c *repetitionCandidate) onNext(ev *event) { ev.s.enter(c, ev) }

func (c *repetitionCandidate) onElementMatch(child candidate, ev *event) {
	rep := c.expr.(*expr.Repetition)
	if position(child) != 0 {
		panic(invariant(c, ErrUnexpectedPosition))
	}
	c.count++
	c.end = child.base().end

	switch {
	case rep.Max != expr.Unbounded && c.count >= rep.Max:
		ev.s.completeMatch(c, ev)
	case c.count >= rep.Min:
		// A copy kept by a repetition at the start of the body already
		// retries it; a second one here doubles the population per token.
		// TODO(engine): the suppressed copy still loses entries the inner one
		// cannot take (B in [1+]{[1+]A, B} and [1-3]{[1-3]A, B}); widen it to
		// those entries once observable results are pinned.
		if inner := ev.innerRepetition; inner == nil || !retriedBy(rep, inner.expr.(*expr.Repetition)) {
			ev.s.wait(ev.s.cloneChain(c), rep.Body.First(), ev)
		}
		ev.innerRepetition = c
		ev.s.completeMatch(c, ev)
	default:
		ev.s.wait(c, rep.Body.First(), ev)
	}
}

// retriedBy reports whether the copy kept by inner in the same cascade covers
// rep: inner sits in rep's body with no repetition in between, has unequal
// bounds with a minimum no higher than rep's, and can start the body.
func retriedBy(rep, inner *expr.Repetition) bool {
	if inner.Min == inner.Max || inner.Min > rep.Min {
		return false
	}
	for p := inner.Parent(); p != rep; p = p.Parent() {
		if p == nil {
			return false
		}
		if _, ok := p.(*expr.Repetition); ok {
			return false
		}
	}
	first := rep.Body.First()
	return slices.ContainsFunc(inner.Body.First(), func(e expr.Entry) bool {
		return slices.ContainsFunc(first, func(f expr.Entry) bool { return f.Leaf == e.Leaf })
	})
}

func (c *repetitionCandidate) clone() candidate {
	return &repetitionCandidate{candidateBase: c.copyBase(), count: c.count}
}

// extractionCandidate records the span of Body on the root.
type extractionCandidate struct {
	candidateBase
}

func (c *extractionCandidate) onNext(ev *event) { ev.s.enter(c, ev) }

func (c *extractionCandidate) onElementMatch(child candidate, ev *event) {
	if position(child) != 0 {
		panic(invariant(c, ErrUnexpectedPosition))
	}
	c.end = child.base().end
	x := c.expr.(*expr.Extraction)
	c.root().addExtraction(x.Field(), c.start, c.end)
	ev.s.completeMatch(c, ev)
}

func (c *extractionCandidate) clone() candidate {
	return &extractionCandidate{candidateBase: c.copyBase()}
}

// fieldReferenceCandidate wraps the tree generated from a captured value.
type fieldReferenceCandidate struct {
	candidateBase
}

func (c *fieldReferenceCandidate) onNext(ev *event) { ev.s.enter(c, ev) }

func (c *fieldReferenceCandidate) onElementMatch(child candidate, ev *event) {
	if position(child) != 0 {
		panic(invariant(c, ErrUnexpectedPosition))
	}
	c.end = child.base().end
	ev.s.completeMatch(c, ev)
}

func (c *fieldReferenceCandidate) clone() candidate {
	return &fieldReferenceCandidate{candidateBase: c.copyBase()}
}

// conditionCandidate is an Inside, Outside or Having node. Its body
// completes it; the operand is evaluated later as a root dependency.
type conditionCandidate struct {
	candidateBase
}

func (c *conditionCandidate) onNext(ev *event) { ev.s.enter(c, ev) }

func (c *conditionCandidate) onElementMatch(child candidate, ev *event) {
	if position(child) != 0 {
		panic(invariant(c, ErrUnexpectedPosition))
	}
	c.end = child.base().end
	ev.s.addCondition(c)
	ev.s.completeMatch(c, ev)
}

func (c *conditionCandidate) clone() candidate {
	return &conditionCandidate{candidateBase: c.copyBase()}
}

// newCandidate is the candidate factory.
func newCandidate(e expr.Expression) candidate {
	var c candidate
	switch x := e.(type) {
	case *expr.Token:
		c = &tokenCandidate{}
	case *expr.Sequence:
		c = &sequenceCandidate{}
	case *expr.Variation:
		c = &variationCandidate{}
	case *expr.Conjunction:
		c = newConjunctionCandidate(x)
	case *expr.Repetition:
		c = &repetitionCandidate{}
	case *expr.AnySpan, *expr.WordSpan:
		c = &spanCandidate{}
	case *expr.Inside, *expr.Outside, *expr.Having:
		c = &conditionCandidate{}
	case *expr.Extraction:
		c = &extractionCandidate{}
	case *expr.FieldReference:
		c = &fieldReferenceCandidate{}
	case *expr.PatternReference:
		c = &referenceCandidate{}
	case *expr.Pattern, *expr.Exception:
		c = &rootCandidate{}
	default:
		panic(&InvariantError{Candidate: e.String(), Err: ErrUnexpectedPosition})
	}
	c.base().expr = e
	return c
}

// eager reports whether a candidate for e must exist from the token its
// match starts at rather than being created when a child completes.
func eager(e expr.Expression) bool {
	v, ok := e.(*expr.Variation)
	return ok && len(v.Exceptions) > 0
}
