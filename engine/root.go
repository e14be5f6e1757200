package engine

import (
	"slices"

	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/token"
)

// rootCandidate heads a candidate chain. It is bound to a Pattern or, for
// exception roots, to an Exception.
//
// A root is a final match iff it is completed, not rejected, has no
// unresolved dependency and no strictly shorter span member of one of its
// span families is still alive.
type rootCandidate struct {
	candidateBase

	pattern   *expr.Pattern    // nil for exception roots
	exception *exceptionFamily // family of an exception root

	completed bool
	rejected  bool
	final     bool

	extractions []Extraction

	// dependencies this root waits for
	pending []*dependency
	// span family memberships
	spans []*spanEntry
	// dependencies of other roots on this one (pattern references)
	refDeps []*dependency
}

func (r *rootCandidate) onNext(ev *event) { ev.s.enter(r, ev) }

func (r *rootCandidate) onElementMatch(child candidate, ev *event) {
	if position(child) != 0 {
		panic(invariant(r, ErrUnexpectedPosition))
	}
	r.end = child.base().end
	r.completed = true
	ev.outcome = Complete
	ev.s.rootCompleted(r)
}

func (r *rootCandidate) clone() candidate {
	return &rootCandidate{
		candidateBase: r.copyBase(),
		pattern:       r.pattern,
		exception:     r.exception,
		extractions:   slices.Clone(r.extractions),
	}
}

func (r *rootCandidate) key() refKey {
	return refKey{pattern: r.pattern, start: r.start.Number}
}

func (r *rootCandidate) alive() bool {
	return !r.rejected && !r.final
}

func (r *rootCandidate) addExtraction(f *expr.Field, start, end token.Location) {
	r.extractions = append(r.extractions, Extraction{Field: f, Start: start, End: end})
}

// unresolved drops resolved dependencies and returns how many remain.
func (r *rootCandidate) unresolved() int {
	r.pending = slices.DeleteFunc(r.pending, func(d *dependency) bool { return d.done })
	return len(r.pending)
}

func (r *rootCandidate) name() string {
	if r.pattern != nil {
		return r.pattern.Name
	}
	return expr.PatternOf(r.expr).Name
}

type depKind uint8

const (
	depException depKind = iota
	depInside
	depOutside
	depHaving
	depReference
)

// dependency is one reason a completed root may still be retracted.
type dependency struct {
	kind       depKind
	owner      *rootCandidate
	start, end token.Location

	family  *exceptionFamily // depException
	operand *expr.Pattern    // depInside, depOutside, depHaving
	on      *rootCandidate   // depReference

	done bool
}

// newRoot creates a root starting at the current token.
func (s *Session) newRoot(e expr.Expression) *rootCandidate {
	r := newCandidate(e).(*rootCandidate)
	r.cached = r
	r.start = s.loc
	if p, ok := e.(*expr.Pattern); ok {
		r.pattern = p
	}
	s.track(r)
	return r
}

func (s *Session) track(r *rootCandidate) {
	s.live++
	s.stats.RootsCreated++
	if r.pattern == nil {
		return
	}
	if s.prog.referenced[r.pattern] && !r.completed {
		s.progress[r.key()]++
	}
	if s.prog.operands[r.pattern] {
		s.roots[r.pattern] = append(s.roots[r.pattern], r)
	}
}

// cloneChain copies c and every candidate up its target chain. The copy of
// the root inherits extractions, unresolved dependencies and span
// memberships, so it can be retracted for the same reasons as the original.
func (s *Session) cloneChain(c candidate) candidate {
	var first, prev candidate
	for cur := c; cur != nil; cur = cur.base().target {
		n := cur.clone()
		if prev == nil {
			first = n
		} else {
			prev.base().target = n
		}
		switch x := n.(type) {
		case *rootCandidate:
			s.adoptClone(cur.(*rootCandidate), x)
		case *variationCandidate:
			if x.family != nil && !x.completed {
				x.family.prospects = append(x.family.prospects, x)
			}
		}
		prev = n
	}
	return first
}

func (s *Session) adoptClone(orig, r *rootCandidate) {
	r.cached = r
	s.track(r)
	if fam := r.exception; fam != nil {
		fam.copies = append(fam.copies, r)
		fam.copyCount++
	}
	for _, d := range orig.pending {
		if d.done {
			continue
		}
		cp := *d
		cp.owner = r
		s.register(&cp)
	}
	for _, e := range orig.spans {
		s.joinSpanFamily(e.family, e.gap, r)
	}
}

// register attaches d to its owner and to whatever resolves it.
func (s *Session) register(d *dependency) {
	d.owner.pending = append(d.owner.pending, d)
	switch d.kind {
	case depException:
		d.family.targets = append(d.family.targets, d)
	case depInside, depOutside, depHaving:
		s.conditions = append(s.conditions, d)
	case depReference:
		d.on.refDeps = append(d.on.refDeps, d)
	}
}

// rootCompleted records a local completion of r.
func (s *Session) rootCompleted(r *rootCandidate) {
	s.pending = append(s.pending, r)
	s.changed = true
	if r.pattern == nil || !s.prog.referenced[r.pattern] {
		return
	}
	key := r.key()
	s.progress[key]--
	s.completedAt[key] = append(s.completedAt[key], r)
	for _, l := range s.listeners[key] {
		s.deliver(l, r)
	}
}

// reject retracts r. It is idempotent and a no-op on final roots.
func (s *Session) reject(r *rootCandidate) {
	if r.rejected || r.final {
		return
	}
	r.rejected = true
	s.live--
	s.changed = true
	s.stats.RootsRejected++
	if r.pattern != nil && !r.completed && s.prog.referenced[r.pattern] {
		s.progress[r.key()]--
	}

	// detach first so cascades never see r as a dependent
	for _, d := range r.pending {
		d.done = true
	}
	r.pending = nil
	if r.exception != nil {
		r.exception.copyCount--
	}

	deps := r.refDeps
	r.refDeps = nil
	for _, d := range deps {
		if !d.done {
			d.done = true
			s.reject(d.owner)
		}
	}
}

// finalizeRoots promotes every completed root that has nothing left to
// wait for.
func (s *Session) finalizeRoots() {
	// onFinal never completes roots, so s.pending is not appended to here
	keep := s.pending[:0]
	for _, r := range s.pending {
		if !r.alive() {
			continue
		}
		if r.unresolved() == 0 && !s.deferred(r) {
			s.onFinal(r)
			continue
		}
		keep = append(keep, r)
	}
	clear(s.pending[len(keep):])
	s.pending = keep
}

func (s *Session) onFinal(r *rootCandidate) {
	r.final = true
	s.live--
	s.changed = true

	if r.exception != nil {
		s.exceptionFinal(r)
		return
	}
	if s.prog.operands[r.pattern] {
		s.finals[r.pattern] = append(s.finals[r.pattern], extent{r.start.TokenNumber(), r.end.TokenNumber()})
	}
	for _, d := range r.refDeps {
		d.done = true
	}
	r.refDeps = nil
	s.decideSpans(r)

	if r.pattern.SearchTarget && !r.pattern.Synthetic() {
		s.emit(r)
	}
}

func (s *Session) emit(r *rootCandidate) {
	m := Match{
		Pattern:     r.pattern,
		Start:       r.start,
		End:         r.end,
		Extractions: slices.Clone(r.extractions),
	}
	k := m.key()
	if s.emitted[k] {
		return
	}
	s.emitted[k] = true
	s.results.Enqueue(m)
	s.stats.Matches++
	s.log.Debug("final match",
		"pattern", r.pattern.Name,
		"start", m.Start.Number,
		"end", m.End.Number,
		"extractions", len(m.Extractions))
}

// extent is the token range of a final match.
type extent struct {
	start, end int
}
