package engine

import "github.com/coregx/coresearch/expr"

// refKey identifies the roots of a pattern started at one token.
type refKey struct {
	pattern *expr.Pattern
	start   int
}

// referenceCandidate stands for a pattern reference. It never matches
// tokens itself: it listens for completions of the referenced pattern's
// roots started at the same token and forks one chain per completion.
type referenceCandidate struct {
	candidateBase
}

func (c *referenceCandidate) onNext(ev *event) {
	ref := c.expr.(*expr.PatternReference)
	ev.outcome = UpdateEventObserver
	ev.next = c
	ev.s.listen(c, refKey{pattern: ref.Pattern, start: ev.loc.Number})
}

func (c *referenceCandidate) onElementMatch(candidate, *event) {
	panic(invariant(c, ErrNotCompound))
}

func (c *referenceCandidate) clone() candidate {
	return &referenceCandidate{candidateBase: c.copyBase()}
}

// listen registers l and replays completions that happened before it.
func (s *Session) listen(l *referenceCandidate, key refKey) {
	s.listeners[key] = append(s.listeners[key], l)
	for _, q := range s.completedAt[key] {
		if !q.rejected {
			s.deliver(l, q)
		}
	}
}

// deliver continues a copy of listener l with the completion of q. Unless q
// is already final, the copy's root depends on q.
func (s *Session) deliver(l *referenceCandidate, q *rootCandidate) {
	if l.root().rejected || q.rejected {
		return
	}
	n := s.cloneChain(l).(*referenceCandidate)
	n.end = q.end
	if !q.final {
		s.register(&dependency{
			kind:  depReference,
			owner: n.root(),
			start: q.start,
			end:   q.end,
			on:    q,
		})
	}
	s.completeMatch(n, &event{s: s, loc: q.end})
}

// retireListeners drops listeners of keys no root can complete any more.
func (s *Session) retireListeners() {
	for key, ls := range s.listeners {
		if s.progress[key] > 0 {
			continue
		}
		for _, l := range ls {
			s.reject(l.root())
		}
		delete(s.listeners, key)
	}
	for key := range s.completedAt {
		if s.progress[key] <= 0 {
			delete(s.completedAt, key)
		}
	}
	for key, n := range s.progress {
		if n <= 0 {
			delete(s.progress, key)
		}
	}
}
