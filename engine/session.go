package engine

import (
	"fmt"
	"log/slog"

	"github.com/golang-collections/collections/queue"

	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/token"
)

// Session is the search context for one text. It is fed tokens in order
// and reports final matches as soon as nothing can retract them.
//
// A Session is not safe for concurrent use. Any number of sessions may
// share one Program.
//
// Example:
//
//	s, _ := engine.NewSession(prog, src, engine.DefaultConfig())
//	if err := s.Run(); err != nil {
//	    return err
//	}
//	for m, ok := s.Next(); ok; m, ok = s.Next() {
//	    fmt.Println(m.Pattern.Name, src.GetText(m.Start, m.End))
//	}
type Session struct {
	prog *Program
	src  token.Source
	cfg  Config
	log  *slog.Logger

	// current token
	tok        *token.Token
	loc        token.Location
	matched    []*expr.Token
	matchedSet map[*expr.Token]bool
	started    []*expr.Pattern
	startedSet map[*expr.Pattern]bool

	reg      registry
	incoming []*waiter // registered during the current token
	hits     []*waiter

	live    int             // roots neither rejected nor final
	pending []*rootCandidate // completed roots awaiting final match
	changed bool

	families    map[familyKey]*exceptionFamily
	conditions  []*dependency
	roots       map[*expr.Pattern][]*rootCandidate // live roots of condition operands
	finals      map[*expr.Pattern][]extent         // final matches of condition operands
	listeners   map[refKey][]*referenceCandidate
	completedAt map[refKey][]*rootCandidate
	progress    map[refKey]int // roots of a key not yet completed or rejected
	spanHolders map[expr.Expression]*spanFamily
	generated   map[genKey]expr.Expression

	results *queue.Queue
	emitted map[string]bool

	next     int // next token number fed by Run
	finished bool
	err      error
	stats    Stats
}

// NewSession creates a session over src.
func NewSession(prog *Program, src token.Source, config Config) (*Session, error) {
	if prog == nil {
		return nil, ErrUnlinked
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		prog:        prog,
		src:         src,
		cfg:         config,
		log:         config.logger(),
		matchedSet:  make(map[*expr.Token]bool),
		startedSet:  make(map[*expr.Pattern]bool),
		reg:         newRegistry(config.CompactRatio),
		families:    make(map[familyKey]*exceptionFamily),
		roots:       make(map[*expr.Pattern][]*rootCandidate),
		finals:      make(map[*expr.Pattern][]extent),
		listeners:   make(map[refKey][]*referenceCandidate),
		completedAt: make(map[refKey][]*rootCandidate),
		progress:    make(map[refKey]int),
		spanHolders: make(map[expr.Expression]*spanFamily),
		generated:   make(map[genKey]expr.Expression),
		results:     queue.New(),
		emitted:     make(map[string]bool),
	}, nil
}

// Run feeds the remaining tokens of the source and finishes the session.
func (s *Session) Run() error {
	for s.next < s.src.Len() {
		tok := s.src.At(s.next)
		s.next++
		if err := s.Feed(tok); err != nil {
			_ = s.Finish()
			return err
		}
	}
	return s.Finish()
}

// Feed processes one token. Tokens must be fed in order.
func (s *Session) Feed(tok *token.Token) error {
	if s.finished {
		return ErrFinished
	}
	if s.err != nil {
		return s.err
	}
	s.tok = tok
	s.loc = tok.Location
	s.next = tok.Number() + 1
	s.stats.Tokens++

	s.matched = s.prog.index.AppendLookup(s.matched[:0], tok)
	clear(s.matchedSet)
	for _, t := range s.matched {
		s.matchedSet[t] = true
	}
	s.started = s.prog.started(s.matched)
	clear(s.startedSet)
	for _, p := range s.started {
		s.startedSet[p] = true
	}

	s.advance()
	s.spawn()
	s.survive()
	s.merge()
	s.settle()

	if s.live > s.cfg.MaxLiveRoots {
		s.fail(fmt.Errorf("%w: %d live roots at token %d", ErrCandidateLimit, s.live, s.loc.Number))
	}
	s.reg.compact()
	s.stats.MaxLiveRoots = max(s.stats.MaxLiveRoots, s.live)
	s.stats.MaxLiveWaiters = max(s.stats.MaxLiveWaiters, s.reg.live())
	return s.err
}

// Finish retires every waiting candidate and resolves what can be
// resolved. Roots still pending afterwards wait on each other and are
// rejected. Finish is idempotent.
func (s *Session) Finish() error {
	if s.finished {
		return s.err
	}
	s.finished = true

	for _, w := range s.reg.clearAll() {
		s.reject(w.root())
	}
	for _, w := range s.incoming {
		s.reject(w.root())
	}
	s.incoming = nil
	for key, ls := range s.listeners {
		for _, l := range ls {
			s.reject(l.root())
		}
		delete(s.listeners, key)
	}
	s.settle()

	for _, r := range s.pending {
		s.reject(r)
	}
	s.settle()

	s.log.Info("search session finished", "stats", s.stats)
	return s.err
}

// Next returns the next final match, if any.
func (s *Session) Next() (Match, bool) {
	if s.results.Len() == 0 {
		return Match{}, false
	}
	return s.results.Dequeue().(Match), true
}

// Err returns the first error of the session.
func (s *Session) Err() error {
	return s.err
}

// Stats returns the session counters.
func (s *Session) Stats() Stats {
	return s.stats
}

// LiveRoots returns the number of roots neither rejected nor final.
func (s *Session) LiveRoots() int {
	return s.live
}

func (s *Session) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) newEvent(leaf expr.Expression) *event {
	return &event{s: s, loc: s.loc, leaf: leaf}
}

// advance moves every waiter one of whose entries matches the token.
func (s *Session) advance() {
	s.hits = s.hits[:0]
	hit := func(w *waiter, leaf expr.Expression) {
		if w.dead || w.root().rejected {
			return
		}
		if len(w.leaves) == 0 {
			s.hits = append(s.hits, w)
		}
		w.leaves = append(w.leaves, leaf)
	}
	for _, t := range s.matched {
		for _, sl := range s.reg.byToken[t] {
			hit(sl.w, sl.leaf)
		}
	}
	for _, p := range s.started {
		for _, sl := range s.reg.byRef[p] {
			hit(sl.w, sl.leaf)
		}
	}
	for _, w := range s.reg.dynamic {
		if w.dead || w.root().rejected {
			continue
		}
		for _, e := range w.entries {
			if e.Reference() != nil || (e.Token() != nil && s.prog.index.Contains(e.Token())) {
				continue
			}
			leaves, err := s.entryLeaves(e, w.root().extractions)
			if err != nil {
				s.fail(err)
				s.reg.retire(w)
				s.reject(w.root())
				break
			}
			for _, leaf := range leaves {
				hit(w, leaf)
			}
		}
	}

	consume := !s.tok.Kind.IsWhitespace()
	for _, w := range s.hits {
		leaves := w.leaves
		w.leaves = nil
		for i, leaf := range leaves {
			if w.dead || w.root().rejected {
				break
			}
			if w.kind == waitMaster {
				s.startRight(w.c.(*spanCandidate), leaf)
				continue
			}
			var c candidate
			if consume && i == len(leaves)-1 {
				s.reg.retire(w)
				c = w.c
			} else {
				c = s.cloneChain(w.c)
			}
			c.onNext(s.newEvent(leaf))
		}
	}
	clear(s.hits)
}

// spawn creates a root for every entry of every pattern started here.
func (s *Session) spawn() {
	for _, pat := range s.started {
		for _, e := range pat.First() {
			if e.Field() != nil {
				// no extraction exists before a pattern starts
				continue
			}
			leaves, _ := s.entryLeaves(e, nil)
			for _, leaf := range leaves {
				r := s.newRoot(pat)
				r.onNext(s.newEvent(leaf))
			}
		}
	}
}

// survive retires waiters the token did not advance.
func (s *Session) survive() {
	consume := !s.tok.Kind.IsWhitespace()
	for _, w := range s.reg.all {
		if w.dead {
			continue
		}
		r := w.root()
		switch {
		case r.rejected:
			s.reg.retire(w)
		case w.kind == waitMaster:
			if !s.masterStep(w.c.(*spanCandidate)) {
				s.reg.retire(w)
			}
		case consume:
			s.reg.retire(w)
			s.reject(r)
		}
	}
}

func (s *Session) merge() {
	for _, w := range s.incoming {
		if !w.root().rejected {
			s.reg.add(w, s.prog.index)
		}
	}
	clear(s.incoming)
	s.incoming = s.incoming[:0]
}

// settle runs the resolution passes until none changes anything.
func (s *Session) settle() {
	for {
		s.changed = false
		s.retireListeners()
		s.evaluateFamilies()
		s.evaluateConditions()
		s.finalizeRoots()
		if !s.changed {
			return
		}
	}
}

// wait registers c as expecting one of entries at the next token.
func (s *Session) wait(c candidate, entries []expr.Entry, ev *event) {
	s.incoming = append(s.incoming, &waiter{c: c, entries: entries, kind: waitNormal})
	ev.outcome = UpdateEventObserver
	ev.next = c
}

func (s *Session) waitMaster(c *spanCandidate, entries []expr.Entry, ev *event) {
	s.incoming = append(s.incoming, &waiter{c: c, entries: entries, kind: waitMaster})
	ev.outcome = Ignore
	ev.next = c
}

// enter starts matching c from the entry leaf of ev. Only the leaf and the
// variations guarded by exceptions on the path are created here; other
// candidates are created when a child completes.
func (s *Session) enter(c candidate, ev *event) {
	top := c.base().expr
	var buf [16]expr.Expression
	path := buf[:0]
	for e := ev.leaf; e != top; e = e.Parent() {
		if e == nil {
			panic(invariant(c, ErrUnexpectedPosition))
		}
		path = append(path, e)
	}

	parent := c
	for i := len(path) - 1; i > 0; i-- {
		if !eager(path[i]) {
			continue
		}
		v := newCandidate(path[i]).(*variationCandidate)
		v.target = parent
		v.start = ev.loc
		s.attachFamily(v)
		parent = v
	}

	leaf := newCandidate(ev.leaf)
	leaf.base().target = parent
	leaf.base().start = ev.loc
	leaf.onNext(ev)
}

// completeMatch attaches c to its target, creating the expected parent
// first when the target is further up, and reports the match to it.
func (s *Session) completeMatch(c candidate, ev *event) {
	b := c.base()
	if b.root().rejected {
		ev.outcome = Reject
		return
	}
	parent := b.expr.Parent()
	t := b.target
	if t.base().expr != parent {
		p := newCandidate(parent)
		pb := p.base()
		pb.target = t
		pb.start = b.start
		b.target = p
		t = p
	}
	ev.outcome = Complete
	t.onElementMatch(c, ev)
}
