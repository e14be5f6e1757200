package engine

import (
	"slices"

	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/token"
)

// familyKey identifies the exceptions guarding one variation started at
// one token.
type familyKey struct {
	v     *expr.Variation
	start int
}

// exceptionFamily is the shared state of every exception root started for
// one variation at one token and every variation candidate they guard.
// Targets are held once per family, so each copy of an exception observes
// the same list and a target is released or vetoed exactly once.
type exceptionFamily struct {
	// completed variation candidates waiting for a verdict
	targets []*dependency
	// variation candidates that may still complete
	prospects []*variationCandidate

	copies    []*rootCandidate
	copyCount int // copies neither rejected nor final

	// ends of exception copies that reached final match
	finalEnds map[int]bool
}

// mayVeto reports whether a live, completed copy ends where a target does.
// Copies that have not completed yet can only end at later tokens.
func (f *exceptionFamily) mayVeto(end token.Location) bool {
	for _, c := range f.copies {
		if c.alive() && c.completed && c.end.Number == end.Number {
			return true
		}
	}
	return false
}

// attachFamily binds a freshly entered variation to the exceptions started
// at the current token, spawning them on first use.
func (s *Session) attachFamily(v *variationCandidate) {
	e := v.expr.(*expr.Variation)
	key := familyKey{v: e, start: s.loc.Number}
	fam := s.families[key]
	if fam == nil {
		fam = &exceptionFamily{finalEnds: make(map[int]bool)}
		s.families[key] = fam
		s.spawnExceptions(fam, e, v.root())
	}
	v.family = fam
	fam.prospects = append(fam.prospects, v)
}

func (s *Session) spawnExceptions(fam *exceptionFamily, v *expr.Variation, owner *rootCandidate) {
	for _, x := range v.Exceptions {
		for _, entry := range x.First() {
			leaves, err := s.entryLeaves(entry, owner.extractions)
			if err != nil {
				s.fail(err)
				continue
			}
			for _, leaf := range leaves {
				r := s.newRoot(x)
				r.exception = fam
				r.extractions = slices.Clone(owner.extractions)
				fam.copies = append(fam.copies, r)
				fam.copyCount++
				r.onNext(s.newEvent(leaf))
			}
		}
	}
}

// addExceptionTarget is called when a guarded variation completes.
func (s *Session) addExceptionTarget(v *variationCandidate) {
	fam := v.family
	r := v.root()
	if fam.finalEnds[v.end.Number] {
		s.log.Debug("exception veto", "pattern", r.name(), "start", v.start.Number, "end", v.end.Number)
		s.reject(r)
		return
	}
	if fam.copyCount == 0 {
		return
	}
	s.register(&dependency{
		kind:   depException,
		owner:  r,
		start:  v.start,
		end:    v.end,
		family: fam,
	})
}

// exceptionFinal vetoes every target with the same end as r.
func (s *Session) exceptionFinal(r *rootCandidate) {
	fam := r.exception
	fam.copyCount--
	fam.finalEnds[r.end.Number] = true
	for _, d := range fam.targets {
		if d.done || d.end.Number != r.end.Number {
			continue
		}
		d.done = true
		s.log.Debug("exception veto", "pattern", d.owner.name(), "start", d.start.Number, "end", d.end.Number)
		s.reject(d.owner)
	}
}

// evaluateFamilies releases targets no copy can veto any more and rejects
// the copies of families left with nothing to guard.
func (s *Session) evaluateFamilies() {
	for key, fam := range s.families {
		fam.targets = slices.DeleteFunc(fam.targets, func(d *dependency) bool {
			if d.done {
				return true
			}
			if fam.mayVeto(d.end) {
				return false
			}
			d.done = true
			s.changed = true
			return true
		})
		fam.prospects = slices.DeleteFunc(fam.prospects, func(v *variationCandidate) bool {
			return v.completed || v.root().rejected
		})
		fam.copies = slices.DeleteFunc(fam.copies, func(c *rootCandidate) bool {
			return !c.alive()
		})
		if len(fam.targets) > 0 || len(fam.prospects) > 0 {
			continue
		}
		for _, c := range fam.copies {
			s.reject(c)
		}
		delete(s.families, key)
	}
}
