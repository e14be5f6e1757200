package engine

import (
	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/index"
)

type waiterKind uint8

const (
	waitNormal waiterKind = iota // retires on the next unmatched non-whitespace token
	waitMaster                   // span master, skips gap tokens
)

// waiter is a candidate expecting one of entries at the next token.
type waiter struct {
	c       candidate
	entries []expr.Entry
	kind    waiterKind
	dead    bool

	// leaves hit by the current token
	leaves []expr.Expression
}

func (w *waiter) root() *rootCandidate {
	return w.c.base().root()
}

// slot is one entry of a waiter in a bucket.
type slot struct {
	w    *waiter
	leaf expr.Expression
}

// registry holds the waiting candidates, bucketed so that a token only
// visits waiters one of whose entries it can match. Retiring tombstones a
// waiter; buckets are compacted once tombstones exceed the configured
// ratio.
type registry struct {
	byToken map[*expr.Token][]slot
	byRef   map[*expr.Pattern][]slot
	dynamic []*waiter // field references and generated tokens
	all     []*waiter

	dead  int
	ratio float64
}

func newRegistry(ratio float64) registry {
	return registry{
		byToken: make(map[*expr.Token][]slot),
		byRef:   make(map[*expr.Pattern][]slot),
		ratio:   ratio,
	}
}

func (r *registry) add(w *waiter, idx *index.Index) {
	dynamic := false
	for _, e := range w.entries {
		switch leaf := e.Leaf.(type) {
		case *expr.Token:
			if idx.Contains(leaf) {
				r.byToken[leaf] = append(r.byToken[leaf], slot{w: w, leaf: leaf})
			} else {
				dynamic = true
			}
		case *expr.PatternReference:
			r.byRef[leaf.Pattern] = append(r.byRef[leaf.Pattern], slot{w: w, leaf: leaf})
		case *expr.FieldReference:
			dynamic = true
		}
	}
	if dynamic {
		r.dynamic = append(r.dynamic, w)
	}
	r.all = append(r.all, w)
}

func (r *registry) retire(w *waiter) {
	if !w.dead {
		w.dead = true
		r.dead++
	}
}

func (r *registry) live() int {
	return len(r.all) - r.dead
}

// compact drops tombstoned waiters once they exceed the ratio.
func (r *registry) compact() {
	if r.dead == 0 || float64(r.dead) <= r.ratio*float64(len(r.all)) {
		return
	}
	r.all = compactWaiters(r.all)
	r.dynamic = compactWaiters(r.dynamic)
	for t, slots := range r.byToken {
		if slots = compactSlots(slots); len(slots) == 0 {
			delete(r.byToken, t)
		} else {
			r.byToken[t] = slots
		}
	}
	for p, slots := range r.byRef {
		if slots = compactSlots(slots); len(slots) == 0 {
			delete(r.byRef, p)
		} else {
			r.byRef[p] = slots
		}
	}
	r.dead = 0
}

// clearAll retires every waiter and returns the ones that were live.
func (r *registry) clearAll() []*waiter {
	var live []*waiter
	for _, w := range r.all {
		if !w.dead {
			live = append(live, w)
			w.dead = true
		}
	}
	*r = newRegistry(r.ratio)
	return live
}

func compactWaiters(ws []*waiter) []*waiter {
	keep := ws[:0]
	for _, w := range ws {
		if !w.dead {
			keep = append(keep, w)
		}
	}
	clear(ws[len(keep):])
	return keep
}

func compactSlots(slots []slot) []slot {
	keep := slots[:0]
	for _, s := range slots {
		if !s.w.dead {
			keep = append(keep, s)
		}
	}
	clear(slots[len(keep):])
	return keep
}
