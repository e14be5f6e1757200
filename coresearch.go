// Package coresearch finds matches of token patterns in text.
//
// Patterns are trees of token expressions (words, kinds, prefixes) combined
// by sequence, variation with exceptions, conjunction, repetition, spans,
// inside/outside/having conditions, field extraction and references to
// other patterns. A package of patterns is linked once, compiled into an
// Engine and then searched any number of times, concurrently.
//
// Basic usage:
//
//	pkg := expr.NewPackage(
//	    expr.NewPattern("Trip", expr.Seq(
//	        expr.Word("to"),
//	        expr.Extract("City", expr.Any(expr.AlphaToken)),
//	    )),
//	)
//	if err := pkg.Link(); err != nil {
//	    log.Fatal(err)
//	}
//	eng, err := coresearch.Compile(pkg, coresearch.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	matches, err := eng.FindAll("a flight to Paris")
//
// Every reported match is final: no later token can retract it. Matches are
// reported in the order they become final, which is not necessarily the
// order of their start positions.
package coresearch

import (
	"context"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pkg/errors"

	"github.com/coregx/coresearch/engine"
	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/literal"
	"github.com/coregx/coresearch/prefilter"
	"github.com/coregx/coresearch/token"
)

// Config is the engine configuration.
type Config = engine.Config

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return engine.DefaultConfig()
}

// ErrUnknownPattern indicates a pattern name that is not a search target of
// the package.
var ErrUnknownPattern = errors.New("unknown pattern")

// Engine is a compiled package of patterns.
//
// An Engine is safe for concurrent use; every search runs its own session.
type Engine struct {
	prog   *engine.Program
	pf     *prefilter.Prefilter
	config Config

	// nil: every search target
	only map[*expr.Pattern]bool
}

// Compile compiles a linked package.
//
// Example:
//
//	eng, err := coresearch.Compile(pkg, coresearch.DefaultConfig().WithMaxLiveRoots(10_000))
func Compile(pkg *expr.Package, config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	prog, err := engine.Compile(pkg)
	if err != nil {
		return nil, err
	}
	e := &Engine{prog: prog, config: config}
	if config.EnablePrefilter {
		e.pf, err = prefilter.ForPackage(pkg, literal.DefaultConfig())
		if err != nil {
			return nil, errors.Wrap(err, "coresearch: build prefilter")
		}
	}
	return e, nil
}

// MustCompile compiles a linked package and panics if it fails.
func MustCompile(pkg *expr.Package, config Config) *Engine {
	e, err := Compile(pkg, config)
	if err != nil {
		panic("coresearch: Compile: " + err.Error())
	}
	return e
}

// CompileYAML decodes, links and compiles a package in its YAML encoding.
func CompileYAML(r io.Reader, config Config) (*Engine, error) {
	pkg, err := expr.DecodeYAML(r)
	if err != nil {
		return nil, err
	}
	return Compile(pkg, config)
}

// Package returns the compiled package.
func (e *Engine) Package() *expr.Package {
	return e.prog.Package()
}

// Only returns an engine reporting matches of the named search targets
// only. Unknown names are reported with the closest known names.
func (e *Engine) Only(names ...string) (*Engine, error) {
	pkg := e.prog.Package()
	var known []string
	for _, pat := range pkg.Targets() {
		if !pat.Synthetic() {
			known = append(known, pat.Name)
		}
	}

	only := make(map[*expr.Pattern]bool, len(names))
	for _, name := range names {
		pat := pkg.Pattern(name)
		if pat == nil || !pat.SearchTarget || pat.Synthetic() {
			return nil, unknownPattern(name, known)
		}
		only[pat] = true
	}
	cp := *e
	cp.only = only
	return &cp, nil
}

func unknownPattern(name string, known []string) error {
	ranks := fuzzy.RankFindFold(name, known)
	if len(ranks) == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPattern, name)
	}
	slices.SortStableFunc(ranks, func(a, b fuzzy.Rank) int { return a.Distance - b.Distance })
	return fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownPattern, name, ranks[0].Target)
}

// MayMatch reports whether text can contain a match at all. It is false
// only when text lacks every required literal of every search target.
func (e *Engine) MayMatch(text string) bool {
	return e.pf.MayMatch(text)
}

// Session creates a low-level search session over src. Matches of patterns
// excluded by Only are still reported by the session.
func (e *Engine) Session(src token.Source) (*engine.Session, error) {
	return engine.NewSession(e.prog, src, e.config)
}

// FindAll returns every match in text.
func (e *Engine) FindAll(text string) ([]Match, error) {
	var out []Match
	for m, err := range e.All(context.Background(), text) {
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

// All returns an iterator over the matches in text. Matches are produced
// while the text is being searched; an error ends the sequence.
//
// Example:
//
//	for m, err := range eng.All(ctx, text) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(m.Pattern, m.Text)
//	}
func (e *Engine) All(ctx context.Context, text string) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		if !e.MayMatch(text) {
			return
		}
		src := token.NewText(text)
		s, err := e.Session(src)
		if err != nil {
			yield(Match{}, err)
			return
		}
		drain := func() bool {
			for m, ok := s.Next(); ok; m, ok = s.Next() {
				if e.only != nil && !e.only[m.Pattern] {
					continue
				}
				if !yield(newMatch(src, m), nil) {
					return false
				}
			}
			return true
		}

		for i := range src.Len() {
			if err := ctx.Err(); err != nil {
				_ = s.Finish()
				yield(Match{}, err)
				return
			}
			if err := s.Feed(src.At(i)); err != nil {
				_ = s.Finish()
				yield(Match{}, err)
				return
			}
			if !drain() {
				return
			}
		}
		if err := s.Finish(); err != nil {
			yield(Match{}, err)
			return
		}
		drain()
	}
}
