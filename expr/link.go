package expr

import (
	"fmt"

	"github.com/coregx/coresearch/token"
)

// Package is a set of patterns linked together.
type Package struct {
	Patterns []*Pattern

	byName map[string]*Pattern
	linked bool
}

// NewPackage returns an unlinked package holding the given patterns.
func NewPackage(patterns ...*Pattern) *Package {
	return &Package{Patterns: patterns}
}

// Add appends patterns to an unlinked package.
func (p *Package) Add(patterns ...*Pattern) *Package {
	if p.linked {
		panic("expr: Add on a linked package")
	}
	p.Patterns = append(p.Patterns, patterns...)
	return p
}

// Linked reports whether Link succeeded.
func (p *Package) Linked() bool { return p.linked }

// Pattern returns the pattern with the given name, or nil.
func (p *Package) Pattern(name string) *Pattern {
	return p.byName[name]
}

// Targets returns the search-target patterns.
func (p *Package) Targets() []*Pattern {
	var out []*Pattern
	for _, pat := range p.Patterns {
		if pat.SearchTarget {
			out = append(out, pat)
		}
	}
	return out
}

// Link validates the package and prepares it for matching. Link is not
// idempotent: calling it twice returns an error.
func (p *Package) Link() error {
	if p.linked {
		return &LinkError{Err: ErrSharedNode, Expr: "package already linked"}
	}
	p.byName = make(map[string]*Pattern, len(p.Patterns))
	for _, pat := range p.Patterns {
		if _, dup := p.byName[pat.Name]; dup {
			return &LinkError{Pattern: pat.Name, Err: ErrDuplicatePattern}
		}
		p.byName[pat.Name] = pat
	}

	l := &linker{pkg: p}

	// Patterns appended while linking (synthetic operands) are linked by
	// the same loop.
	for i := 0; i < len(p.Patterns); i++ {
		pat := p.Patterns[i]
		pat.Number = i
		l.pattern = pat
		if err := l.link(pat, nil, 0); err != nil {
			return err
		}
	}
	for _, pat := range p.Patterns {
		l.pattern = pat
		if err := l.resolve(pat); err != nil {
			return err
		}
	}
	for _, pat := range p.Patterns {
		l.pattern = pat
		l.optional(pat)
		if err := l.validate(pat); err != nil {
			return err
		}
	}
	for _, pat := range p.Patterns {
		computeFirst(pat)
	}
	for _, pat := range p.Patterns {
		if err := checkLeftRecursion(pat); err != nil {
			return err
		}
	}
	p.linked = true
	return nil
}

type linker struct {
	pkg       *Package
	pattern   *Pattern
	synthetic int
}

func (l *linker) errorf(err error, e Expression) error {
	s := ""
	if e != nil {
		s = e.String()
	}
	return &LinkError{Pattern: l.pattern.Name, Expr: s, Err: err}
}

func (l *linker) field(name string) *Field {
	if f := l.pattern.Field(name); f != nil {
		return f
	}
	f := &Field{Name: name, Number: len(l.pattern.Fields), Pattern: l.pattern}
	l.pattern.Fields = append(l.pattern.Fields, f)
	return f
}

// operand turns an inside/outside/having operand into a pattern reference,
// wrapping arbitrary expressions into a synthetic helper pattern.
func (l *linker) operand(kind Kind, e Expression) Expression {
	if _, ok := e.(*PatternReference); ok {
		return e
	}
	l.synthetic++
	name := fmt.Sprintf("%s/%s#%d", l.pattern.Name, kind, l.synthetic)
	helper := Helper(name, e)
	helper.synthetic = true
	l.pkg.Patterns = append(l.pkg.Patterns, helper)
	l.pkg.byName[name] = helper
	return Ref(name)
}

func (l *linker) link(e, parent Expression, position int) error {
	if e == nil {
		return l.errorf(ErrEmptyMatch, parent)
	}
	n := e.base()
	if n.linked {
		return l.errorf(ErrSharedNode, e)
	}
	n.linked = true
	n.parent = parent
	n.position = position

	switch x := e.(type) {
	case *Inside:
		x.Outer = l.operand(KindInside, x.Outer)
	case *Outside:
		x.Outer = l.operand(KindOutside, x.Outer)
	case *Having:
		x.Inner = l.operand(KindHaving, x.Inner)
	case *Extraction:
		x.field = l.field(x.FieldName)
	case *AnySpan:
		if x.GapField != "" {
			x.gap = l.field(x.GapField)
		}
	case *WordSpan:
		if x.GapField != "" {
			x.gap = l.field(x.GapField)
		}
	case *Token:
		x.folded = token.Fold(x.Text)
	case *Variation:
		if len(x.Elements) == 0 {
			return l.errorf(ErrEmptyVariation, e)
		}
	case *Conjunction:
		if len(x.Elements) == 0 {
			return l.errorf(ErrEmptyVariation, e)
		}
	case *Sequence:
		if len(x.Elements) == 0 {
			return l.errorf(ErrEmptyVariation, e)
		}
	}

	for i, child := range e.Children() {
		if err := l.link(child, e, i); err != nil {
			return err
		}
	}
	return nil
}

func (l *linker) resolve(e Expression) error {
	var err error
	Walk(e, func(x Expression) bool {
		if err != nil {
			return false
		}
		switch r := x.(type) {
		case *PatternReference:
			r.Pattern = l.pkg.byName[r.Name]
			if r.Pattern == nil {
				err = l.errorf(ErrUndefinedPattern, r)
			}
		case *FieldReference:
			r.field = l.pattern.Field(r.FieldName)
			if r.field == nil {
				err = l.errorf(ErrUndefinedField, r)
			}
		}
		return true
	})
	return err
}

// optional recomputes IsOptional bottom-up.
func (l *linker) optional(e Expression) bool {
	n := e.base()
	switch x := e.(type) {
	case *Token, *FieldReference, *PatternReference, *AnySpan, *WordSpan:
		for _, c := range e.Children() {
			l.optional(c)
		}
		n.optional = false
	case *Sequence:
		n.optional = true
		x.lastRequired = -1
		for i, c := range x.Elements {
			if !l.optional(c) {
				n.optional = false
				x.lastRequired = i
			}
		}
	case *Variation:
		n.optional = false
		for _, c := range x.Elements {
			if l.optional(c) {
				n.optional = true
			}
		}
		for _, c := range x.Exceptions {
			l.optional(c)
		}
	case *Conjunction:
		n.optional = true
		for _, c := range x.Elements {
			if !l.optional(c) {
				n.optional = false
			}
		}
	case *Repetition:
		n.optional = l.optional(x.Body) || x.Min == 0
	case *Exception:
		n.optional = l.optional(x.Body)
	case *Inside:
		l.optional(x.Outer)
		n.optional = l.optional(x.Body)
	case *Outside:
		l.optional(x.Outer)
		n.optional = l.optional(x.Body)
	case *Having:
		l.optional(x.Inner)
		n.optional = l.optional(x.Body)
	case *Extraction:
		n.optional = l.optional(x.Body)
	case *Pattern:
		n.optional = l.optional(x.Body)
	}
	return n.optional
}

func (l *linker) validate(pat *Pattern) error {
	if pat.Body.IsOptional() {
		return l.errorf(ErrEmptyMatch, pat.Body)
	}
	var err error
	Walk(pat.Body, func(x Expression) bool {
		if err != nil {
			return false
		}
		switch r := x.(type) {
		case *Repetition:
			if r.Body.IsOptional() {
				err = l.errorf(ErrEmptyMatch, r)
			} else if r.Min < 0 || (r.Max != Unbounded && (r.Max < r.Min || r.Max == 0)) {
				err = l.errorf(ErrInvalidBounds, r)
			}
		case *AnySpan:
			err = l.validateSpan(r, r.Left, r.Right, r.Min, r.Max)
		case *WordSpan:
			err = l.validateSpan(r, r.Left, r.Right, r.Min, r.Max)
		case *Exception:
			if r.Body.IsOptional() {
				err = l.errorf(ErrEmptyMatch, r)
			}
		}
		return true
	})
	return err
}

func (l *linker) validateSpan(e, left, right Expression, min, max int) error {
	if left.IsOptional() || right.IsOptional() {
		return l.errorf(ErrEmptyMatch, e)
	}
	if min < 0 || (max != Unbounded && max < min) {
		return l.errorf(ErrInvalidBounds, e)
	}
	return nil
}

// computeFirst fills the first sets of e and its descendants.
func computeFirst(e Expression) []Entry {
	n := e.base()
	switch x := e.(type) {
	case *Token, *PatternReference, *FieldReference:
		n.first = []Entry{{Leaf: e}}
	case *Sequence:
		for _, c := range x.Elements {
			computeFirst(c)
		}
		x.firstFrom = make([][]Entry, len(x.Elements))
		var acc []Entry
		for i := len(x.Elements) - 1; i >= 0; i-- {
			c := x.Elements[i]
			if c.IsOptional() {
				acc = concatEntries(c.First(), acc)
			} else {
				acc = c.First()
			}
			x.firstFrom[i] = acc
		}
		n.first = x.firstFrom[0]
	case *Variation:
		for _, c := range x.Exceptions {
			computeFirst(c)
		}
		n.first = unionFirst(x.Elements)
	case *Conjunction:
		n.first = unionFirst(x.Elements)
	case *Repetition:
		n.first = computeFirst(x.Body)
	case *AnySpan:
		computeFirst(x.Right)
		n.first = computeFirst(x.Left)
	case *WordSpan:
		computeFirst(x.Right)
		n.first = computeFirst(x.Left)
	case *Exception:
		n.first = computeFirst(x.Body)
	case *Inside:
		computeFirst(x.Outer)
		n.first = computeFirst(x.Body)
	case *Outside:
		computeFirst(x.Outer)
		n.first = computeFirst(x.Body)
	case *Having:
		computeFirst(x.Inner)
		n.first = computeFirst(x.Body)
	case *Extraction:
		n.first = computeFirst(x.Body)
	case *Pattern:
		n.first = computeFirst(x.Body)
	}
	return n.first
}

func unionFirst(elements []Expression) []Entry {
	var out []Entry
	for _, c := range elements {
		out = concatEntries(out, computeFirst(c))
	}
	return out
}

func concatEntries(a, b []Entry) []Entry {
	out := make([]Entry, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func checkLeftRecursion(pat *Pattern) error {
	seen := map[*Pattern]bool{}
	var visit func(p *Pattern) bool
	visit = func(p *Pattern) bool {
		for _, entry := range p.First() {
			r := entry.Reference()
			if r == nil {
				continue
			}
			if r.Pattern == pat {
				return true
			}
			if !seen[r.Pattern] {
				seen[r.Pattern] = true
				if visit(r.Pattern) {
					return true
				}
			}
		}
		return false
	}
	if visit(pat) {
		return &LinkError{Pattern: pat.Name, Err: ErrLeftRecursion}
	}
	return nil
}

// AttachGenerated links a generated tree under parent so that its first
// sets, optionality and parent links are usable by the engine. The tree may
// only contain tokens, sequences and variations.
func AttachGenerated(e Expression, parent Expression) error {
	l := &linker{pattern: &Pattern{Name: "(generated)"}}
	if err := l.link(e, parent, 0); err != nil {
		return err
	}
	var err error
	Walk(e, func(x Expression) bool {
		switch x.(type) {
		case *Token, *Sequence, *Variation:
		default:
			err = l.errorf(ErrUndefinedPattern, x)
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	l.optional(e)
	computeFirst(e)
	return nil
}
