package expr

import (
	"fmt"
	"strings"
)

// Unbounded is the upper bound of open-ended repetitions and spans.
const Unbounded = -1

// Sequence matches its elements one after another.
type Sequence struct {
	node
	Elements []Expression

	firstFrom [][]Entry
	lastRequired int
}

// Seq returns a sequence of elements.
func Seq(elements ...Expression) *Sequence {
	return &Sequence{Elements: elements}
}

func (s *Sequence) Kind() Kind               { return KindSequence }
func (s *Sequence) Children() []Expression { return s.Elements }
func (s *Sequence) String() string         { return joinNodes("(", s.Elements, " + ", ")") }

// FirstFrom returns the entries from which matching can resume at element
// pos, skipping over optional elements.
func (s *Sequence) FirstFrom(pos int) []Entry {
	if pos >= len(s.firstFrom) {
		return nil
	}
	return s.firstFrom[pos]
}

// LastRequired returns the position of the last non-optional element, -1 if
// every element is optional.
func (s *Sequence) LastRequired() int {
	return s.lastRequired
}

// Variation matches any one of its elements unless an exception matches the
// same text.
type Variation struct {
	node
	Elements   []Expression
	Exceptions []*Exception
}

// Var returns a variation of alternatives.
func Var(elements ...Expression) *Variation {
	return &Variation{Elements: elements}
}

// Except adds exceptions to the variation and returns it.
func (v *Variation) Except(bodies ...Expression) *Variation {
	for _, b := range bodies {
		v.Exceptions = append(v.Exceptions, &Exception{Body: b})
	}
	return v
}

func (v *Variation) Kind() Kind { return KindVariation }

func (v *Variation) Children() []Expression {
	children := make([]Expression, 0, len(v.Elements)+len(v.Exceptions))
	children = append(children, v.Elements...)
	for _, e := range v.Exceptions {
		children = append(children, e)
	}
	return children
}

func (v *Variation) String() string {
	s := joinNodes("{", v.Elements, ", ", "")
	for _, e := range v.Exceptions {
		s += ", " + e.String()
	}
	return s + "}"
}

// Conjunction matches all of its elements, adjacent, in any order.
type Conjunction struct {
	node
	Elements []Expression
}

// And returns a conjunction.
func And(elements ...Expression) *Conjunction {
	return &Conjunction{Elements: elements}
}

func (c *Conjunction) Kind() Kind               { return KindConjunction }
func (c *Conjunction) Children() []Expression { return c.Elements }
func (c *Conjunction) String() string         { return joinNodes("(", c.Elements, " & ", ")") }

// Repetition matches Body between Min and Max times.
type Repetition struct {
	node
	Body Expression
	Min  int
	Max  int // Unbounded for no limit
}

// Repeat returns a repetition.
func Repeat(min, max int, body Expression) *Repetition {
	return &Repetition{Body: body, Min: min, Max: max}
}

// Optional returns Body repeated zero or one time.
func Optional(body Expression) *Repetition {
	return Repeat(0, 1, body)
}

func (r *Repetition) Kind() Kind               { return KindRepetition }
func (r *Repetition) Children() []Expression { return []Expression{r.Body} }

func (r *Repetition) String() string {
	return fmt.Sprintf("[%s]%s", boundsString(r.Min, r.Max), r.Body)
}

// AnySpan matches Left, then a gap of Min..Max non-whitespace tokens, then
// Right. The gap text is captured into GapField when set.
type AnySpan struct {
	node
	Left, Right Expression
	Min, Max    int
	GapField    string

	gap *Field
}

// Span returns an any-span with an unbounded gap.
func Span(left, right Expression) *AnySpan {
	return &AnySpan{Left: left, Right: right, Max: Unbounded}
}

// Within returns a span with a bounded gap.
func Within(min, max int, left, right Expression) *AnySpan {
	return &AnySpan{Left: left, Right: right, Min: min, Max: max}
}

// Capture names the field receiving the gap text and returns the span.
func (s *AnySpan) Capture(field string) *AnySpan {
	s.GapField = field
	return s
}

// Gap returns the linked gap field, or nil.
func (s *AnySpan) Gap() *Field { return s.gap }

func (s *AnySpan) Kind() Kind               { return KindAnySpan }
func (s *AnySpan) Children() []Expression { return []Expression{s.Left, s.Right} }

func (s *AnySpan) String() string {
	return fmt.Sprintf("%s .. [%s]%s .. %s", s.Left, boundsString(s.Min, s.Max), s.GapField, s.Right)
}

// WordSpan is like AnySpan but the gap bound counts words only.
type WordSpan struct {
	node
	Left, Right Expression
	Min, Max    int
	GapField    string

	gap *Field
}

// Words returns a word-span.
func Words(min, max int, left, right Expression) *WordSpan {
	return &WordSpan{Left: left, Right: right, Min: min, Max: max}
}

// Capture names the field receiving the gap text and returns the span.
func (s *WordSpan) Capture(field string) *WordSpan {
	s.GapField = field
	return s
}

// Gap returns the linked gap field, or nil.
func (s *WordSpan) Gap() *Field { return s.gap }

func (s *WordSpan) Kind() Kind               { return KindWordSpan }
func (s *WordSpan) Children() []Expression { return []Expression{s.Left, s.Right} }

func (s *WordSpan) String() string {
	return fmt.Sprintf("%s ... [%s words]%s ... %s", s.Left, boundsString(s.Min, s.Max), s.GapField, s.Right)
}

// Exception vetoes a match of its variation when Body matches the same text.
type Exception struct {
	node
	Body Expression
}

func (e *Exception) Kind() Kind               { return KindException }
func (e *Exception) Children() []Expression { return []Expression{e.Body} }
func (e *Exception) String() string         { return "~" + e.Body.String() }

// Variation returns the variation guarded by the exception.
func (e *Exception) Variation() *Variation {
	v, _ := e.parent.(*Variation)
	return v
}

// Inside matches Body only when it lies within a match of Outer.
type Inside struct {
	node
	Body  Expression
	Outer Expression
}

// In returns an Inside expression.
func In(body, outer Expression) *Inside {
	return &Inside{Body: body, Outer: outer}
}

func (i *Inside) Kind() Kind               { return KindInside }
func (i *Inside) Children() []Expression { return []Expression{i.Body, i.Outer} }
func (i *Inside) String() string         { return fmt.Sprintf("(%s @inside %s)", i.Body, i.Outer) }

// Outside matches Body only when no match of Outer contains it.
type Outside struct {
	node
	Body  Expression
	Outer Expression
}

// Out returns an Outside expression.
func Out(body, outer Expression) *Outside {
	return &Outside{Body: body, Outer: outer}
}

func (o *Outside) Kind() Kind               { return KindOutside }
func (o *Outside) Children() []Expression { return []Expression{o.Body, o.Outer} }
func (o *Outside) String() string         { return fmt.Sprintf("(%s @outside %s)", o.Body, o.Outer) }

// Having matches Body only when a match of Inner lies within it.
type Having struct {
	node
	Body  Expression
	Inner Expression
}

// Has returns a Having expression.
func Has(body, inner Expression) *Having {
	return &Having{Body: body, Inner: inner}
}

func (h *Having) Kind() Kind               { return KindHaving }
func (h *Having) Children() []Expression { return []Expression{h.Body, h.Inner} }
func (h *Having) String() string         { return fmt.Sprintf("(%s @having %s)", h.Body, h.Inner) }

// Extraction captures the text matched by Body into a field.
type Extraction struct {
	node
	FieldName string
	Body      Expression

	field *Field
}

// Extract returns an extraction of body into the named field.
func Extract(field string, body Expression) *Extraction {
	return &Extraction{FieldName: field, Body: body}
}

// Field returns the linked field.
func (e *Extraction) Field() *Field { return e.field }

func (e *Extraction) Kind() Kind               { return KindExtraction }
func (e *Extraction) Children() []Expression { return []Expression{e.Body} }
func (e *Extraction) String() string         { return fmt.Sprintf("%s: %s", e.FieldName, e.Body) }

// FieldReference matches the text most recently captured into a field.
type FieldReference struct {
	node
	FieldName string

	field *Field
}

// FieldRef returns a field reference.
func FieldRef(name string) *FieldReference {
	return &FieldReference{FieldName: name}
}

// Field returns the linked field.
func (f *FieldReference) Field() *Field { return f.field }

func (f *FieldReference) Kind() Kind               { return KindFieldReference }
func (f *FieldReference) Children() []Expression { return nil }
func (f *FieldReference) String() string         { return "$" + f.FieldName }

// PatternReference matches wherever the referenced pattern matches.
type PatternReference struct {
	node
	Name    string
	Pattern *Pattern
}

// Ref returns a reference to a pattern by name.
func Ref(name string) *PatternReference {
	return &PatternReference{Name: name}
}

func (r *PatternReference) Kind() Kind               { return KindPatternReference }
func (r *PatternReference) Children() []Expression { return nil }
func (r *PatternReference) String() string         { return "@" + r.Name }

// Field is a named capture slot of a pattern.
type Field struct {
	Name    string
	Number  int
	Pattern *Pattern
}

// Pattern is a named, top-level expression.
type Pattern struct {
	node
	Name         string
	Body         Expression
	SearchTarget bool
	Number       int
	Fields       []*Field

	synthetic bool
}

// NewPattern returns a search-target pattern.
func NewPattern(name string, body Expression) *Pattern {
	return &Pattern{Name: name, Body: body, SearchTarget: true}
}

// Helper returns a pattern that only serves references, not results.
func Helper(name string, body Expression) *Pattern {
	return &Pattern{Name: name, Body: body}
}

// Synthetic reports whether the pattern was generated while linking.
func (p *Pattern) Synthetic() bool { return p.synthetic }

// Field returns the field with the given name, or nil.
func (p *Pattern) Field(name string) *Field {
	for _, f := range p.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (p *Pattern) Kind() Kind               { return KindPattern }
func (p *Pattern) Children() []Expression { return []Expression{p.Body} }
func (p *Pattern) String() string         { return fmt.Sprintf("%s = %s", p.Name, p.Body) }

func boundsString(min, max int) string {
	if max == Unbounded {
		return fmt.Sprintf("%d+", min)
	}
	return fmt.Sprintf("%d-%d", min, max)
}

func joinNodes(open string, nodes []Expression, sep, close string) string {
	var b strings.Builder
	b.WriteString(open)
	for i, n := range nodes {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(n.String())
	}
	b.WriteString(close)
	return b.String()
}
