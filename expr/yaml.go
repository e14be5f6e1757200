package expr

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/coregx/coresearch/token"
)

// DecodeYAML reads a package from its YAML structural encoding and links it.
//
// Example document:
//
//	patterns:
//	  - name: Greeting
//	    target: true
//	    body:
//	      seq:
//	        - hello
//	        - var: [{token: {kind: word}}]
//	          except: [world]
//
// A plain scalar is a case-insensitive word. Mapping keys select the node
// kind: token, seq, var (+ except), and, repeat, span, words, inside,
// outside, having, extract, field, ref.
func DecodeYAML(r io.Reader) (*Package, error) {
	var doc yamlPackage
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "expr: decode package")
	}

	pkg := NewPackage()
	for i, yp := range doc.Patterns {
		if yp.Body == nil {
			return nil, errors.Errorf("expr: pattern %d (%q) has no body", i, yp.Name)
		}
		body, err := yp.Body.build()
		if err != nil {
			return nil, errors.Wrapf(err, "expr: pattern %q", yp.Name)
		}
		pat := Helper(yp.Name, body)
		pat.SearchTarget = yp.Target == nil || *yp.Target
		pkg.Add(pat)
	}
	if err := pkg.Link(); err != nil {
		return nil, errors.Wrap(err, "expr: link package")
	}
	return pkg, nil
}

type yamlPackage struct {
	Patterns []yamlPattern `yaml:"patterns"`
}

type yamlPattern struct {
	Name   string    `yaml:"name"`
	Target *bool     `yaml:"target"`
	Body   *yamlNode `yaml:"body"`
}

type yamlToken struct {
	Text   string `yaml:"text"`
	Kind   string `yaml:"kind"`
	Exact  bool   `yaml:"exact"`
	Prefix bool   `yaml:"prefix"`
	Case   string `yaml:"case"`
	MinLen int    `yaml:"minlen"`
	MaxLen int    `yaml:"maxlen"`
}

type yamlRepeat struct {
	Min  int       `yaml:"min"`
	Max  *int      `yaml:"max"`
	Body *yamlNode `yaml:"body"`
}

type yamlSpan struct {
	Left  *yamlNode `yaml:"left"`
	Right *yamlNode `yaml:"right"`
	Min   int       `yaml:"min"`
	Max   *int      `yaml:"max"`
	Field string    `yaml:"field"`
}

type yamlPair struct {
	Body  *yamlNode `yaml:"body"`
	Other *yamlNode `yaml:"other"`
}

type yamlExtract struct {
	Field string    `yaml:"field"`
	Body  *yamlNode `yaml:"body"`
}

type yamlNode struct {
	Token   *yamlToken   `yaml:"token"`
	Seq     []*yamlNode  `yaml:"seq"`
	Var     []*yamlNode  `yaml:"var"`
	Except  []*yamlNode  `yaml:"except"`
	And     []*yamlNode  `yaml:"and"`
	Repeat  *yamlRepeat  `yaml:"repeat"`
	Span    *yamlSpan    `yaml:"span"`
	Words   *yamlSpan    `yaml:"words"`
	Inside  *yamlPair    `yaml:"inside"`
	Outside *yamlPair    `yaml:"outside"`
	Having  *yamlPair    `yaml:"having"`
	Extract *yamlExtract `yaml:"extract"`
	Field   string       `yaml:"field"`
	Ref     string       `yaml:"ref"`
}

// UnmarshalYAML accepts a scalar shorthand for case-insensitive words.
func (n *yamlNode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		n.Token = &yamlToken{Text: value.Value}
		return nil
	}
	type plain yamlNode
	return value.Decode((*plain)(n))
}

var caseNames = map[string]token.Case{
	"lower": token.Lowercase,
	"upper": token.Uppercase,
	"title": token.TitleCase,
	"mixed": token.MixedCase,
}

func (n *yamlNode) build() (Expression, error) {
	switch {
	case n == nil:
		return nil, errors.New("missing expression")
	case n.Token != nil:
		return n.Token.build()
	case n.Seq != nil:
		elements, err := buildAll(n.Seq)
		return Seq(elements...), err
	case n.Var != nil:
		elements, err := buildAll(n.Var)
		if err != nil {
			return nil, err
		}
		exceptions, err := buildAll(n.Except)
		return Var(elements...).Except(exceptions...), err
	case n.And != nil:
		elements, err := buildAll(n.And)
		return And(elements...), err
	case n.Repeat != nil:
		body, err := n.Repeat.Body.build()
		return Repeat(n.Repeat.Min, bound(n.Repeat.Max), body), err
	case n.Span != nil:
		left, right, err := n.Span.sides()
		if err != nil {
			return nil, err
		}
		return Within(n.Span.Min, bound(n.Span.Max), left, right).Capture(n.Span.Field), nil
	case n.Words != nil:
		left, right, err := n.Words.sides()
		if err != nil {
			return nil, err
		}
		return Words(n.Words.Min, bound(n.Words.Max), left, right).Capture(n.Words.Field), nil
	case n.Inside != nil:
		body, other, err := n.Inside.sides()
		return In(body, other), err
	case n.Outside != nil:
		body, other, err := n.Outside.sides()
		return Out(body, other), err
	case n.Having != nil:
		body, other, err := n.Having.sides()
		return Has(body, other), err
	case n.Extract != nil:
		body, err := n.Extract.Body.build()
		return Extract(n.Extract.Field, body), err
	case n.Field != "":
		return FieldRef(n.Field), nil
	case n.Ref != "":
		return Ref(n.Ref), nil
	}
	return nil, errors.New("empty expression node")
}

func (t *yamlToken) build() (Expression, error) {
	tok := &Token{
		Text:          t.Text,
		CaseSensitive: t.Exact,
		Prefix:        t.Prefix,
		MinLength:     t.MinLen,
		MaxLength:     t.MaxLen,
	}
	if t.Kind != "" {
		c, ok := ParseCategory(t.Kind)
		if !ok {
			return nil, errors.Errorf("unknown token kind %q", t.Kind)
		}
		tok.Category = c
	} else if t.Prefix {
		tok.Category = WordToken
	}
	if t.Case != "" {
		c, ok := caseNames[t.Case]
		if !ok {
			return nil, errors.Errorf("unknown case %q", t.Case)
		}
		tok.Case = c
	}
	return tok, nil
}

func (s *yamlSpan) sides() (Expression, Expression, error) {
	left, err := s.Left.build()
	if err != nil {
		return nil, nil, errors.Wrap(err, "span left")
	}
	right, err := s.Right.build()
	if err != nil {
		return nil, nil, errors.Wrap(err, "span right")
	}
	return left, right, nil
}

func (p *yamlPair) sides() (Expression, Expression, error) {
	body, err := p.Body.build()
	if err != nil {
		return nil, nil, errors.Wrap(err, "body")
	}
	other, err := p.Other.build()
	if err != nil {
		return nil, nil, errors.Wrap(err, "operand")
	}
	return body, other, nil
}

func buildAll(nodes []*yamlNode) ([]Expression, error) {
	out := make([]Expression, 0, len(nodes))
	for i, n := range nodes {
		e, err := n.build()
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		out = append(out, e)
	}
	return out, nil
}

func bound(max *int) int {
	if max == nil {
		return Unbounded
	}
	return *max
}
