// Package expr provides the immutable expression tree consumed by the
// matching engine.
//
// A tree is built with the constructors in this package (Seq, Var, Repeat,
// Span, ...), grouped into Patterns and linked into a Package. Linking fills
// the parent/position links, recomputes optionality bottom-up, resolves
// pattern and field references and precomputes first sets. After Link a
// Package is read-only and may be shared by any number of concurrent search
// sessions.
package expr

import (
	"fmt"

	"github.com/golang-collections/collections/stack"
)

// Kind identifies the type of an expression node.
type Kind uint8

const (
	KindToken Kind = iota
	KindSequence
	KindVariation
	KindConjunction
	KindRepetition
	KindAnySpan
	KindWordSpan
	KindException
	KindInside
	KindOutside
	KindHaving
	KindExtraction
	KindFieldReference
	KindPatternReference
	KindPattern
)

var kindNames = [...]string{
	KindToken:            "Token",
	KindSequence:         "Sequence",
	KindVariation:        "Variation",
	KindConjunction:      "Conjunction",
	KindRepetition:       "Repetition",
	KindAnySpan:          "AnySpan",
	KindWordSpan:         "WordSpan",
	KindException:        "Exception",
	KindInside:           "Inside",
	KindOutside:          "Outside",
	KindHaving:           "Having",
	KindExtraction:       "Extraction",
	KindFieldReference:   "FieldReference",
	KindPatternReference: "PatternReference",
	KindPattern:          "Pattern",
}

// String returns a human-readable representation of the Kind
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Unknown(%d)", k)
}

// Expression is a node of a linked expression tree.
type Expression interface {
	// Kind returns the node type.
	Kind() Kind

	// Parent returns the enclosing node, nil for a Pattern.
	Parent() Expression

	// Position returns the slot of this node inside its parent.
	Position() int

	// IsOptional reports whether the node can match without consuming tokens.
	IsOptional() bool

	// First returns the entry points from which the node can start matching.
	First() []Entry

	// Children returns the direct sub-expressions in position order.
	Children() []Expression

	String() string

	base() *node
}

// node holds the link state shared by every expression type.
type node struct {
	parent   Expression
	position int
	optional bool
	first    []Entry
	linked   bool
}

func (n *node) Parent() Expression { return n.parent }
func (n *node) Position() int      { return n.position }
func (n *node) IsOptional() bool   { return n.optional }
func (n *node) First() []Entry     { return n.first }
func (n *node) base() *node        { return n }

// Entry is a leaf from which matching of an enclosing expression can start:
// a *Token, a *PatternReference or a *FieldReference. The path from the leaf
// up to the enclosing expression follows Parent links.
type Entry struct {
	Leaf Expression
}

// Token returns the leaf as a token expression, or nil.
func (e Entry) Token() *Token {
	t, _ := e.Leaf.(*Token)
	return t
}

// Reference returns the leaf as a pattern reference, or nil.
func (e Entry) Reference() *PatternReference {
	r, _ := e.Leaf.(*PatternReference)
	return r
}

// Field returns the leaf as a field reference, or nil.
func (e Entry) Field() *FieldReference {
	f, _ := e.Leaf.(*FieldReference)
	return f
}

// Walk visits e and all of its descendants in pre-order. Referenced patterns
// are not entered. Returning false from fn skips the children of a node.
func Walk(e Expression, fn func(Expression) bool) {
	s := stack.New()
	s.Push(e)
	for s.Len() > 0 {
		cur := s.Pop().(Expression)
		if !fn(cur) {
			continue
		}
		children := cur.Children()
		for i := len(children) - 1; i >= 0; i-- {
			if children[i] != nil {
				s.Push(children[i])
			}
		}
	}
}

// PatternOf returns the pattern that owns e, walking Parent links.
func PatternOf(e Expression) *Pattern {
	for e != nil {
		if p, ok := e.(*Pattern); ok {
			return p
		}
		e = e.Parent()
	}
	return nil
}

// IsAncestor reports whether a is a strict ancestor of e.
func IsAncestor(a, e Expression) bool {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if p == a {
			return true
		}
	}
	return false
}
