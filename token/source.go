package token

import (
	"golang.org/x/text/cases"
)

// Source is the random-access contract the engine consumes. Implementations
// must keep token numbers stable for the lifetime of a search.
type Source interface {
	// Len returns the number of tokens, including Start and End.
	Len() int

	// At returns the token with the given number.
	At(number int) *Token

	// GetText returns the text covered by the locations start through end,
	// both inclusive. Synthetic locations are resolved to their real token.
	GetText(start, end Location) string
}

// Text is a tokenized, in-memory text.
type Text struct {
	text   string
	tokens []Token
}

// NewText tokenizes text and returns it as a Source.
func NewText(text string) *Text {
	return &Text{text: text, tokens: Tokenize(text)}
}

// Len implements Source.
func (t *Text) Len() int {
	return len(t.tokens)
}

// At implements Source.
func (t *Text) At(number int) *Token {
	return &t.tokens[number]
}

// Tokens returns the underlying token slice. Callers must not modify it.
func (t *Text) Tokens() []Token {
	return t.tokens
}

// String returns the original text.
func (t *Text) String() string {
	return t.text
}

// GetText implements Source.
func (t *Text) GetText(start, end Location) string {
	from := t.tokens[start.TokenNumber()].Location.Position
	to := t.tokens[end.TokenNumber()].Location.EndPosition()
	if to < from {
		return ""
	}
	return t.text[from:to]
}

// Fold returns the Unicode case-folded form of s. It is used for every
// case-insensitive comparison in the module so index keys, prefilter
// literals and field references agree.
func Fold(s string) string {
	return cases.Fold().String(s)
}
