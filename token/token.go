// Package token provides the token model consumed by the matching engine:
// classified tokens, stable locations and a random-access text source.
//
// The tokenizer in this package is intentionally simple. It splits text into
// words, numbers, punctuation, symbols, spaces and line breaks and brackets the
// stream with synthetic Start and End tokens.
package token

import "fmt"

// Kind classifies a token.
type Kind uint8

const (
	// Start is the synthetic token emitted before the first real token.
	Start Kind = iota

	// End is the synthetic token emitted after the last real token.
	End

	// Word is a run of letters and/or digits.
	Word

	// Punctuation is a single punctuation character.
	Punctuation

	// Symbol is a single symbol character (math, currency, etc).
	Symbol

	// Space is a run of horizontal whitespace.
	Space

	// LineBreak is a single line break (\n, \r\n or \r).
	LineBreak
)

// String returns a human-readable representation of the Kind
func (k Kind) String() string {
	switch k {
	case Start:
		return "Start"
	case End:
		return "End"
	case Word:
		return "Word"
	case Punctuation:
		return "Punctuation"
	case Symbol:
		return "Symbol"
	case Space:
		return "Space"
	case LineBreak:
		return "LineBreak"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// IsWhitespace reports whether tokens of this kind are transparent between
// adjacent pattern elements.
func (k Kind) IsWhitespace() bool {
	return k == Space || k == LineBreak
}

// WordClass refines the Word kind.
type WordClass uint8

const (
	// NoClass is used for every non-word token.
	NoClass WordClass = iota

	// Alpha words contain letters only.
	Alpha

	// Num words contain digits only.
	Num

	// AlphaNum words mix letters and digits.
	AlphaNum
)

// String returns a human-readable representation of the WordClass
func (c WordClass) String() string {
	switch c {
	case NoClass:
		return "None"
	case Alpha:
		return "Alpha"
	case Num:
		return "Num"
	case AlphaNum:
		return "AlphaNum"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// Case describes the letter case of a word.
type Case uint8

const (
	// NoCase applies to words without letters.
	NoCase Case = iota

	// Lowercase words have no uppercase letters.
	Lowercase

	// Uppercase words have no lowercase letters.
	Uppercase

	// TitleCase words start with an uppercase letter followed by lowercase only.
	TitleCase

	// MixedCase is every other combination.
	MixedCase
)

// String returns a human-readable representation of the Case
func (c Case) String() string {
	switch c {
	case NoCase:
		return "NoCase"
	case Lowercase:
		return "Lowercase"
	case Uppercase:
		return "Uppercase"
	case TitleCase:
		return "TitleCase"
	case MixedCase:
		return "MixedCase"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// Location addresses a token inside a text.
//
// Number is the 0-based token number. Negative numbers are the bitwise
// complement of a real token number and mark synthetic locations, e.g. the
// position just before a token when an empty range has to be expressed.
type Location struct {
	Number   int // token number, complemented for synthetic locations
	Position int // byte offset in the text
	Length   int // length in bytes
}

// Synthetic reports whether the location does not denote a real token.
func (l Location) Synthetic() bool {
	return l.Number < 0
}

// TokenNumber returns the real token number, undoing the complement of a
// synthetic location.
func (l Location) TokenNumber() int {
	if l.Number < 0 {
		return ^l.Number
	}
	return l.Number
}

// Synthesized returns l marked as synthetic.
func (l Location) Synthesized() Location {
	if l.Number >= 0 {
		l.Number = ^l.Number
	}
	return l
}

// EndPosition returns the byte offset just after the location.
func (l Location) EndPosition() int {
	return l.Position + l.Length
}

// String returns "#number@position+length".
func (l Location) String() string {
	return fmt.Sprintf("#%d@%d+%d", l.Number, l.Position, l.Length)
}

// Token is a classified piece of text.
type Token struct {
	Kind     Kind
	Class    WordClass
	Case     Case
	Text     string
	Location Location
}

// Number returns the token number.
func (t *Token) Number() int {
	return t.Location.Number
}

// String returns a compact debug representation.
func (t *Token) String() string {
	return fmt.Sprintf("%s(%q) %s", t.Kind, t.Text, t.Location)
}
