package expr

import (
	"fmt"
	"strings"

	"github.com/coregx/coresearch/token"
)

// Category restricts which token kinds a token expression accepts.
type Category uint8

const (
	AnyToken Category = iota
	WordToken
	AlphaToken
	NumToken
	AlphaNumToken
	PunctToken
	SymbolToken
	SpaceToken
	LineBreakToken
	StartToken
	EndToken
)

var categoryNames = map[string]Category{
	"any":       AnyToken,
	"word":      WordToken,
	"alpha":     AlphaToken,
	"num":       NumToken,
	"alphanum":  AlphaNumToken,
	"punct":     PunctToken,
	"symbol":    SymbolToken,
	"space":     SpaceToken,
	"linebreak": LineBreakToken,
	"start":     StartToken,
	"end":       EndToken,
}

// ParseCategory converts a lowercase category name ("word", "num", ...).
func ParseCategory(name string) (Category, bool) {
	c, ok := categoryNames[strings.ToLower(name)]
	return c, ok
}

// String returns the category name
func (c Category) String() string {
	for name, v := range categoryNames {
		if v == c {
			return name
		}
	}
	return fmt.Sprintf("category(%d)", c)
}

// Accepts reports whether a token of the given kind and class belongs to c.
func (c Category) Accepts(k token.Kind, class token.WordClass) bool {
	switch c {
	case AnyToken:
		return k != token.Start && k != token.End
	case WordToken:
		return k == token.Word
	case AlphaToken:
		return k == token.Word && class == token.Alpha
	case NumToken:
		return k == token.Word && class == token.Num
	case AlphaNumToken:
		return k == token.Word && class == token.AlphaNum
	case PunctToken:
		return k == token.Punctuation
	case SymbolToken:
		return k == token.Symbol
	case SpaceToken:
		return k == token.Space
	case LineBreakToken:
		return k == token.LineBreak
	case StartToken:
		return k == token.Start
	case EndToken:
		return k == token.End
	}
	return false
}

// Token matches a single token, by text, kind or kind plus attributes.
type Token struct {
	node

	Category      Category
	Text          string // empty: any text of the category
	CaseSensitive bool
	Prefix        bool       // Text is a prefix of the token text
	Case          token.Case // NoCase: any case
	MinLength     int        // in runes, 0: no bound
	MaxLength     int        // in runes, 0: no bound

	folded string
}

// Word returns a case-insensitive token expression matching text exactly.
func Word(text string) *Token {
	return &Token{Category: AnyToken, Text: text}
}

// ExactWord returns a case-sensitive token expression.
func ExactWord(text string) *Token {
	return &Token{Category: AnyToken, Text: text, CaseSensitive: true}
}

// Prefix returns a case-insensitive prefix token expression.
func Prefix(text string) *Token {
	return &Token{Category: WordToken, Text: text, Prefix: true}
}

// Any returns a token expression for a whole category.
func Any(c Category) *Token {
	return &Token{Category: c}
}

func (t *Token) Kind() Kind               { return KindToken }
func (t *Token) Children() []Expression { return nil }

// Folded returns the case-folded Text, valid after linking.
func (t *Token) Folded() string {
	return t.folded
}

// HasAttributes reports whether the expression constrains case or length.
func (t *Token) HasAttributes() bool {
	return t.Case != token.NoCase || t.MinLength > 0 || t.MaxLength > 0
}

// Matches reports whether tok satisfies every constraint of the expression.
func (t *Token) Matches(tok *token.Token) bool {
	if !t.Category.Accepts(tok.Kind, tok.Class) {
		return false
	}
	if t.Text != "" && !t.matchesText(tok.Text) {
		return false
	}
	if t.Case != token.NoCase && tok.Case != t.Case {
		return false
	}
	if t.MinLength > 0 || t.MaxLength > 0 {
		n := len([]rune(tok.Text))
		if t.MinLength > 0 && n < t.MinLength {
			return false
		}
		if t.MaxLength > 0 && n > t.MaxLength {
			return false
		}
	}
	return true
}

func (t *Token) matchesText(text string) bool {
	if t.CaseSensitive {
		if t.Prefix {
			return strings.HasPrefix(text, t.Text)
		}
		return text == t.Text
	}
	folded := t.folded
	if folded == "" {
		folded = token.Fold(t.Text)
	}
	if t.Prefix {
		return strings.HasPrefix(token.Fold(text), folded)
	}
	return token.Fold(text) == folded
}

func (t *Token) String() string {
	var b strings.Builder
	switch {
	case t.Text != "" && t.Prefix:
		fmt.Fprintf(&b, "%q*", t.Text)
	case t.Text != "":
		fmt.Fprintf(&b, "%q", t.Text)
	default:
		b.WriteString(t.Category.String())
	}
	if t.CaseSensitive {
		b.WriteString("!")
	}
	if t.Case != token.NoCase {
		fmt.Fprintf(&b, "(%s)", t.Case)
	}
	if t.MinLength > 0 || t.MaxLength > 0 {
		fmt.Fprintf(&b, "(%d-%d)", t.MinLength, t.MaxLength)
	}
	return b.String()
}
