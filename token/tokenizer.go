package token

import (
	"unicode"
	"unicode/utf8"
)

// Tokenize splits text into classified tokens.
//
// The result always starts with a Start token and ends with an End token,
// both zero-length. Token numbers are dense and 0-based, so tokens[i].Number()
// == i holds for the returned slice.
func Tokenize(text string) []Token {
	tokens := make([]Token, 0, len(text)/4+2)
	tokens = append(tokens, Token{Kind: Start})

	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		start := i

		switch {
		case r == '\n' || r == '\r':
			i += size
			if r == '\r' && i < len(text) && text[i] == '\n' {
				i++
			}
			tokens = appendToken(tokens, LineBreak, text, start, i)

		case unicode.IsSpace(r):
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if r == '\n' || r == '\r' || !unicode.IsSpace(r) {
					break
				}
				i += size
			}
			tokens = appendToken(tokens, Space, text, start, i)

		case isWordRune(r):
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if !isWordRune(r) {
					break
				}
				i += size
			}
			tokens = appendToken(tokens, Word, text, start, i)

		case unicode.IsPunct(r):
			i += size
			tokens = appendToken(tokens, Punctuation, text, start, i)

		default:
			i += size
			tokens = appendToken(tokens, Symbol, text, start, i)
		}
	}

	tokens = append(tokens, Token{
		Kind:     End,
		Location: Location{Number: len(tokens), Position: len(text)},
	})
	return tokens
}

func appendToken(tokens []Token, kind Kind, text string, start, end int) []Token {
	tok := Token{
		Kind: kind,
		Text: text[start:end],
		Location: Location{
			Number:   len(tokens),
			Position: start,
			Length:   end - start,
		},
	}
	if kind == Word {
		tok.Class, tok.Case = classifyWord(tok.Text)
	}
	return append(tokens, tok)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// classifyWord derives the word class and letter case in a single pass.
func classifyWord(w string) (WordClass, Case) {
	var (
		letters, digits int
		upper, lower    int
		firstUpper      bool
	)
	for i, r := range w {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
			if unicode.IsUpper(r) {
				upper++
				if i == 0 {
					firstUpper = true
				}
			} else if unicode.IsLower(r) {
				lower++
			}
		}
	}

	class := AlphaNum
	switch {
	case digits == 0:
		class = Alpha
	case letters == 0:
		class = Num
	}

	c := MixedCase
	switch {
	case letters == 0:
		c = NoCase
	case upper == 0:
		c = Lowercase
	case lower == 0:
		c = Uppercase
	case upper == 1 && firstUpper:
		c = TitleCase
	}
	return class, c
}
