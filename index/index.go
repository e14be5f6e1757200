// Package index maps a text token to the token expressions that accept it.
//
// The index is built once per linked package and is read-only afterwards.
// Text-bearing expressions are found through hash lookups (exact text,
// folded text, folded prefixes); text-less expressions are bucketed by
// category. Every candidate returned by a lookup is verified with
// expr.Token.Matches, so the buckets only need to over-approximate.
package index

import (
	"slices"
	"unicode/utf8"

	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/token"
)

const numCategories = int(expr.EndToken) + 1

// Index is an expression index over the token expressions of a package.
type Index struct {
	exact       map[string][]*expr.Token
	folded      map[string][]*expr.Token
	prefix      map[string][]*expr.Token // folded prefixes
	exactPrefix map[string][]*expr.Token
	kinds       [numCategories][]*expr.Token

	// longest registered prefix, in bytes of folded text
	maxPrefix int

	order map[*expr.Token]int
}

// New indexes every token expression of every pattern in pkg, exception
// bodies and synthetic operand patterns included.
func New(pkg *expr.Package) *Index {
	idx := &Index{
		exact:       make(map[string][]*expr.Token),
		folded:      make(map[string][]*expr.Token),
		prefix:      make(map[string][]*expr.Token),
		exactPrefix: make(map[string][]*expr.Token),
		order:       make(map[*expr.Token]int),
	}
	for _, pat := range pkg.Patterns {
		expr.Walk(pat.Body, func(e expr.Expression) bool {
			if t, ok := e.(*expr.Token); ok {
				idx.add(t)
			}
			return true
		})
	}
	return idx
}

func (idx *Index) add(t *expr.Token) {
	if _, dup := idx.order[t]; dup {
		return
	}
	idx.order[t] = len(idx.order)

	switch {
	case t.Text == "":
		idx.kinds[t.Category] = append(idx.kinds[t.Category], t)
	case t.Prefix && t.CaseSensitive:
		idx.exactPrefix[t.Text] = append(idx.exactPrefix[t.Text], t)
		idx.maxPrefix = max(idx.maxPrefix, len(t.Text))
	case t.Prefix:
		key := foldedText(t)
		idx.prefix[key] = append(idx.prefix[key], t)
		idx.maxPrefix = max(idx.maxPrefix, len(key))
	case t.CaseSensitive:
		idx.exact[t.Text] = append(idx.exact[t.Text], t)
	default:
		key := foldedText(t)
		idx.folded[key] = append(idx.folded[key], t)
	}
}

func foldedText(t *expr.Token) string {
	if f := t.Folded(); f != "" {
		return f
	}
	return token.Fold(t.Text)
}

// Len returns the number of indexed token expressions.
func (idx *Index) Len() int {
	return len(idx.order)
}

// Contains reports whether t was registered. Token expressions generated
// after New, e.g. for field references, are never contained.
func (idx *Index) Contains(t *expr.Token) bool {
	_, ok := idx.order[t]
	return ok
}

// Lookup returns the token expressions that match tok, in registration order.
func (idx *Index) Lookup(tok *token.Token) []*expr.Token {
	return idx.AppendLookup(nil, tok)
}

// AppendLookup is like Lookup but appends to dst.
func (idx *Index) AppendLookup(dst []*expr.Token, tok *token.Token) []*expr.Token {
	base := len(dst)
	add := func(ts []*expr.Token) {
		for _, t := range ts {
			if t.Matches(tok) {
				dst = append(dst, t)
			}
		}
	}

	for c := range numCategories {
		if expr.Category(c).Accepts(tok.Kind, tok.Class) {
			add(idx.kinds[c])
		}
	}

	if tok.Text != "" {
		add(idx.exact[tok.Text])
		folded := token.Fold(tok.Text)
		add(idx.folded[folded])
		if idx.maxPrefix > 0 {
			eachPrefix(folded, idx.maxPrefix, func(p string) { add(idx.prefix[p]) })
			eachPrefix(tok.Text, idx.maxPrefix, func(p string) { add(idx.exactPrefix[p]) })
		}
	}

	found := dst[base:]
	if len(found) > 1 {
		slices.SortFunc(found, func(a, b *expr.Token) int {
			return idx.order[a] - idx.order[b]
		})
	}
	return dst
}

// eachPrefix calls fn for every non-empty rune-aligned prefix of s no
// longer than limit bytes.
func eachPrefix(s string, limit int, fn func(string)) {
	for i := 0; i < len(s) && i < limit; {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if i > limit {
			return
		}
		fn(s[:i])
	}
}
