package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/token"
)

func TestLookup(t *testing.T) {
	word := expr.Word("paris")
	exact := expr.ExactWord("Paris")
	prefix := expr.Prefix("par")
	exactPrefix := &expr.Token{Category: expr.WordToken, Text: "Pa", Prefix: true, CaseSensitive: true}
	anyWord := expr.Any(expr.WordToken)
	num := expr.Any(expr.NumToken)
	title := &expr.Token{Category: expr.WordToken, Case: token.TitleCase}
	comma := expr.Word(",")

	pkg := expr.NewPackage(expr.NewPattern("P", expr.Var(word, exact, prefix, exactPrefix, anyWord, num, title, comma)))
	require.NoError(t, pkg.Link())
	idx := New(pkg)
	assert.Equal(t, 8, idx.Len())

	tokens := token.Tokenize("Paris paris 42 , Parade")
	tests := []struct {
		name string
		tok  token.Token
		want []*expr.Token
	}{
		{"title word", tokens[1], []*expr.Token{word, exact, prefix, exactPrefix, anyWord, title}},
		{"lower word", tokens[3], []*expr.Token{word, prefix, anyWord}},
		{"number", tokens[5], []*expr.Token{anyWord, num}},
		{"punctuation", tokens[7], []*expr.Token{comma}},
		{"prefix only", tokens[9], []*expr.Token{prefix, exactPrefix, anyWord, title}},
		{"space", tokens[2], nil},
		{"start", tokens[0], nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.Lookup(&tt.tok)
			assert.Equal(t, len(tt.want), len(got), "%v", got)
			for i := range tt.want {
				if i < len(got) {
					assert.Same(t, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestLookupWalksHelpersAndExceptions(t *testing.T) {
	inHelper := expr.Word("alpha")
	inException := expr.Word("beta")
	pkg := expr.NewPackage(
		expr.NewPattern("P", expr.Var(expr.Ref("H")).Except(inException)),
		expr.Helper("H", inHelper),
	)
	require.NoError(t, pkg.Link())
	idx := New(pkg)

	tokens := token.Tokenize("alpha beta")
	assert.Equal(t, []*expr.Token{inHelper}, idx.Lookup(&tokens[1]))
	assert.Equal(t, []*expr.Token{inException}, idx.Lookup(&tokens[3]))
}

func TestEachPrefix(t *testing.T) {
	var got []string
	eachPrefix("héllo", 3, func(p string) { got = append(got, p) })
	assert.Equal(t, []string{"h", "hé"}, got)
}

func TestContains(t *testing.T) {
	word := expr.Word("alpha")
	pkg := expr.NewPackage(expr.NewPattern("P", word))
	require.NoError(t, pkg.Link())
	idx := New(pkg)

	assert.True(t, idx.Contains(word))
	assert.False(t, idx.Contains(expr.Word("alpha")))
}
