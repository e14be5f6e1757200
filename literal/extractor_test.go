package literal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/coresearch/expr"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		body func() expr.Expression
		want []string
	}{
		{"word", func() expr.Expression { return expr.Word("Paris") }, []string{"paris"}},
		{"any token", func() expr.Expression { return expr.Any(expr.WordToken) }, nil},
		{"sequence picks most selective", func() expr.Expression {
			return expr.Seq(expr.Var(expr.Word("a"), expr.Word("b")), expr.Word("york"))
		}, []string{"york"}},
		{"sequence skips optional", func() expr.Expression {
			return expr.Seq(expr.Optional(expr.Word("the")), expr.Any(expr.NumToken), expr.Word("km"))
		}, []string{"km"}},
		{"variation unions", func() expr.Expression {
			return expr.Var(expr.Word("paris"), expr.Word("london"))
		}, []string{"paris", "london"}},
		{"variation with unconstrained element", func() expr.Expression {
			return expr.Var(expr.Word("paris"), expr.Any(expr.WordToken))
		}, nil},
		{"exceptions ignored", func() expr.Expression {
			return expr.Var(expr.Word("paris")).Except(expr.Word("paris"))
		}, []string{"paris"}},
		{"optional repetition", func() expr.Expression {
			return expr.Seq(expr.Any(expr.WordToken), expr.Repeat(0, 3, expr.Word("x")))
		}, nil},
		{"span sides", func() expr.Expression {
			return expr.Span(expr.Any(expr.WordToken), expr.Prefix("Lond"))
		}, []string{"lond"}},
		{"reference", func() expr.Expression { return expr.Ref("City") }, []string{"rome"}},
		{"field reference", func() expr.Expression {
			return expr.Seq(expr.Extract("X", expr.Any(expr.WordToken)), expr.FieldRef("X"))
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pat := expr.NewPattern("P", tt.body())
			pkg := expr.NewPackage(pat, expr.Helper("City", expr.Word("Rome")))
			require.NoError(t, pkg.Link())

			got := New(DefaultConfig()).Extract(pat)
			assert.Equal(t, tt.want, lits(got))
		})
	}
}

func TestExtractLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLiterals = 2
	cfg.MaxLiteralLen = 4

	pat := expr.NewPattern("P", expr.Var(expr.Word("a"), expr.Word("b"), expr.Word("c")))
	require.NoError(t, expr.NewPackage(pat).Link())
	assert.Nil(t, New(cfg).Extract(pat))

	long := expr.NewPattern("L", expr.Word("international"))
	require.NoError(t, expr.NewPackage(long).Link())
	seq := New(cfg).Extract(long)
	require.Equal(t, 1, seq.Len())
	assert.Equal(t, "inte", string(seq.Get(0).Bytes))
	assert.False(t, seq.Get(0).Complete)
}

func TestExtractRecursionDepth(t *testing.T) {
	// R = "x" + @R, right recursion is allowed
	pat := expr.NewPattern("R", expr.Seq(expr.Word("x"), expr.Ref("R")))
	require.NoError(t, expr.NewPackage(pat).Link())
	assert.Equal(t, []string{"x"}, lits(New(DefaultConfig()).Extract(pat)))
}
