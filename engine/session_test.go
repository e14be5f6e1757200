package engine

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/token"
)

type found struct {
	Pattern string
	Text    string
}

func quietConfig() Config {
	return DefaultConfig().WithLogger(slog.New(slog.DiscardHandler))
}

func compile(t *testing.T, patterns ...*expr.Pattern) *Program {
	t.Helper()
	pkg := expr.NewPackage(patterns...)
	require.NoError(t, pkg.Link())
	prog, err := Compile(pkg)
	require.NoError(t, err)
	return prog
}

func search(t *testing.T, prog *Program, text string, config Config) ([]found, *Session) {
	t.Helper()
	src := token.NewText(text)
	s, err := NewSession(prog, src, config)
	require.NoError(t, err)
	require.NoError(t, s.Run())
	var out []found
	for m, ok := s.Next(); ok; m, ok = s.Next() {
		out = append(out, found{Pattern: m.Pattern.Name, Text: src.GetText(m.Start, m.End)})
	}
	return out, s
}

func texts(name string, ts ...string) []found {
	var out []found
	for _, t := range ts {
		out = append(out, found{Pattern: name, Text: t})
	}
	return out
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name    string
		pattern expr.Expression
		text    string
		want    []string
	}{
		{"token", expr.Word("york"), "New York, york", []string{"York", "york"}},
		{"sequence", expr.Seq(expr.Word("new"), expr.Word("york")), "new york new jersey", []string{"new york"}},
		{"sequence skips whitespace", expr.Seq(expr.Word("a"), expr.Word("b")), "a \n  b", []string{"a \n  b"}},
		{"sequence breaks on token", expr.Seq(expr.Word("a"), expr.Word("b")), "a x b", nil},
		{"optional tail", expr.Seq(expr.Word("a"), expr.Optional(expr.Word("b"))), "a b", []string{"a", "a b"}},
		{"optional head", expr.Seq(expr.Optional(expr.Word("a")), expr.Word("b")), "a b", []string{"a b", "b"}},
		{"variation", expr.Var(expr.Word("cat"), expr.Seq(expr.Word("big"), expr.Word("dog"))), "cat big dog", []string{"cat", "big dog"}},
		{"conjunction any order", expr.And(expr.Word("a"), expr.Word("b")), "b a a b", []string{"b a", "a b"}},
		{"conjunction optional element", expr.And(expr.Word("a"), expr.Optional(expr.Word("c"))), "a c", []string{"a", "a c"}},
		{"bounded repetition", expr.Repeat(2, 2, expr.Any(expr.NumToken)), "1 2 3", []string{"1 2", "2 3"}},
		{"token attributes", &expr.Token{Category: expr.WordToken, Case: token.TitleCase}, "paris Paris PARIS", []string{"Paris"}},
		{"prefix", expr.Prefix("inter"), "internet intern in", []string{"internet", "intern"}},
		{"span", expr.Span(expr.Word("from"), expr.Word("to")), "from a b to", []string{"from a b to"}},
		{"bounded span too long", expr.Within(0, 1, expr.Word("from"), expr.Word("to")), "from a b to", nil},
		{"bounded span", expr.Within(1, 2, expr.Word("from"), expr.Word("to")), "from to from a to", []string{"from a to"}},
		{"word span counts words only", expr.Words(0, 1, expr.Word("a"), expr.Word("b")), "a , x ; b", []string{"a , x ; b"}},
		{"word span over bound", expr.Words(0, 1, expr.Word("a"), expr.Word("b")), "a x y b", nil},
		{"end token", expr.Seq(expr.Word("stop"), expr.Any(expr.EndToken)), "stop go stop", []string{"stop"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := compile(t, expr.NewPattern("P", tt.pattern))
			got, s := search(t, prog, tt.text, quietConfig())
			if diff := cmp.Diff(texts("P", tt.want...), got); diff != "" {
				t.Errorf("matches mismatch (-want +got):\n%s", diff)
			}
			assert.Zero(t, s.LiveRoots())
		})
	}
}

func TestShortestSpanWins(t *testing.T) {
	tests := []struct {
		name  string
		right expr.Expression
		text  string
		want  []string
	}{
		// the gap-1 member completes first and waits for the gap-0 one
		{"longer completes first", expr.Var(expr.Seq(expr.Word("b"), expr.Word("c"), expr.Word("d")), expr.Word("c")), "a b c d", []string{"a b c d"}},
		{"shorter completes first", expr.Var(expr.Word("b"), expr.Word("c")), "a b c", []string{"a b"}},
		{"shorter fails", expr.Var(expr.Seq(expr.Word("b"), expr.Word("x")), expr.Word("c")), "a b c", []string{"a b c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := compile(t, expr.NewPattern("P", expr.Span(expr.Word("a"), tt.right)))
			got, _ := search(t, prog, tt.text, quietConfig())
			if diff := cmp.Diff(texts("P", tt.want...), got); diff != "" {
				t.Errorf("matches mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSpanSuppression(t *testing.T) {
	prog := compile(t, expr.NewPattern("P", expr.Span(expr.Word("a"), expr.Word("b"))))

	got, _ := search(t, prog, "a a b", quietConfig())
	assert.Equal(t, texts("P", "a a b"), got)

	got, _ = search(t, prog, "a a b", quietConfig().WithSpanSuppression(false))
	assert.Equal(t, texts("P", "a a b", "a b"), got)
}

func TestSpanGapCapture(t *testing.T) {
	span := expr.Span(expr.Word("from"), expr.Word("to")).Capture("Gap")
	prog := compile(t, expr.NewPattern("P", span))
	src := token.NewText("from here and there to")

	s, err := NewSession(prog, src, quietConfig())
	require.NoError(t, err)
	require.NoError(t, s.Run())
	m, ok := s.Next()
	require.True(t, ok)
	gap, ok := m.Latest("Gap")
	require.True(t, ok)
	assert.True(t, gap.Gap())
	assert.Equal(t, "here and there", src.GetText(gap.Start, gap.End))

	// an empty gap captures nothing
	s, err = NewSession(prog, token.NewText("from to"), quietConfig())
	require.NoError(t, err)
	require.NoError(t, s.Run())
	m, ok = s.Next()
	require.True(t, ok)
	assert.Empty(t, m.Extractions)
}

func TestExceptions(t *testing.T) {
	tests := []struct {
		name    string
		pattern expr.Expression
		text    string
		want    []string
	}{
		{"single token veto", expr.Var(expr.Any(expr.WordToken)).Except(expr.Word("london")), "paris london rome", []string{"paris", "rome"}},
		{"multi token veto", expr.Var(expr.Seq(expr.Any(expr.WordToken), expr.Any(expr.WordToken))).Except(expr.Seq(expr.Word("new"), expr.Word("york"))), "new york city", []string{"york city"}},
		{"different end does not veto", expr.Var(expr.Word("new")).Except(expr.Seq(expr.Word("new"), expr.Word("york"))), "new york", []string{"new"}},
		{"veto inside sequence", expr.Seq(expr.Word("in"), expr.Var(expr.Any(expr.WordToken)).Except(expr.Word("the"))), "in the in town", []string{"in town"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := compile(t, expr.NewPattern("P", tt.pattern))
			got, s := search(t, prog, tt.text, quietConfig())
			if diff := cmp.Diff(texts("P", tt.want...), got); diff != "" {
				t.Errorf("matches mismatch (-want +got):\n%s", diff)
			}
			assert.Empty(t, s.families)
		})
	}
}

func TestExceptionWithoutTargetsRejectsItself(t *testing.T) {
	prog := compile(t, expr.NewPattern("P",
		expr.Var(expr.Word("new")).Except(expr.Seq(expr.Word("new"), expr.Word("york")))))
	src := token.NewText("new york")
	s, err := NewSession(prog, src, quietConfig())
	require.NoError(t, err)

	// Start, "new"
	require.NoError(t, s.Feed(src.At(0)))
	require.NoError(t, s.Feed(src.At(1)))

	// the target was released, so the exception copy still waiting for
	// "york" has nothing left to veto
	assert.Empty(t, s.families)
	assert.Zero(t, s.LiveRoots())
	assert.Equal(t, 1, s.Stats().RootsRejected)
	m, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "new", src.GetText(m.Start, m.End))
}

func TestExceptionRejectedWithItsTarget(t *testing.T) {
	sentence := expr.Helper("Sentence", expr.Seq(expr.Word("a"), expr.Word("b"), expr.Word("c"), expr.Word("d")))
	guarded := expr.Var(expr.Seq(expr.Word("a"), expr.Word("b"))).
		Except(expr.In(expr.Seq(expr.Word("a"), expr.Word("b")), expr.Ref("Sentence")))
	prog := compile(t, expr.NewPattern("P", expr.Seq(guarded, expr.Word("x"))), sentence)
	src := token.NewText("a b z")
	s, err := NewSession(prog, src, quietConfig())
	require.NoError(t, err)

	for i := range 4 {
		require.NoError(t, s.Feed(src.At(i)))
	}
	// the exception completed but waits for Sentence
	assert.Len(t, s.families, 1)

	// "z" rejects the target and Sentence, so the copy has nothing to veto
	require.NoError(t, s.Feed(src.At(4)))
	require.NoError(t, s.Feed(src.At(5)))
	assert.Empty(t, s.families)
	assert.Zero(t, s.LiveRoots())

	require.NoError(t, s.Finish())
	_, ok := s.Next()
	assert.False(t, ok)
}

func TestRepetitionSuppression(t *testing.T) {
	inner := expr.Repeat(1, expr.Unbounded, expr.Word("a"))
	prog := compile(t, expr.NewPattern("P",
		expr.Repeat(1, expr.Unbounded, expr.Var(inner, expr.Word("b")))))

	got, s := search(t, prog, "S A A A", quietConfig())
	assert.Equal(t, texts("P", "A", "A A", "A", "A A A", "A A", "A"), got)
	assert.LessOrEqual(t, s.Stats().MaxLiveWaiters, 3)

	// population grows linearly with the number of repeated tokens
	_, s = search(t, prog, "S A A A A A A A A A A A A", quietConfig())
	assert.LessOrEqual(t, s.Stats().MaxLiveWaiters, 12)
}

func TestNestedRepetitionCopies(t *testing.T) {
	tests := []struct {
		name string
		body expr.Expression
		text string
		want []string
	}{
		{
			"inner minimum above outer",
			expr.Repeat(1, expr.Unbounded, expr.Var(
				expr.Repeat(2, expr.Unbounded, expr.Word("a")), expr.Word("b"))),
			"a a b",
			[]string{"a a", "a a b", "b"},
		},
		{
			"inner after the body start",
			expr.Repeat(1, expr.Unbounded, expr.Seq(
				expr.Word("x"), expr.Repeat(1, expr.Unbounded, expr.Word("a")))),
			"x a x a",
			[]string{"x a", "x a x a", "x a"},
		},
		{
			// the inner copy retries a; the outer one would only add b
			"bounded range at the body start",
			expr.Repeat(1, 3, expr.Var(
				expr.Repeat(1, 3, expr.Word("a")), expr.Word("b"))),
			"a b",
			[]string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := compile(t, expr.NewPattern("P", tt.body))
			got, s := search(t, prog, tt.text, quietConfig())
			assert.ElementsMatch(t, texts("P", tt.want...), got)
			assert.Zero(t, s.LiveRoots())
		})
	}
}

func TestFieldReference(t *testing.T) {
	pattern := func() *expr.Pattern {
		return expr.NewPattern("P", expr.Seq(
			expr.Extract("X", expr.Any(expr.AlphaToken)),
			expr.Word("is"),
			expr.FieldRef("X"),
		))
	}

	got, _ := search(t, compile(t, pattern()), "Paris is Paris", quietConfig())
	assert.Equal(t, texts("P", "Paris is Paris"), got)

	got, _ = search(t, compile(t, pattern()), "Paris is paris", quietConfig())
	assert.Empty(t, got)

	got, _ = search(t, compile(t, pattern()), "Paris is paris", quietConfig().WithFoldedFieldReferences(true))
	assert.Equal(t, texts("P", "Paris is paris"), got)
}

func TestFieldReferenceRejectsAtReference(t *testing.T) {
	prog := compile(t, expr.NewPattern("P", expr.Seq(
		expr.Extract("X", expr.Any(expr.AlphaToken)),
		expr.Word("is"),
		expr.FieldRef("X"),
	)))
	src := token.NewText("Paris is London")
	s, err := NewSession(prog, src, quietConfig())
	require.NoError(t, err)

	// Start, "Paris", " ", "is", " "
	for i := range 5 {
		require.NoError(t, s.Feed(src.At(i)))
	}
	assert.Zero(t, s.Stats().RootsRejected)
	assert.Equal(t, 2, s.LiveRoots())

	require.NoError(t, s.Feed(src.At(5)))
	assert.Equal(t, 2, s.Stats().RootsRejected)
}

func TestMultiWordFieldReference(t *testing.T) {
	prog := compile(t, expr.NewPattern("P", expr.Seq(
		expr.Extract("X", expr.Seq(expr.Word("new"), expr.Word("york"))),
		expr.Span(expr.Word("and"), expr.FieldRef("X")),
	)))
	got, _ := search(t, prog, "New York and back to New York", quietConfig())
	assert.Equal(t, texts("P", "New York and back to New York"), got)
}

func TestMissingExtraction(t *testing.T) {
	prog := compile(t, expr.NewPattern("P", expr.Seq(
		expr.Optional(expr.Extract("X", expr.Word("a"))),
		expr.Word("b"),
		expr.FieldRef("X"),
	)))
	s, err := NewSession(prog, token.NewText("b b"), quietConfig())
	require.NoError(t, err)

	err = s.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingExtraction)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "X", fe.Field)
	assert.Equal(t, "P", fe.Pattern)
	assert.Equal(t, err, s.Err())
}

func TestPatternReference(t *testing.T) {
	city := func() *expr.Pattern {
		return expr.Helper("City", expr.Var(expr.Word("paris"), expr.Seq(expr.Word("new"), expr.Word("york"))))
	}
	tests := []struct {
		name    string
		pattern expr.Expression
		text    string
		want    []string
	}{
		{"inside sequence", expr.Seq(expr.Word("to"), expr.Ref("City")), "to new york, to paris, to rome", []string{"to new york", "to paris"}},
		{"at pattern start", expr.Seq(expr.Ref("City"), expr.Word("trip")), "new york trip paris trip", []string{"new york trip", "paris trip"}},
		{"alone", expr.Ref("City"), "paris", []string{"paris"}},
		{"in span", expr.Span(expr.Ref("City"), expr.Ref("City")), "paris to new york", []string{"paris to new york"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := compile(t, expr.NewPattern("P", tt.pattern), city())
			got, s := search(t, prog, tt.text, quietConfig())
			if diff := cmp.Diff(texts("P", tt.want...), got); diff != "" {
				t.Errorf("matches mismatch (-want +got):\n%s", diff)
			}
			assert.Zero(t, s.LiveRoots())
			assert.Empty(t, s.listeners)
		})
	}
}

func TestConditions(t *testing.T) {
	city := func() *expr.Pattern {
		return expr.Helper("City", expr.Seq(expr.Word("new"), expr.Word("york")))
	}
	body := func() expr.Expression {
		return expr.Seq(expr.Word("the"), expr.Any(expr.WordToken), expr.Word("end"))
	}
	tests := []struct {
		name    string
		pattern expr.Expression
		text    string
		want    []string
	}{
		{"inside", expr.In(expr.Word("york"), expr.Ref("City")), "york new york", []string{"york"}},
		{"inside absent", expr.In(expr.Word("york"), expr.Ref("City")), "york", nil},
		{"outside", expr.Out(expr.Word("york"), expr.Ref("City")), "york new york", []string{"york"}},
		{"having", expr.Has(body(), expr.Word("cat")), "the cat end", []string{"the cat end"}},
		{"having absent", expr.Has(body(), expr.Word("cat")), "the dog end", nil},
		{"having expression operand", expr.Has(body(), expr.Seq(expr.Word("cat"), expr.Word("end"))), "the cat end", []string{"the cat end"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := compile(t, expr.NewPattern("P", tt.pattern), city())
			src := token.NewText(tt.text)
			s, err := NewSession(prog, src, quietConfig())
			require.NoError(t, err)
			require.NoError(t, s.Run())

			var got []found
			for m, ok := s.Next(); ok; m, ok = s.Next() {
				got = append(got, found{Pattern: m.Pattern.Name, Text: src.GetText(m.Start, m.End)})
			}
			if diff := cmp.Diff(texts("P", tt.want...), got); diff != "" {
				t.Errorf("matches mismatch (-want +got):\n%s", diff)
			}
			assert.Empty(t, s.conditions)
		})
	}
}

func TestConditionsAwaitOperand(t *testing.T) {
	york := func() expr.Expression { return expr.Word("york") }
	tests := []struct {
		name    string
		pattern expr.Expression
		text    string
		want    []string
	}{
		{"outside, operand fails", expr.Out(york(), expr.Ref("City")), "new york town", []string{"york"}},
		{"outside, operand completes", expr.Out(york(), expr.Ref("City")), "new york city", nil},
		{"inside, operand fails", expr.In(york(), expr.Ref("City")), "new york town", nil},
		{"inside, operand completes", expr.In(york(), expr.Ref("City")), "new york city", []string{"york"}},
		{"having pending operand, fails", expr.Has(expr.Seq(expr.Word("new"), york()), expr.Ref("Town")), "new york town", nil},
		{"having pending operand, completes", expr.Has(expr.Seq(expr.Word("new"), york()), expr.Ref("Town")), "new york city", []string{"new york"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := compile(t,
				expr.NewPattern("P", tt.pattern),
				expr.Helper("City", expr.Seq(expr.Word("new"), york(), expr.Word("city"))),
				// completes on york but stays pending until City settles
				expr.Helper("Town", expr.In(york(), expr.Ref("City"))),
			)
			got, s := search(t, prog, tt.text, quietConfig())
			if diff := cmp.Diff(texts("P", tt.want...), got); diff != "" {
				t.Errorf("matches mismatch (-want +got):\n%s", diff)
			}
			assert.Empty(t, s.conditions)
			assert.Zero(t, s.LiveRoots())
		})
	}
}

func TestInsideMatchPositions(t *testing.T) {
	prog := compile(t,
		expr.NewPattern("P", expr.In(expr.Word("york"), expr.Ref("City"))),
		expr.Helper("City", expr.Seq(expr.Word("new"), expr.Word("york"))),
	)
	src := token.NewText("york new york")
	s, err := NewSession(prog, src, quietConfig())
	require.NoError(t, err)
	require.NoError(t, s.Run())

	m, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, 5, m.Start.Number)
	assert.Equal(t, 5, m.End.Number)
}

func TestExtractions(t *testing.T) {
	prog := compile(t, expr.NewPattern("Trip", expr.Seq(
		expr.Word("from"),
		expr.Extract("From", expr.Any(expr.AlphaToken)),
		expr.Word("to"),
		expr.Extract("To", expr.Repeat(1, 2, expr.Any(expr.AlphaToken))),
	)))
	src := token.NewText("from Paris to New York")
	s, err := NewSession(prog, src, quietConfig())
	require.NoError(t, err)
	require.NoError(t, s.Run())

	var got [][]string
	for m, ok := s.Next(); ok; m, ok = s.Next() {
		var fields []string
		for _, x := range m.Extractions {
			fields = append(fields, x.Field.Name+"="+src.GetText(x.Start, x.End))
		}
		got = append(got, fields)
	}
	want := [][]string{
		{"From=Paris", "To=New"},
		{"From=Paris", "To=New York"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("extractions mismatch (-want +got):\n%s", diff)
	}
}

func TestHelperPatternsAreNotReported(t *testing.T) {
	prog := compile(t,
		expr.NewPattern("P", expr.Seq(expr.Word("to"), expr.Ref("City"))),
		expr.Helper("City", expr.Word("paris")),
	)
	got, _ := search(t, prog, "to paris", quietConfig())
	assert.Equal(t, texts("P", "to paris"), got)
}

func TestCandidateLimit(t *testing.T) {
	prog := compile(t, expr.NewPattern("P", expr.Span(expr.Word("a"), expr.Word("b"))))
	s, err := NewSession(prog, token.NewText("a a a b"), quietConfig().WithSpanSuppression(false).WithMaxLiveRoots(1))
	require.NoError(t, err)

	err = s.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCandidateLimit)
}

func TestSessionLifecycle(t *testing.T) {
	prog := compile(t, expr.NewPattern("P", expr.Word("a")))
	src := token.NewText("a")

	_, err := NewSession(nil, src, quietConfig())
	assert.ErrorIs(t, err, ErrUnlinked)

	_, err = NewSession(prog, src, quietConfig().WithCompactRatio(0))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := NewSession(prog, src, quietConfig())
	require.NoError(t, err)
	require.NoError(t, s.Run())
	require.NoError(t, s.Finish())
	assert.ErrorIs(t, s.Feed(src.At(0)), ErrFinished)
	assert.Equal(t, src.Len(), s.Stats().Tokens)
	assert.Equal(t, 1, s.Stats().Matches)
}

func TestCompileUnlinked(t *testing.T) {
	_, err := Compile(expr.NewPackage(expr.NewPattern("P", expr.Word("a"))))
	assert.ErrorIs(t, err, ErrUnlinked)
}
