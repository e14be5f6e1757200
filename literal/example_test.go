package literal_test

import (
	"fmt"

	"github.com/coregx/coresearch/expr"
	"github.com/coregx/coresearch/literal"
)

// Example demonstrates extracting the required literals of a pattern
func Example() {
	pat := expr.NewPattern("Capital", expr.Seq(
		expr.Var(expr.Word("Paris"), expr.Word("Rome")),
		expr.Word("is"),
		expr.Any(expr.WordToken),
	))
	if err := expr.NewPackage(pat).Link(); err != nil {
		panic(err)
	}

	seq := literal.New(literal.DefaultConfig()).Extract(pat)
	for i := 0; i < seq.Len(); i++ {
		fmt.Println(string(seq.Get(i).Bytes))
	}

	// Output:
	// is
}

// ExampleSeq_Minimize demonstrates removing redundant literals
func ExampleSeq_Minimize() {
	seq := literal.NewSeq(
		literal.NewLiteral([]byte("yorkshire"), true),
		literal.NewLiteral([]byte("york"), true),
	)

	fmt.Printf("Before minimize: %d literals\n", seq.Len())
	seq.Minimize()
	fmt.Printf("After minimize: %d literals\n", seq.Len())
	fmt.Printf("Remaining: %s\n", seq.Get(0).Bytes)

	// Output:
	// Before minimize: 2 literals
	// After minimize: 1 literals
	// Remaining: york
}
