package expr

import (
	"errors"
	"fmt"
)

// Link errors
var (
	// ErrDuplicatePattern indicates two patterns share a name
	ErrDuplicatePattern = errors.New("duplicate pattern name")

	// ErrUndefinedPattern indicates a reference to an unknown pattern
	ErrUndefinedPattern = errors.New("undefined pattern")

	// ErrUndefinedField indicates a field reference without an extraction of that field
	ErrUndefinedField = errors.New("undefined field")

	// ErrEmptyMatch indicates an expression that must consume tokens can match nothing
	ErrEmptyMatch = errors.New("expression can match empty text")

	// ErrLeftRecursion indicates a pattern that can start with a reference to itself
	ErrLeftRecursion = errors.New("left-recursive pattern reference")

	// ErrSharedNode indicates one node instance was placed at two tree positions
	ErrSharedNode = errors.New("expression node used more than once")

	// ErrInvalidBounds indicates inconsistent repetition or span bounds
	ErrInvalidBounds = errors.New("invalid bounds")

	// ErrEmptyVariation indicates a variation or conjunction without elements
	ErrEmptyVariation = errors.New("no elements")
)

// LinkError reports why a package could not be linked.
type LinkError struct {
	Pattern string
	Expr    string
	Err     error
}

// Error implements the error interface
func (e *LinkError) Error() string {
	if e.Expr != "" {
		return fmt.Sprintf("pattern %q: %v: %s", e.Pattern, e.Err, e.Expr)
	}
	return fmt.Sprintf("pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the underlying sentinel error
func (e *LinkError) Unwrap() error {
	return e.Err
}
