package engine

import (
	"errors"
	"fmt"
)

// Session errors
var (
	// ErrInvalidConfig indicates invalid configuration was provided
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrCandidateLimit indicates the session exceeded Config.MaxLiveRoots
	ErrCandidateLimit = errors.New("live candidate limit exceeded")

	// ErrMissingExtraction indicates a field reference to a field that was
	// never captured on the current match path
	ErrMissingExtraction = errors.New("field referenced before extraction")

	// ErrUnexpectedPosition indicates a child reported a match from a slot
	// its parent does not recognize
	ErrUnexpectedPosition = errors.New("unexpected position in parent")

	// ErrNotBranchable indicates Clone on a candidate kind that never branches
	ErrNotBranchable = errors.New("candidate kind cannot be cloned")

	// ErrNotCompound indicates a child match reported to a leaf candidate
	ErrNotCompound = errors.New("candidate kind has no children")

	// ErrFinished indicates Feed after Finish
	ErrFinished = errors.New("session already finished")

	// ErrUnlinked indicates a package that was not linked before compiling
	ErrUnlinked = errors.New("package is not linked")
)

// ConfigError represents an invalid configuration parameter.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "engine: invalid config: " + e.Field + ": " + e.Message
}

// Unwrap returns ErrInvalidConfig
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// FieldError reports a field reference evaluated without a captured value.
type FieldError struct {
	Pattern string
	Field   string
	Token   int
}

// Error implements the error interface
func (e *FieldError) Error() string {
	return fmt.Sprintf("pattern %q: field %q referenced at token %d: %v",
		e.Pattern, e.Field, e.Token, ErrMissingExtraction)
}

// Unwrap returns ErrMissingExtraction
func (e *FieldError) Unwrap() error {
	return ErrMissingExtraction
}

// InvariantError signals a defect in the expression tree or engine wiring.
// It is raised with panic and is never part of normal matching.
type InvariantError struct {
	Candidate string
	Err       error
}

// Error implements the error interface
func (e *InvariantError) Error() string {
	return fmt.Sprintf("engine invariant violated by %s: %v", e.Candidate, e.Err)
}

// Unwrap returns the underlying sentinel error
func (e *InvariantError) Unwrap() error {
	return e.Err
}

func invariant(c candidate, err error) *InvariantError {
	return &InvariantError{Candidate: c.base().expr.String(), Err: err}
}
