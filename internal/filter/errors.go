package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction is returned for action keywords that are not recognised.
	ErrUnknownAction = errors.New("unknown action")
	// ErrUnknownCategory is returned when a rule names an undefined category.
	ErrUnknownCategory = errors.New("unknown warning category")
	// ErrTooManyFields is returned for rules with more than five fields.
	ErrTooManyFields = errors.New("too many fields (max 5)")
	// ErrBadLine is returned when the lineno field is not a non-negative integer.
	ErrBadLine = errors.New("invalid line number")
	// ErrBadPattern is returned when the message pattern does not compile.
	ErrBadPattern = errors.New("invalid message pattern")
)

// RuleError describes a filter specification that could not be compiled.
type RuleError struct {
	Spec   string
	Origin Origin
	Field  string
	Err    error
}

func (e *RuleError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s warning filter %q: %v", e.Origin, e.Spec, e.Err)
	}
	return fmt.Sprintf("invalid %s warning filter %q: %s: %v", e.Origin, e.Spec, e.Field, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }
