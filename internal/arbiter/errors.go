package arbiter

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches any *ValidationError via errors.Is.
	ErrValidation = errors.New("invalid arbitration input")
	// ErrComputation matches any *ComputationError via errors.Is.
	ErrComputation = errors.New("non-finite arbitration result")
)

// ValidationError reports malformed input. Index is -1 when the problem is not
// tied to a single lane.
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid %s at lane %d: %s", e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ComputationError reports arithmetic that produced a non-finite value. Valid
// input never reaches it.
type ComputationError struct {
	Op    string
	Index int
	Value float64
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s for lane %d is not finite (%v)", e.Op, e.Index, e.Value)
}

func (e *ComputationError) Is(target error) bool { return target == ErrComputation }

func invalid(field string, index int, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Index: index, Reason: fmt.Sprintf(format, args...)}
}
