package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/subcalc/internal/diagnostic"
	"github.com/roach88/subcalc/internal/term"
)

// LookupErrorCode categorizes justification lookup failures.
type LookupErrorCode string

const (
	// ErrCodeUnresolved indicates a term needed by the lookup is unresolved.
	ErrCodeUnresolved LookupErrorCode = "UNRESOLVED"

	// ErrCodeMightNotExist indicates the limit was hit somewhere in the
	// search, so a justification may exist at a higher limit.
	ErrCodeMightNotExist LookupErrorCode = "MIGHT_NOT_EXIST"

	// ErrCodeDeadEnd indicates no justification path exists at this limit.
	ErrCodeDeadEnd LookupErrorCode = "DEAD_END"
)

// LookupInvariantError reports that a statement could not be justified.
type LookupInvariantError struct {
	Code      LookupErrorCode
	Statement term.ID

	// Exhausted is set when the failure persisted at the hard cap.
	Exhausted bool

	// Cause holds the underlying transient error for ErrCodeUnresolved.
	Cause error
}

func (e *LookupInvariantError) Error() string {
	msg := fmt.Sprintf("%s: statement %d", e.Code, e.Statement)
	if e.Exhausted {
		msg += " (limit exhausted)"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LookupInvariantError) Unwrap() error { return e.Cause }

// IsDeadEnd returns true if err is a dead-end lookup failure.
// Uses errors.As to handle wrapped errors.
func IsDeadEnd(err error) bool {
	var le *LookupInvariantError
	if errors.As(err, &le) {
		return le.Code == ErrCodeDeadEnd
	}
	return false
}

// IsMightNotExist returns true if err says a higher limit might help.
func IsMightNotExist(err error) bool {
	var le *LookupInvariantError
	if errors.As(err, &le) {
		return le.Code == ErrCodeMightNotExist
	}
	return false
}

// IsUnresolvedLookup returns true if the lookup failed on an unresolved term.
func IsUnresolvedLookup(err error) bool {
	var le *LookupInvariantError
	if errors.As(err, &le) {
		return le.Code == ErrCodeUnresolved
	}
	return false
}

func newDeadEnd(statement term.ID) *LookupInvariantError {
	return &LookupInvariantError{Code: ErrCodeDeadEnd, Statement: statement}
}

func newMightNotExist(statement term.ID) *LookupInvariantError {
	return &LookupInvariantError{Code: ErrCodeMightNotExist, Statement: statement}
}

func newUnresolvedLookup(statement term.ID, cause error) *LookupInvariantError {
	return &LookupInvariantError{Code: ErrCodeUnresolved, Statement: statement, Cause: cause}
}

// SubstitutionError reports an illegal checked substitution. It is fatal
// and never retried.
type SubstitutionError struct {
	Target  *term.Variable
	Value   term.ID
	Message string
}

func (e *SubstitutionError) Error() string {
	return fmt.Sprintf("illegal substitution of item %d for %s: %s", e.Value, e.Target, e.Message)
}

// IsSubstitutionError returns true if err is an illegal substitution.
func IsSubstitutionError(err error) bool {
	var se *SubstitutionError
	return errors.As(err, &se)
}

// UnjustifiedError is returned by JustifyAll when required invariants could
// not be connected to the root.
type UnjustifiedError struct {
	Diagnostics []diagnostic.Diagnostic
}

func (e *UnjustifiedError) Error() string {
	var errs []string
	for _, d := range e.Diagnostics {
		if d.Level == diagnostic.LevelError {
			errs = append(errs, d.Message)
		}
	}
	return fmt.Sprintf("%d unjustified invariant(s): %s", len(errs), strings.Join(errs, "; "))
}

// IsUnjustified returns true if err is an UnjustifiedError.
func IsUnjustified(err error) bool {
	var ue *UnjustifiedError
	return errors.As(err, &ue)
}
