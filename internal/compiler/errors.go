package compiler

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/subcalc/internal/term"
)

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsCompileError returns true if err is a CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// ResolveError is a resolution failure that no later pass can fix, such as
// an identifier with no binding or a substitution with too many arguments.
type ResolveError struct {
	Item    term.ID
	Message string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("item %d: %s", e.Item, e.Message)
}

// IsResolveError returns true if err is a permanent resolution failure.
func IsResolveError(err error) bool {
	var re *ResolveError
	return errors.As(err, &re)
}

func position(p token.Pos) term.Position {
	if !p.IsValid() {
		return term.Position{}
	}
	return term.Position{File: p.Filename(), Line: p.Line(), Column: p.Column()}
}
