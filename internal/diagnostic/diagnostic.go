// Package diagnostic defines the leveled messages produced by the resolver
// and the justification search.
//
// The core fills in which terms are implicated; rendering positions and term
// text is left to the caller.
package diagnostic

import (
	"fmt"
	"slices"

	"github.com/roach88/subcalc/internal/term"
)

// Level is the severity of a diagnostic.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Diagnostic codes.
const (
	// W101: an alias cycle was found and marked recursive.
	CodeRecursiveAlias = "W101"

	// E201: an item is still unresolved after the resolution fixpoint.
	CodeUnresolved = "E201"

	// E202: a required invariant set could not be connected to the root.
	CodeUnjustified = "E202"

	// E203: a requirement is justified only by a cycle of sets that never
	// reaches the root.
	CodeCircular = "E203"

	// E204: an illegal substitution.
	CodeIllegalSubstitution = "E204"

	// I301: the limit was hit while searching for a justification.
	CodeMightNotExist = "I301"
)

// Diagnostic is one leveled message.
type Diagnostic struct {
	Level   Level
	Code    string
	Message string
	Pos     term.Position

	// Terms lists the implicated items, most relevant first.
	Terms []term.ID
}

func (d Diagnostic) String() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: %s [%s] %s", d.Pos, d.Level, d.Code, d.Message)
	}
	return fmt.Sprintf("%s [%s] %s", d.Level, d.Code, d.Message)
}

// New creates a diagnostic implicating terms.
func New(level Level, code, message string, terms ...term.ID) Diagnostic {
	return Diagnostic{Level: level, Code: code, Message: message, Terms: terms}
}

// WithPos returns a copy of d positioned at pos.
func (d Diagnostic) WithPos(pos term.Position) Diagnostic {
	d.Pos = pos
	return d
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	return slices.ContainsFunc(diags, func(d Diagnostic) bool {
		return d.Level == LevelError
	})
}

// Count returns the number of diagnostics at level.
func Count(diags []Diagnostic, level Level) int {
	n := 0
	for _, d := range diags {
		if d.Level == level {
			n++
		}
	}
	return n
}
