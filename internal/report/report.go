// Package report encodes query results and check outcomes as canonical
// values, so they can be printed as JSON, compared against golden files and
// identified by digest.
package report

import (
	"github.com/roach88/subcalc/internal/diagnostic"
	"github.com/roach88/subcalc/internal/engine"
	"github.com/roach88/subcalc/internal/term"
)

// Check statuses.
const (
	StatusOK          = "ok"
	StatusUnresolved  = "unresolved"
	StatusUnjustified = "unjustified"
)

// Check is the outcome of checking one program file.
type Check struct {
	RunID       string
	File        string
	Items       int
	Diagnostics []diagnostic.Diagnostic

	// Rendered holds the implicated terms of each diagnostic, rendered
	// while the store was available.
	Rendered [][]string
}

// NewCheck builds a check report, rendering the terms of diags from s.
func NewCheck(gen RunIDGenerator, file string, s *term.Store, items int, diags []diagnostic.Diagnostic) Check {
	rendered := make([][]string, len(diags))
	for i, d := range diags {
		rendered[i] = make([]string, len(d.Terms))
		for j, id := range d.Terms {
			rendered[i][j] = Render(s, id)
		}
	}
	return Check{
		RunID:       gen.Generate(),
		File:        file,
		Items:       items,
		Diagnostics: diags,
		Rendered:    rendered,
	}
}

// Status summarizes the diagnostics. Resolution failures take precedence
// over unjustified invariants.
func (c Check) Status() string {
	status := StatusOK
	for _, d := range c.Diagnostics {
		if d.Level != diagnostic.LevelError {
			continue
		}
		switch d.Code {
		case diagnostic.CodeUnresolved, diagnostic.CodeIllegalSubstitution:
			return StatusUnresolved
		default:
			status = StatusUnjustified
		}
	}
	return status
}

// Value encodes the report. The run ID is left out so that two runs over
// the same program have the same digest.
func (c Check) Value() Object {
	diags := make(Array, len(c.Diagnostics))
	for i, d := range c.Diagnostics {
		var terms []string
		if i < len(c.Rendered) {
			terms = c.Rendered[i]
		}
		diags[i] = diagnosticValue(d, terms)
	}
	return Object{
		"file":        String(c.File),
		"items":       Int(c.Items),
		"status":      String(c.Status()),
		"diagnostics": diags,
	}
}

// Digest identifies the report content.
func (c Check) Digest() (string, error) {
	return Digest(DomainCheck, c.Value())
}

func diagnosticValue(d diagnostic.Diagnostic, terms []string) Object {
	obj := Object{
		"level":   String(string(d.Level)),
		"code":    String(d.Code),
		"message": String(d.Message),
		"terms":   Strings(terms...),
	}
	if d.Pos.IsValid() {
		obj["pos"] = String(d.Pos.String())
	}
	return obj
}

// DiagnosticValue encodes d with its terms rendered from s.
func DiagnosticValue(s *term.Store, d diagnostic.Diagnostic) Object {
	terms := make([]string, len(d.Terms))
	for i, id := range d.Terms {
		terms[i] = Render(s, id)
	}
	return diagnosticValue(d, terms)
}

// SubstitutionsValue encodes subs in order as {target, value} pairs.
func SubstitutionsValue(s *term.Store, subs term.Substitutions) Array {
	arr := make(Array, len(subs))
	for i, b := range subs {
		arr[i] = Object{
			"target": String(s.Label(b.Target.Item)),
			"value":  String(Render(s, b.Value)),
		}
	}
	return arr
}

// EqualValue encodes an equality answer. Substitutions are only present on
// a yes.
func EqualValue(s *term.Store, eq engine.Equal) Object {
	obj := Object{"result": String(eq.Kind.String())}
	if eq.IsYes() {
		obj["left"] = SubstitutionsValue(s, eq.Left)
		obj["right"] = SubstitutionsValue(s, eq.Right)
	}
	return obj
}

// DependenciesValue encodes the ordered dependencies of a term.
func DependenciesValue(s *term.Store, deps engine.Dependencies) Array {
	all := deps.All()
	arr := make(Array, len(all))
	for i, dep := range all {
		arr[i] = Object{
			"var":   String(s.Label(dep.Var.Item)),
			"eager": Bool(dep.Eager),
		}
	}
	return arr
}

// JustificationsValue encodes the alternatives found for a statement, each
// as the contexts of the invariant sets it relies on.
func JustificationsValue(s *term.Store, js engine.Justifications) Array {
	arr := make(Array, len(js))
	for i, alt := range js {
		contexts := make([]string, len(alt))
		for j, set := range alt {
			contexts[j] = Render(s, set.Context)
		}
		arr[i] = Strings(contexts...)
	}
	return arr
}
