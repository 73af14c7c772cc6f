package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/subcalc/internal/diagnostic"
	"github.com/roach88/subcalc/internal/engine"
	"github.com/roach88/subcalc/internal/term"
)

// identifier is a name looked up through the scope chain.
type identifier struct {
	name string
}

func (r identifier) String() string { return r.name }

// languageItemRef names a built-in term.
type languageItemRef struct {
	name string
}

func (r languageItemRef) String() string { return "language item " + r.name }

// member selects a labeled value of a struct.
type member struct {
	of    term.ID
	label string
}

func (r member) String() string { return fmt.Sprintf("#%d.%s", r.of, r.label) }

type namedArg struct {
	name  string
	value term.ID
}

// substitution is a call written with named and positional arguments.
// Named arguments are variables looked up in the scope of the base;
// positional ones bind the remaining dependencies of the base in order.
type substitution struct {
	base  term.ID
	args  []term.ID
	named []namedArg
}

func (r substitution) String() string {
	parts := make([]string, 0, len(r.args)+len(r.named))
	for _, a := range r.args {
		parts = append(parts, fmt.Sprintf("#%d", a))
	}
	for _, a := range r.named {
		parts = append(parts, fmt.Sprintf("%s IS #%d", a.name, a.value))
	}
	return fmt.Sprintf("#%d[%s]", r.base, strings.Join(parts, ", "))
}

// ResolveAll resolves every Unresolved item in the engine's store.
//
// Items are retried pass after pass while any pass makes progress, so the
// order of definitions in the source does not matter. After each pass,
// alias cycles are marked recursive (see AnalyzeAliases).
//
// Returned diagnostics:
//   - E201 for items that could never be resolved
//   - E204 for illegal substitutions
//   - W101 for alias cycles
func ResolveAll(e *engine.Engine) []diagnostic.Diagnostic {
	r := &resolver{
		e:       e,
		store:   e.Store(),
		logger:  e.Logger(),
		failed:  make(map[term.ID]bool),
		lastErr: make(map[term.ID]error),
	}

	for pass := 1; ; pass++ {
		resolved := r.pass()
		r.diags = append(r.diags, AnalyzeAliases(r.store)...)
		r.logger.Debug("resolve pass",
			slog.Int("pass", pass),
			slog.Int("resolved", resolved),
			slog.Int("failed", len(r.failed)),
		)
		if resolved == 0 {
			break
		}
	}

	for i := range r.store.Len() {
		id := term.ID(i)
		unresolved, ok := r.store.Definition(id).(term.Unresolved)
		if !ok || r.failed[id] {
			continue
		}
		msg := fmt.Sprintf("%s could not be resolved: %s", r.store.Label(id), unresolved.Resolvable)
		if err := r.lastErr[id]; err != nil {
			msg += " (" + err.Error() + ")"
		}
		r.report(diagnostic.CodeUnresolved, id, msg)
	}
	return r.diags
}

type resolver struct {
	e      *engine.Engine
	store  *term.Store
	logger *slog.Logger

	failed  map[term.ID]bool
	lastErr map[term.ID]error
	diags   []diagnostic.Diagnostic
}

// pass tries every pending item once and returns how many were resolved.
func (r *resolver) pass() int {
	resolved := 0
	// Resolving may append items; those are never Unresolved.
	n := r.store.Len()
	for i := range n {
		id := term.ID(i)
		unresolved, ok := r.store.Definition(id).(term.Unresolved)
		if !ok || r.failed[id] {
			continue
		}

		def, err := r.resolve(id, unresolved.Resolvable)
		if err != nil {
			var se *engine.SubstitutionError
			switch {
			case errors.As(err, &se):
				r.failed[id] = true
				r.report(diagnostic.CodeIllegalSubstitution, id, err.Error())
			case IsResolveError(err):
				r.failed[id] = true
				r.report(diagnostic.CodeUnresolved, id, err.Error())
			default:
				r.lastErr[id] = err
			}
			continue
		}
		if err := r.store.Resolve(id, def); err != nil {
			r.lastErr[id] = err
			continue
		}
		delete(r.lastErr, id)
		resolved++
	}
	return resolved
}

func (r *resolver) report(code string, id term.ID, msg string) {
	r.diags = append(r.diags, diagnostic.New(diagnostic.LevelError, code, msg, id).WithPos(r.store.Pos(id)))
}

func (r *resolver) resolve(id term.ID, res term.Resolvable) (term.Definition, error) {
	switch res := res.(type) {
	case identifier:
		target, ok := term.Lookup(r.store, r.store.Scope(id), res.name)
		if !ok {
			return nil, &ResolveError{Item: id, Message: fmt.Sprintf("cannot find what %q refers to", res.name)}
		}
		return term.Other{Target: target}, nil

	case languageItemRef:
		target, ok := r.store.LanguageItem(res.name)
		if !ok {
			return nil, &ResolveError{Item: id, Message: fmt.Sprintf("language item %q is not defined", res.name)}
		}
		return term.Other{Target: target}, nil

	case member:
		return r.member(id, res)

	case substitution:
		return r.substitution(id, res)

	default:
		return nil, &ResolveError{Item: id, Message: fmt.Sprintf("cannot resolve %T", res)}
	}
}

func (r *resolver) member(id term.ID, res member) (term.Definition, error) {
	of, def, err := r.store.Resolved(res.of)
	if err != nil {
		return nil, err
	}
	switch def.(type) {
	case term.Struct, term.EmptyStruct:
	default:
		return nil, &ResolveError{
			Item:    id,
			Message: fmt.Sprintf("%s is a %s, not a struct", r.store.Label(of), def.Kind()),
		}
	}
	for _, f := range term.StructFields(r.store, of) {
		if f.Label == res.label {
			return term.Other{Target: f.Value}, nil
		}
	}
	return nil, &ResolveError{
		Item:    id,
		Message: fmt.Sprintf("%s has no member %q", r.store.Label(of), res.label),
	}
}

func (r *resolver) substitution(id term.ID, res substitution) (term.Definition, error) {
	base, _, err := r.store.Resolved(res.base)
	if err != nil {
		return nil, err
	}
	remaining := r.e.Dependencies(base)
	if err := remaining.Err(); err != nil {
		return nil, err
	}
	total := remaining.Len()

	var subs term.Substitutions
	for _, arg := range res.named {
		target, ok := term.Lookup(r.store, r.store.Scope(base), arg.name)
		if !ok {
			return nil, &ResolveError{
				Item:    id,
				Message: fmt.Sprintf("%q does not refer to a variable in the scope of %s", arg.name, r.store.Label(base)),
			}
		}
		_, def, err := r.store.Resolved(target)
		if err != nil {
			return nil, err
		}
		ref, ok := def.(term.VariableRef)
		if !ok {
			return nil, &ResolveError{
				Item:    id,
				Message: fmt.Sprintf("%s is used as a variable but is a %s", arg.name, def.Kind()),
			}
		}
		v := ref.Var
		if !subs.Insert(v, arg.value) {
			return nil, &ResolveError{Item: id, Message: fmt.Sprintf("%s is substituted twice", arg.name)}
		}
		remaining.Remove(v)
	}

	for _, arg := range res.args {
		dep, ok := remaining.PopFront()
		if !ok {
			return nil, &ResolveError{
				Item:    id,
				Message: fmt.Sprintf("too many arguments: %s only has %d dependencies", r.store.Label(base), total),
			}
		}
		subs.Insert(dep.Var, arg)
	}

	subs, err = r.e.ResolveDependencySubstitutions(subs)
	if err != nil {
		return nil, err
	}
	result, err := r.e.Substitute(base, subs)
	if err != nil {
		return nil, err
	}
	return term.Other{Target: result}, nil
}
