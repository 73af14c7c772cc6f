package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/subcalc/internal/term"
)

// Substitute applies subs to base and records, on the resulting
// substitution term, one justification requirement per invariant of each
// target.
//
// An empty mapping returns base itself. Chained substitutions are flattened
// into a single substitution term. A checked substitution may not bind a
// variable to a value that depends on a variable declared to depend on that
// same target; that is reported as a fatal SubstitutionError.
//
// Variables carry no declared type, so whether a value fits its target is
// decided by the recorded requirements, which JustifyAll must discharge.
func (e *Engine) Substitute(base term.ID, subs term.Substitutions) (term.ID, error) {
	return e.substitute(base, subs, true)
}

// SubstituteUnchecked applies subs to base without recording requirements.
// A variable that is a target is replaced by its value directly, and targets
// base does not depend on are dropped.
func (e *Engine) SubstituteUnchecked(base term.ID, subs term.Substitutions) (term.ID, error) {
	return e.substitute(base, subs, false)
}

func (e *Engine) substitute(base term.ID, subs term.Substitutions, checked bool) (term.ID, error) {
	if len(subs) == 0 {
		return base, nil
	}
	subs, err := e.prepareSubs(base, subs, checked)
	if err != nil {
		return base, err
	}
	if len(subs) == 0 {
		return base, nil
	}

	_, def, err := e.store.Resolved(base)
	if err != nil {
		return base, err
	}
	switch def := def.(type) {
	case term.VariableRef:
		if value, ok := subs.Get(def.Var); ok && !checked {
			return value, nil
		}
	case term.Substitution:
		return e.flatten(base, def, subs, checked)
	case term.WithDependencies:
		return e.substituteWithDependencies(base, def, subs, checked)
	}

	reqs, err := e.requirements(subs, checked)
	if err != nil {
		return base, err
	}
	return e.store.Push(term.Substitution{Base: base, Subs: subs, Requirements: reqs}, e.store.Scope(base)), nil
}

// prepareSubs drops identity bindings, checks legality for checked
// substitutions and, for unchecked ones, drops targets base does not depend
// on.
func (e *Engine) prepareSubs(base term.ID, subs term.Substitutions, checked bool) (term.Substitutions, error) {
	out := make(term.Substitutions, 0, len(subs))
	for _, b := range subs {
		value, err := e.store.Dereference(b.Value)
		if err == nil && value == b.Target.Item {
			continue
		}
		if checked {
			if err := e.checkLegal(b); err != nil {
				return nil, err
			}
		}
		out = append(out, b)
	}
	if checked {
		return out, nil
	}

	deps := e.Dependencies(base)
	if err := deps.Err(); err != nil {
		return nil, err
	}
	if len(deps.Skipped()) > 0 {
		return out, nil
	}
	return slices.DeleteFunc(out, func(b term.Binding) bool {
		return !deps.Contains(b.Target)
	}), nil
}

// checkLegal rejects bindings whose value depends on a variable that is
// itself declared over the target. Substituting such a value would make the
// target depend on itself.
func (e *Engine) checkLegal(b term.Binding) error {
	valueDeps := e.Dependencies(b.Value)
	if err := valueDeps.Err(); err != nil {
		return err
	}
	for _, w := range valueDeps.Vars() {
		for _, dep := range w.Dependencies {
			if v, ok := e.store.Variable(dep); ok && v == b.Target {
				return &SubstitutionError{
					Target:  b.Target,
					Value:   b.Value,
					Message: fmt.Sprintf("value depends on %s, which is declared over the target", w),
				}
			}
		}
	}
	return nil
}

// requirements computes one obligation per target invariant: the invariant
// with the bindings up to and including its own target applied.
func (e *Engine) requirements(subs term.Substitutions, checked bool) ([]term.ID, error) {
	if !checked {
		return nil, nil
	}
	var reqs []term.ID
	for i, b := range subs {
		for _, inv := range b.Target.Invariants {
			req, err := e.substitute(inv, subs[:i+1], false)
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

// flatten applies outer to an existing substitution term, producing one
// substitution over the inner base.
func (e *Engine) flatten(base term.ID, inner term.Substitution, outer term.Substitutions, checked bool) (term.ID, error) {
	merged := make(term.Substitutions, 0, len(inner.Subs)+len(outer))
	for _, b := range inner.Subs {
		value, err := e.substitute(b.Value, outer, false)
		if err != nil {
			return base, err
		}
		merged = append(merged, term.Binding{Target: b.Target, Value: value})
	}

	baseDeps := e.Dependencies(inner.Base)
	if err := baseDeps.Err(); err != nil {
		return base, err
	}
	for _, b := range outer {
		if !inner.Subs.Contains(b.Target) && baseDeps.Contains(b.Target) {
			merged = append(merged, b)
		}
	}

	var reqs []term.ID
	if checked {
		for _, r := range inner.Requirements {
			req, err := e.substitute(r, outer, false)
			if err != nil {
				return base, err
			}
			reqs = append(reqs, req)
		}
		outerReqs, err := e.requirements(outer, true)
		if err != nil {
			return base, err
		}
		reqs = append(reqs, outerReqs...)
	}
	if len(merged) == 0 && len(reqs) == 0 {
		return inner.Base, nil
	}
	return e.store.Push(term.Substitution{Base: inner.Base, Subs: merged, Requirements: reqs}, e.store.Scope(base)), nil
}

// substituteWithDependencies rewrites the dependency list of a wrapper. A
// replaced dependency gives way to the free variables of its value, so a
// ground value drops it entirely.
func (e *Engine) substituteWithDependencies(base term.ID, w term.WithDependencies, subs term.Substitutions, checked bool) (term.ID, error) {
	newBase, err := e.substitute(w.Base, subs, checked)
	if err != nil {
		return base, err
	}

	var deps []term.ID
	add := func(id term.ID) {
		if !slices.Contains(deps, id) {
			deps = append(deps, id)
		}
	}
	for _, dep := range w.Dependencies {
		v, isVar := e.store.Variable(dep)
		if !isVar {
			replaced, err := e.substitute(dep, subs, false)
			if err != nil {
				return base, err
			}
			add(replaced)
			continue
		}
		value, ok := subs.Get(v)
		if !ok {
			add(dep)
			continue
		}
		valueDeps := e.Dependencies(value)
		if err := valueDeps.Err(); err != nil {
			return base, err
		}
		for _, free := range valueDeps.Vars() {
			add(free.Item)
		}
	}
	return e.store.Push(term.WithDependencies{Base: newBase, Dependencies: deps}, e.store.Scope(base)), nil
}

// ResolveDependencySubstitutions lines each value's free variables up with
// the dependency arguments of the variable it is assigned to, so that
// fx[fx IS gy] becomes fx[fx IS gy[y IS x]].
func (e *Engine) ResolveDependencySubstitutions(subs term.Substitutions) (term.Substitutions, error) {
	out := subs.Clone()
	for i, b := range out {
		valueDeps := e.Dependencies(b.Value)
		available := valueDeps.Vars()
		next := 0

		var depSubs term.Substitutions
		for _, arg := range b.Target.Dependencies {
			argDeps := e.Dependencies(arg)
			if err := argDeps.Err(); err != nil {
				return nil, err
			}
			for _, desired := range argDeps.Vars() {
				if next >= len(available) {
					if err := valueDeps.Err(); err != nil {
						return nil, err
					}
					continue
				}
				existing := available[next]
				next++
				if existing != desired {
					depSubs.Insert(existing, desired.Item)
				}
			}
		}
		if len(depSubs) == 0 {
			continue
		}
		value, err := e.SubstituteUnchecked(b.Value, depSubs)
		if err != nil {
			return nil, err
		}
		out[i].Value = value
	}
	return out, nil
}
