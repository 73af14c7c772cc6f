package engine

import (
	"slices"

	"github.com/roach88/subcalc/internal/term"
)

// TrimmedEqual is Equal with redundant substitutions removed from a Yes:
// identity bindings such as x -> x, and bindings shared by both sides.
func (e *Engine) TrimmedEqual(left, right term.ID, limit uint32) (Equal, error) {
	eq, err := e.Equal(left, right, limit)
	if err != nil {
		return eq, err
	}
	return e.trim(eq, limit)
}

// Trim removes redundant substitutions from a Yes.
func (e *Engine) Trim(eq Equal) (Equal, error) {
	return e.trim(eq, trimLimit)
}

func (e *Engine) trim(eq Equal, limit uint32) (Equal, error) {
	if !eq.IsYes() {
		return eq, nil
	}
	left, err := e.trimSubs(eq.Left)
	if err != nil {
		return Unknown, err
	}
	right, err := e.trimSubs(eq.Right)
	if err != nil {
		return Unknown, err
	}
	left, right = dropShared(left, right)

	if left, err = e.dropEqualIdentities(left, limit); err != nil {
		return Unknown, err
	}
	if right, err = e.dropEqualIdentities(right, limit); err != nil {
		return Unknown, err
	}
	return Yes(left, right), nil
}

// trimSubs drops bindings whose value is the target itself and trims the
// mappings of substituted values.
func (e *Engine) trimSubs(subs term.Substitutions) (term.Substitutions, error) {
	var out term.Substitutions
	for _, b := range subs {
		value, err := e.trimValue(b.Value)
		if err != nil {
			return nil, err
		}
		if value == b.Target.Item {
			continue
		}
		out = append(out, term.Binding{Target: b.Target, Value: value})
	}
	return out, nil
}

// trimValue dereferences id and, if it is a substitution, rebuilds it
// without identity bindings. The original term is never modified.
func (e *Engine) trimValue(id term.ID) (term.ID, error) {
	id, err := e.store.Dereference(id)
	if err != nil {
		return id, err
	}
	sub, ok := e.store.Definition(id).(term.Substitution)
	if !ok {
		return id, nil
	}
	inner, err := e.trimSubs(sub.Subs)
	if err != nil {
		return id, err
	}
	if len(inner) == len(sub.Subs) {
		return id, nil
	}
	if len(inner) == 0 && len(sub.Requirements) == 0 {
		return e.store.Dereference(sub.Base)
	}
	return e.store.Push(term.Substitution{Base: sub.Base, Subs: inner, Requirements: sub.Requirements}, e.store.Scope(id)), nil
}

// dropShared removes bindings that appear with the same value on both
// sides.
func dropShared(left, right term.Substitutions) (term.Substitutions, term.Substitutions) {
	shared := func(b term.Binding, other term.Substitutions) bool {
		value, ok := other.Get(b.Target)
		return ok && value == b.Value
	}
	l := slices.DeleteFunc(left.Clone(), func(b term.Binding) bool { return shared(b, right) })
	r := slices.DeleteFunc(right.Clone(), func(b term.Binding) bool { return shared(b, left) })
	return l, r
}

// dropEqualIdentities removes bindings whose value the engine can show is
// the target without further substitution.
func (e *Engine) dropEqualIdentities(subs term.Substitutions, limit uint32) (term.Substitutions, error) {
	var out term.Substitutions
	for _, b := range subs {
		eq, err := e.Equal(b.Value, b.Target.Item, limit)
		if err != nil {
			return nil, err
		}
		if eq.IsTrivialYes() {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
