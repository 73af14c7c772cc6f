package engine

import (
	"slices"

	"github.com/roach88/subcalc/internal/term"
)

// Justification is one way of discharging a requirement: every set in it
// must be connected to the root.
type Justification []*InvariantSet

// Justifications lists alternative justifications of one requirement.
type Justifications []Justification

// InvariantSet is what is known about a term: the statements guaranteed to
// hold of it, and the requirements that must be justified before those
// statements can be trusted.
//
// INVARIANTS:
//   - JustifiedBy[i] is written at most once, by the justification search
//   - ConnectedToRoot only ever goes false -> true
type InvariantSet struct {
	Context      term.ID
	Statements   []term.ID
	Requirements []term.ID
	JustifiedBy  []Justifications
	Dependencies []term.ID

	// Required sets must be connected to the root for the program to
	// check. Sets created while searching are not required.
	Required bool

	ConnectedToRoot bool
}

func newInvariantSet(context term.ID, statements, requirements, dependencies []term.ID) *InvariantSet {
	return &InvariantSet{
		Context:         context,
		Statements:      statements,
		Requirements:    requirements,
		JustifiedBy:     make([]Justifications, len(requirements)),
		Dependencies:    dependencies,
		Required:        len(requirements) > 0,
		ConnectedToRoot: len(requirements) == 0,
	}
}

// justified reports whether requirement i has been discharged.
func (s *InvariantSet) justified(i int) bool { return s.JustifiedBy[i] != nil }

// satisfied reports whether every requirement has an alternative made only
// of connected sets.
func (s *InvariantSet) satisfied() bool {
	for i := range s.Requirements {
		if !slices.ContainsFunc(s.JustifiedBy[i], Justification.connected) {
			return false
		}
	}
	return true
}

func (j Justification) connected() bool {
	for _, set := range j {
		if !set.ConnectedToRoot {
			return false
		}
	}
	return true
}

// Invariants returns the invariant set of id, creating it on first use.
func (e *Engine) Invariants(id term.ID) (*InvariantSet, error) {
	return e.invariants(&inProgress{}, id)
}

func (e *Engine) invariants(stack *inProgress, id term.ID) (*InvariantSet, error) {
	if set, ok := e.invCache[id]; ok {
		return set, nil
	}
	if stack.contains(id) {
		return newInvariantSet(id, nil, nil, nil), nil
	}
	stack.push(id)
	set, err := e.computeInvariants(stack, id)
	stack.pop()
	if err != nil {
		return nil, err
	}
	e.invCache[id] = set
	return set, nil
}

func (e *Engine) computeInvariants(stack *inProgress, id term.ID) (*InvariantSet, error) {
	switch def := e.store.Definition(id).(type) {
	case term.Placeholder:
		return nil, &term.PlaceholderError{Item: id, Name: e.store.Name(id)}
	case term.Unresolved:
		return nil, &term.UnresolvedError{Item: id, Name: e.store.Name(id)}
	case term.Other:
		if def.Recursive {
			return newInvariantSet(id, nil, nil, nil), nil
		}
		return e.invariants(stack, def.Target)
	case term.VariableRef:
		return newInvariantSet(id, slices.Clone(def.Var.Invariants), nil, []term.ID{id}), nil
	case term.Axiom:
		return newInvariantSet(id, []term.ID{def.Statement}, nil, nil), nil
	case term.Substitution:
		base, err := e.invariants(stack, def.Base)
		if err != nil {
			return nil, err
		}
		statements := make([]term.ID, 0, len(base.Statements))
		for _, stmt := range base.Statements {
			substituted, err := e.SubstituteUnchecked(stmt, def.Subs)
			if err != nil {
				return nil, err
			}
			statements = append(statements, substituted)
		}
		return newInvariantSet(id, statements, slices.Clone(def.Requirements), base.Dependencies), nil
	case term.Decision:
		return e.decisionInvariants(stack, id, def)
	default:
		return newInvariantSet(id, nil, nil, nil), nil
	}
}

// decisionInvariants keeps the statements of the equal branch that also
// hold in the unequal branch.
func (e *Engine) decisionInvariants(stack *inProgress, id term.ID, def term.Decision) (*InvariantSet, error) {
	whenEqual, err := e.invariants(stack, def.Equal)
	if err != nil {
		return nil, err
	}
	whenUnequal, err := e.invariants(stack, def.Unequal)
	if err != nil {
		return nil, err
	}

	var statements []term.ID
	for _, stmt := range whenEqual.Statements {
		for _, other := range whenUnequal.Statements {
			eq, err := e.TrimmedEqual(stmt, other, decisionIntersectionLimit)
			if err != nil {
				return nil, err
			}
			if eq.IsTrivialYes() {
				statements = append(statements, stmt)
				break
			}
		}
	}

	var requirements []term.ID
	for _, req := range slices.Concat(whenEqual.Requirements, whenUnequal.Requirements) {
		if !slices.Contains(requirements, req) {
			requirements = append(requirements, req)
		}
	}
	set := newInvariantSet(id, statements, requirements, nil)
	// The branches carry their own obligations.
	set.Required = false
	return set, nil
}
