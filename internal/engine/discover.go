package engine

import (
	"github.com/roach88/subcalc/internal/term"
)

// tieBreak picks the primary operand when both kinds have equal priority.
// It flips on every recursive call.
type tieBreak bool

const leftFirst tieBreak = false

func (t tieBreak) flip() tieBreak { return !t }

// layers holds pending substitutions for one operand, innermost first.
type layers []term.Substitutions

func (l layers) empty() bool {
	for _, subs := range l {
		if len(subs) > 0 {
			return false
		}
	}
	return true
}

// take finds the innermost layer binding v. The value is only subject to
// the layers outside it.
func (l layers) take(v *term.Variable) (term.ID, layers, bool) {
	for i, subs := range l {
		if value, ok := subs.Get(v); ok {
			return value, append(layers(nil), l[i+1:]...), true
		}
	}
	return 0, nil, false
}

// Equal decides whether left and right denote the same value, searching at
// most limit structural steps deep.
//
// A Yes carries the substitutions that make the two sides equal: Left is
// applied to left and Right to right. Unresolved operands are reported as an
// error together with Unknown.
func (e *Engine) Equal(left, right term.ID, limit uint32) (Equal, error) {
	return e.discover(left, nil, right, nil, limit, leftFirst)
}

func (e *Engine) discover(left term.ID, lsubs layers, right term.ID, rsubs layers, limit uint32, tie tieBreak) (Equal, error) {
	left, err := e.store.Dereference(left)
	if err != nil {
		return Unknown, err
	}
	right, err = e.store.Dereference(right)
	if err != nil {
		return Unknown, err
	}
	if left == right && lsubs.empty() && rsubs.empty() {
		return Yes(nil, nil), nil
	}
	if limit == 0 {
		return NeedsHigherLimit, nil
	}

	if left, lsubs, err = e.unwrap(left, lsubs); err != nil {
		return Unknown, err
	}
	if right, rsubs, err = e.unwrap(right, rsubs); err != nil {
		return Unknown, err
	}

	lvar, lIsVar := e.asVariable(left)
	rvar, rIsVar := e.asVariable(right)

	if rIsVar {
		if value, rest, ok := rsubs.take(rvar); ok {
			return e.discover(left, lsubs, value, rest, limit, tie)
		}
	}
	if lIsVar {
		if value, rest, ok := lsubs.take(lvar); ok {
			return e.discover(value, rest, right, rsubs, limit, tie)
		}
	}

	if lIsVar {
		return e.bindVariable(lvar, lsubs, right, rsubs, limit, tie)
	}
	if rIsVar {
		eq, err := e.bindVariable(rvar, rsubs, left, lsubs, limit, tie.flip())
		return eq.Swap(), err
	}
	return e.dispatch(left, lsubs, right, rsubs, limit, tie)
}

// unwrap peels substitution terms off id, prepending their mappings.
func (e *Engine) unwrap(id term.ID, pending layers) (term.ID, layers, error) {
	for {
		sub, ok := e.store.Definition(id).(term.Substitution)
		if !ok {
			return id, pending, nil
		}
		pending = append(layers{sub.Subs}, pending...)
		next, err := e.store.Dereference(sub.Base)
		if err != nil {
			return id, pending, err
		}
		id = next
	}
}

func (e *Engine) asVariable(id term.ID) (*term.Variable, bool) {
	ref, ok := e.store.Definition(id).(term.VariableRef)
	if !ok {
		return nil, false
	}
	return ref.Var, true
}

// bindVariable tries to make the free variable lv equal to right by binding
// it. The variable's own dependency arguments are matched position by
// position against the free variables of right, trying every split of the
// pending right-hand substitutions from the outermost inwards.
func (e *Engine) bindVariable(lv *term.Variable, lsubs layers, right term.ID, rsubs layers, limit uint32, tie tieBreak) (Equal, error) {
	next := tie.flip()

	if rv, ok := e.asVariable(right); ok && rv == lv {
		parts := make([]Equal, 0, len(lv.Dependencies))
		for _, dep := range lv.Dependencies {
			eq, err := e.discover(dep, lsubs, dep, rsubs, limit-1, next)
			if err != nil {
				return Unknown, err
			}
			parts = append(parts, eq)
		}
		return e.and(limit-1, parts...)
	}

	ldeps, err := e.argumentVariables(lv)
	if err != nil {
		return Unknown, err
	}

	needsHigher := false
	for split := len(rsubs); split >= 0; split-- {
		rdeps, err := e.dependenciesUnder(right, rsubs[:split])
		if err != nil {
			return Unknown, err
		}
		if len(ldeps) > len(rdeps) {
			continue
		}

		parts := make([]Equal, 0, len(ldeps))
		for i, ldep := range ldeps {
			eq, err := e.discover(ldep.Item, lsubs, rdeps[i].Item, rsubs[split:], limit-1, next)
			if err != nil {
				return Unknown, err
			}
			parts = append(parts, eq)
		}
		eq, err := e.and(limit-1, parts...)
		if err != nil {
			return Unknown, err
		}

		switch eq.Kind {
		case KindYes:
			value, err := e.applyLayers(right, rsubs[:split])
			if err != nil {
				return Unknown, err
			}
			var rename term.Substitutions
			for i, ldep := range ldeps {
				if rdeps[i] != ldep {
					rename.Insert(rdeps[i], ldep.Item)
				}
			}
			if value, err = e.SubstituteUnchecked(value, rename); err != nil {
				return Unknown, err
			}
			return e.and(limit-1, eq, Yes(term.Substitutions{{Target: lv, Value: value}}, nil))
		case KindNeedsHigherLimit:
			needsHigher = true
		}
	}
	if needsHigher {
		return NeedsHigherLimit, nil
	}
	return Unknown, nil
}

// argumentVariables flattens the dependencies of the dependency terms a
// variable is declared over.
func (e *Engine) argumentVariables(v *term.Variable) ([]*term.Variable, error) {
	var d Dependencies
	for _, dep := range v.Dependencies {
		d.Append(e.Dependencies(dep))
	}
	return d.Vars(), d.Err()
}

// dependenciesUnder returns the free variables of id once pending is
// applied, without building the substituted term.
func (e *Engine) dependenciesUnder(id term.ID, pending layers) ([]*term.Variable, error) {
	d := e.Dependencies(id)
	for _, subs := range pending {
		d = e.subDependencies(&inProgress{}, d, subs)
	}
	return d.Vars(), d.Err()
}

// applyLayers substitutes each layer into id, innermost first. Targets id
// does not depend on are dropped, so unrelated bindings are not copied.
func (e *Engine) applyLayers(id term.ID, pending layers) (term.ID, error) {
	for _, subs := range pending {
		next, err := e.SubstituteUnchecked(id, subs)
		if err != nil {
			return id, err
		}
		id = next
	}
	return id, nil
}

// dispatch runs the kind rules of both operands. The operand with the higher
// kind priority goes first; ties follow the alternating tie-break. The
// other operand's rule is the backup.
func (e *Engine) dispatch(left term.ID, lsubs layers, right term.ID, rsubs layers, limit uint32, tie tieBreak) (Equal, error) {
	lp := e.store.Definition(left).Kind().Priority()
	rp := e.store.Definition(right).Kind().Priority()
	leftPrimary := lp > rp || (lp == rp && tie == leftFirst)
	next := tie.flip()

	fromLeft := func() (Equal, error) {
		return e.rule(left, lsubs, right, rsubs, limit-1, next)
	}
	fromRight := func() (Equal, error) {
		eq, err := e.rule(right, rsubs, left, lsubs, limit-1, next)
		return eq.Swap(), err
	}
	primary, backup := fromLeft, fromRight
	otherSide := func(eq Equal) term.Substitutions { return eq.Right }
	if !leftPrimary {
		primary, backup = fromRight, fromLeft
		otherSide = func(eq Equal) term.Substitutions { return eq.Left }
	}

	eq, err := primary()
	if err != nil {
		return Unknown, err
	}
	switch {
	case eq.Kind == KindUnknown:
		return backup()
	case eq.Kind == KindYes && len(otherSide(eq)) > 0:
		alt, err := backup()
		if err == nil && alt.Kind == KindYes && len(otherSide(alt)) == 0 {
			return alt, nil
		}
	}
	return eq, nil
}

// rule compares self against other using the equality rule of self's kind.
// The result is oriented as (self, other).
func (e *Engine) rule(self term.ID, selfSubs layers, other term.ID, otherSubs layers, limit uint32, tie tieBreak) (Equal, error) {
	otherDef := e.store.Definition(other)
	switch def := e.store.Definition(self).(type) {
	case term.Unique:
		switch o := otherDef.(type) {
		case term.Unique:
			if o.UniqueID == def.UniqueID {
				return Yes(nil, nil), nil
			}
			return No, nil
		case term.Struct, term.EmptyStruct:
			return No, nil
		}
	case term.Struct:
		switch o := otherDef.(type) {
		case term.Struct:
			if o.Label != def.Label {
				return No, nil
			}
			return e.andDiscover(selfSubs, otherSubs, limit, tie,
				[2]term.ID{def.Value, o.Value},
				[2]term.ID{def.Rest, o.Rest},
			)
		case term.EmptyStruct, term.Unique:
			return No, nil
		}
	case term.EmptyStruct:
		switch otherDef.(type) {
		case term.EmptyStruct:
			return Yes(nil, nil), nil
		case term.Struct, term.Unique:
			return No, nil
		}
	case term.Decision:
		if o, ok := otherDef.(term.Decision); ok {
			return e.andDiscover(selfSubs, otherSubs, limit, tie,
				[2]term.ID{def.Left, o.Left},
				[2]term.ID{def.Right, o.Right},
				[2]term.ID{def.Equal, o.Equal},
				[2]term.ID{def.Unequal, o.Unequal},
			)
		}
	case term.WithDependencies:
		return e.discover(def.Base, selfSubs, other, otherSubs, limit, tie)
	}
	return Unknown, nil
}

// andDiscover compares (self part, other part) pairs and combines the
// answers with and.
func (e *Engine) andDiscover(selfSubs, otherSubs layers, limit uint32, tie tieBreak, pairs ...[2]term.ID) (Equal, error) {
	parts := make([]Equal, 0, len(pairs))
	for _, p := range pairs {
		eq, err := e.discover(p[0], selfSubs, p[1], otherSubs, limit, tie)
		if err != nil {
			return Unknown, err
		}
		parts = append(parts, eq)
	}
	return e.and(limit, parts...)
}
