package engine

import (
	"slices"

	"github.com/roach88/subcalc/internal/term"
)

// Dependency is a free variable a term still depends on.
type Dependency struct {
	Var *term.Variable

	// Eager means a bound value is consumed where the term is used rather
	// than being propagated outward.
	Eager bool

	// Swallow lists the variables that stop being visible once Var is
	// replaced: the arguments of a function-like variable.
	Swallow []*term.Variable
}

// Dependencies is an ordered set of dependencies, sorted by variable Order
// then creation. It also records items skipped because of recursion and the
// first transient error met during the computation.
type Dependencies struct {
	deps    []Dependency
	skipped []term.ID
	err     error
}

func (d *Dependencies) search(v *term.Variable) (int, bool) {
	return slices.BinarySearchFunc(d.deps, v, func(dep Dependency, target *term.Variable) int {
		return dep.Var.Compare(target)
	})
}

// Push inserts dep. A variable already present is upgraded to eager if dep
// is eager, and its swallow sets are merged.
func (d *Dependencies) Push(dep Dependency) {
	i, found := d.search(dep.Var)
	if !found {
		dep.Swallow = slices.Clone(dep.Swallow)
		d.deps = slices.Insert(d.deps, i, dep)
		return
	}
	existing := &d.deps[i]
	existing.Eager = existing.Eager || dep.Eager
	for _, v := range dep.Swallow {
		if !slices.Contains(existing.Swallow, v) {
			existing.Swallow = append(existing.Swallow, v)
		}
	}
}

// PushEager inserts v as an eager dependency with nothing swallowed.
func (d *Dependencies) PushEager(v *term.Variable) {
	d.Push(Dependency{Var: v, Eager: true})
}

// Append merges other into d. The first error wins.
func (d *Dependencies) Append(other Dependencies) {
	for _, dep := range other.deps {
		d.Push(dep)
	}
	for _, id := range other.skipped {
		d.skip(id)
	}
	if d.err == nil {
		d.err = other.err
	}
}

// Remove deletes v if present.
func (d *Dependencies) Remove(v *term.Variable) {
	if i, found := d.search(v); found {
		d.deps = slices.Delete(d.deps, i, i+1)
	}
}

// PopFront removes and returns the first dependency.
func (d *Dependencies) PopFront() (Dependency, bool) {
	if len(d.deps) == 0 {
		return Dependency{}, false
	}
	dep := d.deps[0]
	d.deps = d.deps[1:]
	return dep, true
}

// Len returns the number of variables.
func (d Dependencies) Len() int { return len(d.deps) }

// Contains reports whether v is present.
func (d Dependencies) Contains(v *term.Variable) bool {
	_, found := d.search(v)
	return found
}

// Get returns the dependency record for v.
func (d Dependencies) Get(v *term.Variable) (Dependency, bool) {
	if i, found := d.search(v); found {
		return d.deps[i], true
	}
	return Dependency{}, false
}

// All returns the dependencies in order.
func (d Dependencies) All() []Dependency {
	return slices.Clone(d.deps)
}

// Vars returns the variables in order.
func (d Dependencies) Vars() []*term.Variable {
	out := make([]*term.Variable, len(d.deps))
	for i, dep := range d.deps {
		out[i] = dep.Var
	}
	return out
}

// Err returns the first unresolved or placeholder error met, if any. A set
// with an error is partial.
func (d Dependencies) Err() error { return d.err }

// Skipped returns items left out because they were already being computed
// or are recursive aliases.
func (d Dependencies) Skipped() []term.ID { return slices.Clone(d.skipped) }

// Complete reports whether nothing was skipped and no error was met.
func (d Dependencies) Complete() bool {
	return d.err == nil && len(d.skipped) == 0
}

func (d *Dependencies) skip(id term.ID) {
	if !slices.Contains(d.skipped, id) {
		d.skipped = append(d.skipped, id)
	}
}

func (d *Dependencies) unskip(id term.ID) {
	if i := slices.Index(d.skipped, id); i >= 0 {
		d.skipped = slices.Delete(d.skipped, i, i+1)
	}
}

func (d Dependencies) clone() Dependencies {
	out := Dependencies{skipped: slices.Clone(d.skipped), err: d.err}
	out.deps = make([]Dependency, len(d.deps))
	for i, dep := range d.deps {
		dep.Swallow = slices.Clone(dep.Swallow)
		out.deps[i] = dep
	}
	return out
}

// inProgress is the explicit stack of items whose computation has started
// but not finished. It is threaded through every recursive call.
type inProgress struct {
	items []term.ID
}

func (p *inProgress) contains(id term.ID) bool { return slices.Contains(p.items, id) }
func (p *inProgress) push(id term.ID)          { p.items = append(p.items, id) }
func (p *inProgress) pop()                     { p.items = p.items[:len(p.items)-1] }

// Dependencies returns the ordered free variables of id.
//
// The result is a pure function of the term graph. Terms still waiting on
// the resolver yield a partial set whose Err is set; callers must propagate
// it.
func (e *Engine) Dependencies(id term.ID) Dependencies {
	return e.dependencies(&inProgress{}, id).clone()
}

func (e *Engine) dependencies(stack *inProgress, id term.ID) Dependencies {
	if cached, ok := e.depCache[id]; ok {
		return cached
	}
	if other, ok := e.store.Definition(id).(term.Other); (ok && other.Recursive) || stack.contains(id) {
		// Skipped results are incomplete, so they never reach the cache.
		var d Dependencies
		d.skip(id)
		return d
	}
	stack.push(id)
	d := e.computeDependencies(stack, id)
	stack.pop()
	d.unskip(id)
	if d.Complete() {
		e.depCache[id] = d
	}
	return d
}

func (e *Engine) computeDependencies(stack *inProgress, id term.ID) Dependencies {
	var d Dependencies
	switch def := e.store.Definition(id).(type) {
	case term.Placeholder:
		d.err = &term.PlaceholderError{Item: id, Name: e.store.Name(id)}
	case term.Unresolved:
		d.err = &term.UnresolvedError{Item: id, Name: e.store.Name(id)}
	case term.Other:
		return e.dependencies(stack, def.Target)
	case term.VariableRef:
		v := def.Var
		for _, dep := range v.Dependencies {
			d.Append(e.dependencies(stack, dep))
		}
		d.Push(Dependency{Var: v, Eager: true, Swallow: d.Vars()})
		for _, inv := range v.Invariants {
			invDeps := e.dependencies(stack, inv)
			for _, dep := range invDeps.deps {
				dep.Eager = false
				d.Push(dep)
			}
			invDeps.deps = nil
			d.Append(invDeps)
		}
	case term.Substitution:
		return e.subDependencies(stack, e.dependencies(stack, def.Base), def.Subs)
	case term.Struct:
		d.Append(e.dependencies(stack, def.Value))
		d.Append(e.dependencies(stack, def.Rest))
	case term.Decision:
		for _, part := range []term.ID{def.Left, def.Right, def.Equal, def.Unequal} {
			d.Append(e.dependencies(stack, part))
		}
	case term.WithDependencies:
		for _, dep := range def.Dependencies {
			d.Append(e.dependencies(stack, dep))
		}
	case term.Unique, term.EmptyStruct, term.Axiom:
	}
	return d
}

// subDependencies computes what remains of base after subs: a replaced
// dependency contributes the dependencies of its value minus the variables
// it swallows; anything else is kept.
func (e *Engine) subDependencies(stack *inProgress, base Dependencies, subs term.Substitutions) Dependencies {
	var d Dependencies
	d.skipped = slices.Clone(base.skipped)
	d.err = base.err
	for _, dep := range base.deps {
		value, ok := subs.Get(dep.Var)
		if !ok {
			d.Push(dep)
			continue
		}
		replaced := e.dependencies(stack, value)
		for _, rdep := range replaced.deps {
			if !slices.Contains(dep.Swallow, rdep.Var) {
				d.Push(rdep)
			}
		}
		replaced.deps = nil
		d.Append(replaced)
	}
	return d
}
