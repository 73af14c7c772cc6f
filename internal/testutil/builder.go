// Package testutil provides helpers shared by package tests.
package testutil

import (
	"github.com/roach88/subcalc/internal/term"
)

// Builder assembles a program directly in a term.Store. Named items become
// fields of the root struct, in creation order; unnamed items are only
// reachable through other items.
type Builder struct {
	Store *term.Store

	root   term.ID
	scope  term.StructScope
	fields []term.Field
	built  bool
}

// NewBuilder creates a builder with true and false language items.
func NewBuilder() *Builder {
	s := term.NewStore()
	root := s.Placeholder("root", term.RootScope{})
	b := &Builder{
		Store: s,
		root:  root,
		scope: term.StructScope{Struct: root, Up: term.RootScope{}},
	}
	for _, name := range []string{"true", "false"} {
		id := s.NewUnique(term.RootScope{})
		s.SetName(id, name)
		if err := s.DefineLanguageItem(name, id); err != nil {
			panic(err)
		}
	}
	return b
}

// Scope returns the scope of root fields.
func (b *Builder) Scope() term.Scope { return b.scope }

func (b *Builder) add(name string, id term.ID) term.ID {
	if name != "" {
		b.Store.SetName(id, name)
		b.fields = append(b.fields, term.Field{Label: name, Value: id})
	}
	return id
}

// Unique adds a unique value.
func (b *Builder) Unique(name string) term.ID {
	return b.add(name, b.Store.NewUnique(b.scope))
}

// Variable adds a variable over deps with no invariants.
func (b *Builder) Variable(name string, deps ...term.ID) *term.Variable {
	return b.VariableWith(name, deps, nil)
}

// VariableWith adds a variable whose invariants are built by invariants,
// which receives the variable's own item (SELF) and the scope to use.
func (b *Builder) VariableWith(name string, deps []term.ID, invariants func(self term.ID, scope term.Scope) []term.ID) *term.Variable {
	id := b.Store.Placeholder(name, b.scope)
	var invs []term.ID
	if invariants != nil {
		invs = invariants(id, term.VariableScope{Var: id, Up: b.scope})
	}
	v, err := b.Store.DefineVariable(id, deps, invs, 0)
	if err != nil {
		panic(err)
	}
	b.add(name, id)
	return v
}

// Decision adds a decision.
func (b *Builder) Decision(name string, left, right, equal, unequal term.ID) term.ID {
	return b.add(name, b.Store.Push(term.Decision{Left: left, Right: right, Equal: equal, Unequal: unequal}, b.scope))
}

// Equal adds the statement left = right.
func (b *Builder) Equal(name string, left, right term.ID) term.ID {
	return b.Decision(name, left, right, b.True(), b.False())
}

// EqualIn builds left = right in scope without naming it.
func (b *Builder) EqualIn(scope term.Scope, left, right term.ID) term.ID {
	return b.Store.Push(term.Decision{Left: left, Right: right, Equal: b.True(), Unequal: b.False()}, scope)
}

// Struct adds a struct literal.
func (b *Builder) Struct(name string, fields ...term.Field) term.ID {
	rest := b.Store.Push(term.EmptyStruct{}, b.scope)
	for i := len(fields) - 1; i >= 0; i-- {
		rest = b.Store.Push(term.Struct{Label: fields[i].Label, Value: fields[i].Value, Rest: rest}, b.scope)
	}
	return b.add(name, rest)
}

// Axiom adds an axiom and registers it as a theorem.
func (b *Builder) Axiom(name string, statement term.ID) term.ID {
	id := b.add(name, b.Store.Push(term.Axiom{Statement: statement}, b.scope))
	b.Store.AddTheorem(id)
	return id
}

// Named adds an existing item as a root field.
func (b *Builder) Named(name string, id term.ID) term.ID {
	return b.add(name, id)
}

// True returns the true language item.
func (b *Builder) True() term.ID {
	id, _ := b.Store.LanguageItem("true")
	return id
}

// False returns the false language item.
func (b *Builder) False() term.ID {
	id, _ := b.Store.LanguageItem("false")
	return id
}

// Root defines the root struct from the named items and returns it. It may
// be called more than once; later fields are not added after the first call.
func (b *Builder) Root() term.ID {
	if b.built {
		return b.root
	}
	b.built = true
	if err := b.Store.DefineStruct(b.root, b.fields, b.scope); err != nil {
		panic(err)
	}
	return b.root
}

// Sub builds a single binding.
func Sub(v *term.Variable, value term.ID) term.Binding {
	return term.Binding{Target: v, Value: value}
}

// Subs builds a substitution mapping from bindings.
func Subs(bindings ...term.Binding) term.Substitutions {
	return term.Substitutions(bindings)
}
