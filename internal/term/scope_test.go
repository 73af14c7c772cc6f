package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStruct(s *Store, fields ...Field) ID {
	rest := s.Push(EmptyStruct{}, RootScope{})
	for i := len(fields) - 1; i >= 0; i-- {
		rest = s.Push(Struct{Label: fields[i].Label, Value: fields[i].Value, Rest: rest}, RootScope{})
	}
	return rest
}

func TestStructFields_Order(t *testing.T) {
	s := NewStore()
	a := s.NewUnique(RootScope{})
	b := s.NewUnique(RootScope{})
	root := buildStruct(s, Field{"a", a}, Field{"b", b})

	assert.Equal(t, []Field{{"a", a}, {"b", b}}, StructFields(s, root))
}

func TestStore_DefineStruct(t *testing.T) {
	s := NewStore()
	a := s.NewUnique(RootScope{})
	b := s.NewUnique(RootScope{})

	head := s.Placeholder("s", RootScope{})
	require.NoError(t, s.DefineStruct(head, []Field{{"a", a}, {"b", b}}, RootScope{}))
	assert.Equal(t, []Field{{"a", a}, {"b", b}}, StructFields(s, head))

	empty := s.Placeholder("e", RootScope{})
	require.NoError(t, s.DefineStruct(empty, nil, RootScope{}))
	assert.Equal(t, KindEmptyStruct, s.Definition(empty).Kind())

	assert.Error(t, s.DefineStruct(head, nil, RootScope{}), "head is already defined")
}

func TestStructFields_StopsAtUnresolved(t *testing.T) {
	s := NewStore()
	a := s.NewUnique(RootScope{})
	tail := s.Push(Unresolved{Resolvable: testResolvable("tail")}, RootScope{})
	head := s.Push(Struct{Label: "a", Value: a, Rest: tail}, RootScope{})

	assert.Equal(t, []Field{{"a", a}}, StructFields(s, head))
}

func TestLookup_ScopeChain(t *testing.T) {
	s := NewStore()
	a := s.NewUnique(RootScope{})
	root := buildStruct(s, Field{"a", a})
	rootScope := StructScope{Struct: root, Up: RootScope{}}

	y := s.Placeholder("y", rootScope)
	invScope := VariableScope{Var: y, Up: rootScope}

	got, ok := Lookup(s, invScope, SelfIdent)
	require.True(t, ok)
	assert.Equal(t, y, got)

	got, ok = Lookup(s, invScope, "a")
	require.True(t, ok)
	assert.Equal(t, a, got)

	_, ok = Lookup(s, invScope, "missing")
	assert.False(t, ok)
}

func TestVisibleInvariantSources_Dedup(t *testing.T) {
	s := NewStore()
	a := s.NewUnique(RootScope{})
	b := s.NewUnique(RootScope{})
	outer := buildStruct(s, Field{"a", a}, Field{"b", b})
	inner := buildStruct(s, Field{"again", a})

	scope := StructScope{Struct: inner, Up: StructScope{Struct: outer, Up: RootScope{}}}
	assert.Equal(t, []ID{a, b}, VisibleInvariantSources(s, scope))
}

func TestSubstitutions_InsertSetWithout(t *testing.T) {
	s := NewStore()
	x := s.NewVariable("x", RootScope{}, nil, nil)
	y := s.NewVariable("y", RootScope{}, nil, nil)
	a := s.NewUnique(RootScope{})
	b := s.NewUnique(RootScope{})

	var subs Substitutions
	require.True(t, subs.Insert(x, a))
	require.False(t, subs.Insert(x, b), "duplicate target is refused")
	subs.Set(y, b)
	subs.Set(x, b)

	assert.Equal(t, Substitutions{{x, b}, {y, b}}, subs)
	assert.Equal(t, Substitutions{{y, b}}, subs.Without(x))
	assert.Equal(t, []*Variable{x, y}, subs.Targets())

	got, ok := subs.Get(y)
	require.True(t, ok)
	assert.Equal(t, b, got)
}

func TestKind_Priority(t *testing.T) {
	assert.Greater(t, KindWithDependencies.Priority(), KindUnique.Priority())
	assert.Equal(t, KindUnique.Priority(), KindEmptyStruct.Priority())
	assert.Greater(t, KindStruct.Priority(), KindDecision.Priority())
	assert.Equal(t, "decision", KindDecision.String())
}
