package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/subcalc/internal/term"
	"github.com/roach88/subcalc/internal/testutil"
)

func newTestEngine(b *testutil.Builder, opts ...Option) *Engine {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(b.Store, opts...)
}

// =============================================================================
// Dependencies set
// =============================================================================

func TestDependencies_PushKeepsOrder(t *testing.T) {
	b := testutil.NewBuilder()
	x := b.Variable("x")
	y := b.Variable("y")
	z := b.Variable("z")

	var d Dependencies
	d.PushEager(z)
	d.PushEager(x)
	d.Push(Dependency{Var: y})
	d.PushEager(x)

	assert.Equal(t, []*term.Variable{x, y, z}, d.Vars())
	assert.Equal(t, 3, d.Len())
}

func TestDependencies_EagerWins(t *testing.T) {
	b := testutil.NewBuilder()
	x := b.Variable("x")
	y := b.Variable("y")

	var d Dependencies
	d.Push(Dependency{Var: x, Swallow: []*term.Variable{y}})
	d.PushEager(x)

	dep, ok := d.Get(x)
	require.True(t, ok)
	assert.True(t, dep.Eager)
	assert.Equal(t, []*term.Variable{y}, dep.Swallow)
}

func TestDependencies_RemovePopFront(t *testing.T) {
	b := testutil.NewBuilder()
	x := b.Variable("x")
	y := b.Variable("y")

	var d Dependencies
	d.PushEager(x)
	d.PushEager(y)
	d.Remove(x)
	assert.False(t, d.Contains(x))

	dep, ok := d.PopFront()
	require.True(t, ok)
	assert.Same(t, y, dep.Var)

	_, ok = d.PopFront()
	assert.False(t, ok)
}

// =============================================================================
// Dependency calculation
// =============================================================================

func TestEngine_Dependencies_Ground(t *testing.T) {
	b := testutil.NewBuilder()
	a := b.Unique("a")
	e := newTestEngine(b)

	d := e.Dependencies(a)
	assert.Equal(t, 0, d.Len())
	assert.True(t, d.Complete())
}

func TestEngine_Dependencies_FunctionLikeVariable(t *testing.T) {
	b := testutil.NewBuilder()
	x := b.Variable("x")
	f := b.Variable("f", x.Item)
	e := newTestEngine(b)

	d := e.Dependencies(f.Item)
	require.Equal(t, []*term.Variable{x, f}, d.Vars())

	fdep, _ := d.Get(f)
	assert.True(t, fdep.Eager)
	assert.Equal(t, []*term.Variable{x}, fdep.Swallow)
}

func TestEngine_Dependencies_SelfInvariant(t *testing.T) {
	b := testutil.NewBuilder()
	a := b.Unique("a")
	y := b.VariableWith("y", nil, func(self term.ID, scope term.Scope) []term.ID {
		return []term.ID{b.EqualIn(scope, self, a)}
	})
	e := newTestEngine(b)

	first := e.Dependencies(y.Item)
	second := e.Dependencies(y.Item)

	assert.True(t, first.Complete(), "re-entry through SELF is not left skipped")
	assert.Equal(t, []*term.Variable{y}, first.Vars())
	assert.Equal(t, first.Vars(), second.Vars())
}

func TestEngine_Dependencies_InvariantDepsAreNotEager(t *testing.T) {
	b := testutil.NewBuilder()
	p := b.Variable("p")
	a := b.Unique("a")
	y := b.VariableWith("y", nil, func(_ term.ID, scope term.Scope) []term.ID {
		return []term.ID{b.EqualIn(scope, p.Item, a)}
	})
	e := newTestEngine(b)

	d := e.Dependencies(y.Item)
	require.Equal(t, []*term.Variable{p, y}, d.Vars())
	pdep, _ := d.Get(p)
	assert.False(t, pdep.Eager)
}

func TestEngine_Dependencies_Unresolved(t *testing.T) {
	b := testutil.NewBuilder()
	x := b.Variable("x")
	pending := b.Store.Push(term.Unresolved{Resolvable: stringResolvable("later")}, b.Scope())
	s := b.Struct("s", term.Field{Label: "x", Value: x.Item}, term.Field{Label: "later", Value: pending})
	e := newTestEngine(b)

	d := e.Dependencies(s)
	assert.True(t, term.IsUnresolved(d.Err()))
	assert.Equal(t, []*term.Variable{x}, d.Vars(), "partial result keeps what was found")
}

func TestEngine_Dependencies_RecursiveOther(t *testing.T) {
	b := testutil.NewBuilder()
	loop := b.Store.Placeholder("loop", b.Scope())
	back := b.Store.Push(term.Other{Target: loop}, b.Scope())
	require.NoError(t, b.Store.Define(loop, term.Other{Target: back}))
	require.NoError(t, b.Store.MarkRecursive(back))
	e := newTestEngine(b)

	d := e.Dependencies(loop)
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, []term.ID{back}, d.Skipped())
	assert.False(t, d.Complete())

	direct := e.Dependencies(back)
	assert.Equal(t, []term.ID{back}, direct.Skipped(), "the recursive alias marks itself")
	assert.False(t, direct.Complete())

	_, cached := e.depCache[loop]
	assert.False(t, cached, "incomplete results are not cached")
	assert.Equal(t, []term.ID{back}, e.Dependencies(loop).Skipped(), "a second query still sees the cycle")
}

func TestEngine_Dependencies_WithDependenciesHidesBase(t *testing.T) {
	b := testutil.NewBuilder()
	x := b.Variable("x")
	y := b.Variable("y")
	a := b.Unique("a")
	base := b.Decision("", x.Item, y.Item, a, a)
	wrapped := b.Store.Push(term.WithDependencies{Base: base, Dependencies: []term.ID{y.Item}}, b.Scope())
	e := newTestEngine(b)

	assert.Equal(t, []*term.Variable{x, y}, e.Dependencies(base).Vars())
	assert.Equal(t, []*term.Variable{y}, e.Dependencies(wrapped).Vars())
}

func TestEngine_Dependencies_ShrinkGround(t *testing.T) {
	b := testutil.NewBuilder()
	x := b.Variable("x")
	y := b.Variable("y")
	a := b.Unique("a")
	c := b.Unique("c")
	d := b.Decision("d", x.Item, y.Item, a, c)
	e := newTestEngine(b)

	before := e.Dependencies(d).Len()
	for _, subs := range []term.Substitutions{
		testutil.Subs(testutil.Sub(x, a)),
		testutil.Subs(testutil.Sub(y, c)),
		testutil.Subs(testutil.Sub(x, a), testutil.Sub(y, c)),
	} {
		substituted, err := e.Substitute(d, subs)
		require.NoError(t, err)
		assert.LessOrEqual(t, e.Dependencies(substituted).Len(), before)
	}
}

func TestEngine_Dependencies_ShrinkFunctionArgument(t *testing.T) {
	b := testutil.NewBuilder()
	x := b.Variable("x")
	f := b.Variable("f", x.Item)
	y := b.Variable("y")
	g := b.Variable("g", y.Item)
	e := newTestEngine(b)

	subs, err := e.ResolveDependencySubstitutions(testutil.Subs(testutil.Sub(f, g.Item)))
	require.NoError(t, err)
	substituted, err := e.Substitute(f.Item, subs)
	require.NoError(t, err)

	got := e.Dependencies(substituted)
	assert.Equal(t, []*term.Variable{x, g}, got.Vars())
	assert.LessOrEqual(t, got.Len(), e.Dependencies(f.Item).Len())
}

type stringResolvable string

func (r stringResolvable) String() string { return string(r) }
