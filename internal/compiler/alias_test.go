package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/subcalc/internal/diagnostic"
	"github.com/roach88/subcalc/internal/term"
)

func recursive(p *Program, path string) bool {
	id, ok := p.Lookup(path)
	if !ok {
		return false
	}
	other, ok := p.Store.Definition(id).(term.Other)
	return ok && other.Recursive
}

func TestAnalyzeAliases_TwoCycle(t *testing.T) {
	p, _, diags := resolved(t, `
		items: {
			a: "b"
			b: "a"
		}
	`)

	require.Equal(t, []string{diagnostic.CodeRecursiveAlias}, codes(diags))
	assert.Equal(t, diagnostic.LevelWarning, diags[0].Level)
	assert.Equal(t, "alias cycle a -> b -> a; b is treated as recursive", diags[0].Message)
	assert.Len(t, diags[0].Terms, 2)

	assert.False(t, recursive(p, "a"))
	assert.True(t, recursive(p, "b"))

	b, _ := p.Lookup("b")
	assert.Equal(t, b, deref(t, p, "a"), "dereferencing stops at the marked alias")
	assert.Equal(t, b, deref(t, p, "b"))

	assert.Empty(t, AnalyzeAliases(p.Store), "marked cycles are not reported again")
}

func TestAnalyzeAliases_SelfLoop(t *testing.T) {
	p, _, diags := resolved(t, `items: a: "a"`)

	require.Len(t, diags, 1)
	assert.Equal(t, "alias cycle a -> a; a is treated as recursive", diags[0].Message)
	assert.True(t, recursive(p, "a"))
}

func TestAnalyzeAliases_Chain(t *testing.T) {
	p, _, diags := resolved(t, `
		items: {
			a: "b"
			b: "c"
			c: {unique: {}}
		}
	`)

	assert.Empty(t, diags)
	assert.False(t, recursive(p, "a"))
	assert.False(t, recursive(p, "b"))
	assert.Equal(t, deref(t, p, "c"), deref(t, p, "a"))
}

func TestAnalyzeAliases_SeparateCycles(t *testing.T) {
	_, _, diags := resolved(t, `
		items: {
			a: "b"
			b: "a"
			c: "d"
			d: "c"
			e: "a"
		}
	`)

	require.Equal(t, []string{diagnostic.CodeRecursiveAlias, diagnostic.CodeRecursiveAlias}, codes(diags))
	assert.Contains(t, diags[0].Message, "a -> b -> a")
	assert.Contains(t, diags[1].Message, "c -> d -> c")
}
