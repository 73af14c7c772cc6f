package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/subcalc/internal/term"
)

func compile(t *testing.T, src string) *Program {
	t.Helper()
	p, err := CompileSource("test.cue", []byte(src))
	require.NoError(t, err)
	return p
}

func compileErr(t *testing.T, src string) *CompileError {
	t.Helper()
	_, err := CompileSource("test.cue", []byte(src))
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	return ce
}

func labels(fields []term.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Label
	}
	return out
}

func TestCompileProgram_Basic(t *testing.T) {
	p := compile(t, `
		items: {
			a: {unique: {}}
			x: {variable: {}}
			b: "a"
		}
	`)

	items := p.Items()
	assert.Equal(t, []string{"a", "x", "b"}, labels(items))
	assert.Equal(t, term.KindUnique, p.Store.Definition(items[0].Value).Kind())
	assert.Equal(t, term.KindVariable, p.Store.Definition(items[1].Value).Kind())
	assert.Equal(t, term.KindUnresolved, p.Store.Definition(items[2].Value).Kind(), "names wait for ResolveAll")

	assert.Equal(t, "a", p.Store.Name(items[0].Value))
	pos := p.Store.Pos(items[0].Value)
	assert.Equal(t, "test.cue", pos.File)
	assert.Equal(t, 3, pos.Line)

	for _, name := range []string{"true", "false"} {
		_, ok := p.Store.LanguageItem(name)
		assert.True(t, ok, "%s is created when missing", name)
	}
}

func TestCompileProgram_Forms(t *testing.T) {
	p := compile(t, `
		items: {
			a: {unique: {}}
			x: {variable: {order: 3}}
			f: {variable: {dependencies: ["x"], invariants: [{equal: ["SELF", "a"]}]}}
			d: {decision: {left: "x", right: "a", equal: "a", unequal: "x"}}
			s: {struct: {first: "a", second: {unique: {}}}}
			m: {member: {of: "s", label: "first"}}
			w: {with_dependencies: {base: "d", dependencies: ["x"]}}
			call: {substitute: {base: "f", args: ["a"]}}
			ax: {axiom: {equal: ["a", "a"]}}
		}
	`)

	kinds := map[string]term.Kind{
		"a":    term.KindUnique,
		"x":    term.KindVariable,
		"f":    term.KindVariable,
		"d":    term.KindDecision,
		"s":    term.KindStruct,
		"m":    term.KindUnresolved,
		"w":    term.KindWithDependencies,
		"call": term.KindUnresolved,
		"ax":   term.KindAxiom,
	}
	for name, kind := range kinds {
		id, ok := p.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, kind, p.Store.Definition(id).Kind(), name)
	}

	x, _ := p.Lookup("x")
	v, ok := p.Store.Variable(x)
	require.True(t, ok)
	assert.Equal(t, uint8(3), v.Order.Major)

	f, _ := p.Lookup("f")
	fv, _ := p.Store.Variable(f)
	assert.Len(t, fv.Dependencies, 1)
	assert.Len(t, fv.Invariants, 1)

	second, ok := p.Lookup("s.second")
	require.True(t, ok, "nested fields are reachable by path")
	assert.Equal(t, term.KindUnique, p.Store.Definition(second).Kind())

	ax, _ := p.Lookup("ax")
	assert.Equal(t, []term.ID{ax}, p.Store.Theorems())
}

func TestCompileProgram_LanguageItem(t *testing.T) {
	p := compile(t, `
		items: {
			yes: {unique: {}, language_item: "true"}
		}
	`)

	yes, _ := p.Lookup("yes")
	got, ok := p.Store.LanguageItem("true")
	require.True(t, ok)
	assert.Equal(t, yes, got)
}

func TestCompileProgram_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		field   string
		message string
	}{
		{
			name:    "missing items",
			src:     `other: {}`,
			field:   "items",
			message: "required",
		},
		{
			name:    "unknown form",
			src:     `items: a: {lambda: {}}`,
			field:   "form",
			message: "unknown form",
		},
		{
			name:    "two forms",
			src:     `items: a: {unique: {}, axiom: "a"}`,
			field:   "form",
			message: "cannot be combined",
		},
		{
			name:    "no form",
			src:     `items: a: {language_item: "x"}`,
			field:   "form",
			message: "expected one of",
		},
		{
			name:    "equal arity",
			src:     `items: a: {equal: ["a"]}`,
			field:   "equal",
			message: "exactly two",
		},
		{
			name:    "order range",
			src:     `items: x: {variable: {order: 300}}`,
			field:   "variable.order",
			message: "between 0 and 255",
		},
		{
			name:    "decision part",
			src:     `items: d: {decision: {left: "a", right: "a", equal: "a"}}`,
			field:   "decision.unequal",
			message: "required",
		},
		{
			name:    "member label",
			src:     `items: m: {member: {of: "a"}}`,
			field:   "member.label",
			message: "required",
		},
		{
			name:    "number",
			src:     `items: n: 3`,
			field:   "expression",
			message: "expected an identifier",
		},
		{
			name: "duplicate language item",
			src: `items: {
				a: {unique: {}, language_item: "true"}
				b: {unique: {}, language_item: "true"}
			}`,
			field:   "language_item",
			message: "already",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := compileErr(t, tt.src)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.message)
		})
	}
}

func TestCompileProgram_CUEError(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`items: a: "x" & "y"`)

	_, err := CompileProgram(v)
	assert.Error(t, err)
}

func TestCompileError_Position(t *testing.T) {
	ce := compileErr(t, "items: {\n\ta: {lambda: {}}\n}")
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, ce.Error(), "test.cue:2:")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.cue")
	require.NoError(t, os.WriteFile(path, []byte(`items: a: {unique: {}}`), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, labels(p.Items()))

	_, err = LoadFile(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)
}
