// Package compiler turns CUE program files into a term store and resolves
// the names and substitutions left pending by loading.
package compiler

import (
	"fmt"
	"math"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/subcalc/internal/term"
)

// Program is a loaded program: its store and the root struct of items.
type Program struct {
	Store *term.Store
	Root  term.ID
}

// Items returns the root items in source order.
func (p *Program) Items() []term.Field {
	return term.StructFields(p.Store, p.Root)
}

// Lookup finds an item by dotted path from the root, e.g. "nat.zero".
// Members are found through struct fields, so the path must be resolved.
func (p *Program) Lookup(path string) (term.ID, bool) {
	cur := p.Root
	for _, label := range strings.Split(path, ".") {
		i := slices.IndexFunc(term.StructFields(p.Store, cur), func(f term.Field) bool {
			return f.Label == label
		})
		if i < 0 {
			return 0, false
		}
		cur = term.StructFields(p.Store, cur)[i].Value
	}
	return cur, true
}

// forms lists the expression forms in the order they are reported.
var forms = []string{
	"unique",
	"variable",
	"decision",
	"equal",
	"substitute",
	"struct",
	"member",
	"with_dependencies",
	"axiom",
}

const languageItemKey = "language_item"

// LoadFile reads and compiles the program file at path.
func LoadFile(path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program: %w", err)
	}
	return CompileSource(path, src)
}

// CompileSource compiles program source. filename is used in positions.
func CompileSource(filename string, src []byte) (*Program, error) {
	ctx := cuecontext.New()
	return CompileProgram(ctx.CompileBytes(src, cue.Filename(filename)))
}

// CompileProgram builds a program from a CUE value.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value must have an items struct; each field is one item:
//
//	items: {
//		a: {unique: {}}
//		x: {variable: {}}
//		b: "a"
//	}
//
// Names are left unresolved; run ResolveAll before querying.
func CompileProgram(v cue.Value) (*Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	items := v.LookupPath(cue.ParsePath("items"))
	if !items.Exists() {
		return nil, &CompileError{
			Field:   "items",
			Message: "items is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := items.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	store := term.NewStore()
	root := store.Placeholder("items", term.RootScope{})
	store.SetPos(root, position(items.Pos()))
	scope := term.StructScope{Struct: root, Up: term.RootScope{}}

	c := &programCompiler{store: store}
	var fields []term.Field
	for iter.Next() {
		id, err := c.expr(iter.Value(), scope, iter.Label())
		if err != nil {
			return nil, err
		}
		fields = append(fields, term.Field{Label: iter.Label(), Value: id})
	}
	if err := store.DefineStruct(root, fields, scope); err != nil {
		return nil, err
	}

	// Decisions written with equal refer to these.
	for _, name := range []string{"true", "false"} {
		if _, ok := store.LanguageItem(name); ok {
			continue
		}
		id := store.NewUnique(term.RootScope{})
		store.SetName(id, name)
		if err := store.DefineLanguageItem(name, id); err != nil {
			return nil, err
		}
	}

	return &Program{Store: store, Root: root}, nil
}

type programCompiler struct {
	store *term.Store
}

// expr compiles one expression in scope. A non-empty name is recorded on
// the item for diagnostics.
func (c *programCompiler) expr(v cue.Value, scope term.Scope, name string) (term.ID, error) {
	if err := v.Err(); err != nil {
		return 0, formatCUEError(err)
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		ident, err := v.String()
		if err != nil {
			return 0, formatCUEError(err)
		}
		id := c.store.Push(term.Unresolved{Resolvable: identifier{name: ident}}, scope)
		return c.finish(id, v, name), nil
	case cue.StructKind:
		return c.form(v, scope, name)
	default:
		return 0, &CompileError{
			Field:   "expression",
			Message: fmt.Sprintf("expected an identifier or a form, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func (c *programCompiler) finish(id term.ID, v cue.Value, name string) term.ID {
	if name != "" && c.store.Name(id) == "" {
		c.store.SetName(id, name)
	}
	c.store.SetPos(id, position(v.Pos()))
	return id
}

// form compiles a struct holding exactly one form key and optionally a
// language_item tag.
func (c *programCompiler) form(v cue.Value, scope term.Scope, name string) (term.ID, error) {
	iter, err := v.Fields()
	if err != nil {
		return 0, formatCUEError(err)
	}

	var (
		kind     string
		body     cue.Value
		langItem string
	)
	for iter.Next() {
		label := iter.Label()
		switch {
		case label == languageItemKey:
			s, err := iter.Value().String()
			if err != nil {
				return 0, &CompileError{
					Field:   languageItemKey,
					Message: "language_item must be a string",
					Pos:     iter.Value().Pos(),
				}
			}
			langItem = s
		case slices.Contains(forms, label):
			if kind != "" {
				return 0, &CompileError{
					Field:   "form",
					Message: fmt.Sprintf("%s and %s cannot be combined", kind, label),
					Pos:     iter.Value().Pos(),
				}
			}
			kind, body = label, iter.Value()
		default:
			return 0, &CompileError{
				Field:   "form",
				Message: fmt.Sprintf("unknown form %q", label),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	if kind == "" {
		return 0, &CompileError{
			Field:   "form",
			Message: "expected one of " + strings.Join(forms, ", "),
			Pos:     v.Pos(),
		}
	}

	var id term.ID
	switch kind {
	case "unique":
		id = c.store.NewUnique(scope)
	case "variable":
		id, err = c.variable(body, scope, name)
	case "decision":
		id, err = c.decision(body, scope)
	case "equal":
		id, err = c.equal(body, scope)
	case "substitute":
		id, err = c.substitute(body, scope)
	case "struct":
		id, err = c.structure(body, scope, name)
	case "member":
		id, err = c.member(body, scope)
	case "with_dependencies":
		id, err = c.withDependencies(body, scope)
	case "axiom":
		id, err = c.axiom(body, scope)
	}
	if err != nil {
		return 0, err
	}
	c.finish(id, v, name)

	if langItem != "" {
		if err := c.store.DefineLanguageItem(langItem, id); err != nil {
			return 0, &CompileError{Field: languageItemKey, Message: err.Error(), Pos: v.Pos()}
		}
	}
	return id, nil
}

func (c *programCompiler) variable(v cue.Value, scope term.Scope, name string) (term.ID, error) {
	id := c.store.Placeholder(name, scope)
	inner := term.VariableScope{Var: id, Up: scope}

	deps, err := c.exprList(v, "variable", "dependencies", inner)
	if err != nil {
		return 0, err
	}
	invs, err := c.exprList(v, "variable", "invariants", inner)
	if err != nil {
		return 0, err
	}

	var major uint8
	if f, ok := lookup(v, "order"); ok {
		n, err := f.Int64()
		if err != nil || n < 0 || n > math.MaxUint8 {
			return 0, &CompileError{
				Field:   "variable.order",
				Message: "order must be an integer between 0 and 255",
				Pos:     f.Pos(),
			}
		}
		major = uint8(n)
	}

	if _, err := c.store.DefineVariable(id, deps, invs, major); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *programCompiler) decision(v cue.Value, scope term.Scope) (term.ID, error) {
	var parts [4]term.ID
	for i, key := range []string{"left", "right", "equal", "unequal"} {
		id, err := c.requiredExpr(v, "decision", key, scope)
		if err != nil {
			return 0, err
		}
		parts[i] = id
	}
	return c.store.Push(term.Decision{Left: parts[0], Right: parts[1], Equal: parts[2], Unequal: parts[3]}, scope), nil
}

// equal desugars to a decision between the true and false language items.
func (c *programCompiler) equal(v cue.Value, scope term.Scope) (term.ID, error) {
	iter, err := v.List()
	if err != nil {
		return 0, &CompileError{Field: "equal", Message: "equal must be a list", Pos: v.Pos()}
	}
	var sides []term.ID
	for iter.Next() {
		id, err := c.expr(iter.Value(), scope, "")
		if err != nil {
			return 0, err
		}
		sides = append(sides, id)
	}
	if len(sides) != 2 {
		return 0, &CompileError{
			Field:   "equal",
			Message: fmt.Sprintf("equal takes exactly two expressions, got %d", len(sides)),
			Pos:     v.Pos(),
		}
	}
	yes := c.store.Push(term.Unresolved{Resolvable: languageItemRef{name: "true"}}, scope)
	no := c.store.Push(term.Unresolved{Resolvable: languageItemRef{name: "false"}}, scope)
	return c.store.Push(term.Decision{Left: sides[0], Right: sides[1], Equal: yes, Unequal: no}, scope), nil
}

func (c *programCompiler) substitute(v cue.Value, scope term.Scope) (term.ID, error) {
	base, err := c.requiredExpr(v, "substitute", "base", scope)
	if err != nil {
		return 0, err
	}
	args, err := c.exprList(v, "substitute", "args", scope)
	if err != nil {
		return 0, err
	}

	var named []namedArg
	if f, ok := lookup(v, "named"); ok {
		iter, err := f.Fields()
		if err != nil {
			return 0, &CompileError{Field: "substitute.named", Message: "named must be a struct", Pos: f.Pos()}
		}
		for iter.Next() {
			value, err := c.expr(iter.Value(), scope, "")
			if err != nil {
				return 0, err
			}
			named = append(named, namedArg{name: iter.Label(), value: value})
		}
	}

	return c.store.Push(term.Unresolved{Resolvable: substitution{base: base, args: args, named: named}}, scope), nil
}

func (c *programCompiler) structure(v cue.Value, scope term.Scope, name string) (term.ID, error) {
	id := c.store.Placeholder(name, scope)
	inner := term.StructScope{Struct: id, Up: scope}

	iter, err := v.Fields()
	if err != nil {
		return 0, &CompileError{Field: "struct", Message: "struct must be a struct", Pos: v.Pos()}
	}
	var fields []term.Field
	for iter.Next() {
		value, err := c.expr(iter.Value(), inner, iter.Label())
		if err != nil {
			return 0, err
		}
		fields = append(fields, term.Field{Label: iter.Label(), Value: value})
	}
	if err := c.store.DefineStruct(id, fields, scope); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *programCompiler) member(v cue.Value, scope term.Scope) (term.ID, error) {
	of, err := c.requiredExpr(v, "member", "of", scope)
	if err != nil {
		return 0, err
	}
	f, ok := lookup(v, "label")
	if !ok {
		return 0, &CompileError{Field: "member.label", Message: "label is required", Pos: v.Pos()}
	}
	label, err := f.String()
	if err != nil {
		return 0, &CompileError{Field: "member.label", Message: "label must be a string", Pos: f.Pos()}
	}
	return c.store.Push(term.Unresolved{Resolvable: member{of: of, label: label}}, scope), nil
}

func (c *programCompiler) withDependencies(v cue.Value, scope term.Scope) (term.ID, error) {
	base, err := c.requiredExpr(v, "with_dependencies", "base", scope)
	if err != nil {
		return 0, err
	}
	deps, err := c.exprList(v, "with_dependencies", "dependencies", scope)
	if err != nil {
		return 0, err
	}
	return c.store.Push(term.WithDependencies{Base: base, Dependencies: deps}, scope), nil
}

// axiom registers the statement as an auto-theorem.
func (c *programCompiler) axiom(v cue.Value, scope term.Scope) (term.ID, error) {
	stmt, err := c.expr(v, scope, "")
	if err != nil {
		return 0, err
	}
	id := c.store.Push(term.Axiom{Statement: stmt}, scope)
	c.store.AddTheorem(id)
	return id, nil
}

func lookup(v cue.Value, key string) (cue.Value, bool) {
	f := v.LookupPath(cue.MakePath(cue.Str(key)))
	return f, f.Exists()
}

func (c *programCompiler) requiredExpr(v cue.Value, form, key string, scope term.Scope) (term.ID, error) {
	f, ok := lookup(v, key)
	if !ok {
		return 0, &CompileError{
			Field:   form + "." + key,
			Message: key + " is required",
			Pos:     v.Pos(),
		}
	}
	return c.expr(f, scope, "")
}

// exprList compiles an optional list field.
func (c *programCompiler) exprList(v cue.Value, form, key string, scope term.Scope) ([]term.ID, error) {
	f, ok := lookup(v, key)
	if !ok {
		return nil, nil
	}
	iter, err := f.List()
	if err != nil {
		return nil, &CompileError{
			Field:   form + "." + key,
			Message: key + " must be a list",
			Pos:     f.Pos(),
		}
	}
	var out []term.ID
	for iter.Next() {
		id, err := c.expr(iter.Value(), scope, "")
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
