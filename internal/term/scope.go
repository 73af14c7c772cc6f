package term

// SelfIdent names the variable whose invariants are being written.
const SelfIdent = "SELF"

// Scope answers identifier lookups for the items written inside it.
type Scope interface {
	// LookupIdent resolves name at this level only.
	LookupIdent(s *Store, name string) (ID, bool)

	// InvariantSources lists the items whose invariant sets are visible at
	// this level.
	InvariantSources(s *Store) []ID

	// Parent returns the enclosing scope, or nil at the root.
	Parent() Scope
}

// Lookup resolves name through scope and its parents.
func Lookup(s *Store, scope Scope, name string) (ID, bool) {
	for sc := scope; sc != nil; sc = sc.Parent() {
		if id, ok := sc.LookupIdent(s, name); ok {
			return id, true
		}
	}
	return 0, false
}

// VisibleInvariantSources collects InvariantSources along the scope chain,
// innermost first, without duplicates.
func VisibleInvariantSources(s *Store, scope Scope) []ID {
	var out []ID
	seen := make(map[ID]bool)
	for sc := scope; sc != nil; sc = sc.Parent() {
		for _, id := range sc.InvariantSources(s) {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// RootScope is the outermost scope. It resolves language items by name.
type RootScope struct{}

func (RootScope) LookupIdent(s *Store, name string) (ID, bool) {
	return s.LanguageItem(name)
}

func (RootScope) InvariantSources(*Store) []ID { return nil }

func (RootScope) Parent() Scope { return nil }

// StructScope is the scope of the values of a struct. Labels resolve to the
// labeled values, and the invariant sets of every value are visible.
type StructScope struct {
	Struct ID
	Up     Scope
}

func (sc StructScope) LookupIdent(s *Store, name string) (ID, bool) {
	for _, f := range StructFields(s, sc.Struct) {
		if f.Label == name {
			return f.Value, true
		}
	}
	return 0, false
}

func (sc StructScope) InvariantSources(s *Store) []ID {
	fields := StructFields(s, sc.Struct)
	out := make([]ID, len(fields))
	for i, f := range fields {
		out[i] = f.Value
	}
	return out
}

func (sc StructScope) Parent() Scope { return sc.Up }

// VariableScope is the scope of a variable's invariants and dependencies.
// SELF resolves to the variable.
type VariableScope struct {
	Var ID
	Up  Scope
}

func (sc VariableScope) LookupIdent(_ *Store, name string) (ID, bool) {
	if name == SelfIdent {
		return sc.Var, true
	}
	return 0, false
}

func (VariableScope) InvariantSources(*Store) []ID { return nil }

func (sc VariableScope) Parent() Scope { return sc.Up }

// Field is one labeled value of a struct chain.
type Field struct {
	Label string
	Value ID
}

// DefineStruct defines the placeholder id as the head of a struct chain
// holding fields in order. Cells after the head are allocated in scope.
func (s *Store) DefineStruct(id ID, fields []Field, scope Scope) error {
	if len(fields) == 0 {
		return s.Define(id, EmptyStruct{})
	}
	rest := s.Push(EmptyStruct{}, scope)
	for i := len(fields) - 1; i >= 1; i-- {
		rest = s.Push(Struct{Label: fields[i].Label, Value: fields[i].Value, Rest: rest}, scope)
	}
	return s.Define(id, Struct{Label: fields[0].Label, Value: fields[0].Value, Rest: rest})
}

// StructFields walks the struct chain starting at id. The walk stops at the
// first cell that is not a Struct, including unresolved cells.
func StructFields(s *Store, id ID) []Field {
	var out []Field
	for range s.Len() {
		_, def, err := s.Resolved(id)
		if err != nil {
			return out
		}
		cell, ok := def.(Struct)
		if !ok {
			return out
		}
		out = append(out, Field{Label: cell.Label, Value: cell.Value})
		id = cell.Rest
	}
	return out
}
