package term

import "fmt"

// Position locates an item in source.
type Position struct {
	File   string
	Line   int
	Column int
}

// IsValid reports whether p names a source location.
func (p Position) IsValid() bool {
	return p.File != "" || p.Line > 0
}

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

type slot struct {
	def      Definition
	name     string
	scope    Scope
	pos      Position
	defining bool
}

// Store owns every term of a program.
//
// INVARIANTS:
//   - A slot leaves Placeholder at most once (Define, DefineWith)
//   - A slot leaves Unresolved at most once (Resolve)
//   - Other.Recursive only ever goes false -> true
type Store struct {
	slots         []slot
	variables     []*Variable
	uniques       uint32
	file          uint32
	languageItems map[string]ID
	theorems      []ID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{languageItems: make(map[string]ID)}
}

// Len returns the number of slots.
func (s *Store) Len() int { return len(s.slots) }

// SetFile sets the file index recorded in the Order of new variables.
func (s *Store) SetFile(index uint32) { s.file = index }

// Placeholder allocates an undefined slot.
func (s *Store) Placeholder(name string, scope Scope) ID {
	s.slots = append(s.slots, slot{def: Placeholder{}, name: name, scope: scope})
	return ID(len(s.slots) - 1)
}

// Push allocates a slot that is defined immediately.
func (s *Store) Push(def Definition, scope Scope) ID {
	s.slots = append(s.slots, slot{def: def, scope: scope})
	return ID(len(s.slots) - 1)
}

// Define gives a placeholder its definition. It may be called once per slot.
func (s *Store) Define(id ID, def Definition) error {
	sl, err := s.slot(id)
	if err != nil {
		return err
	}
	if sl.defining {
		return &DefineError{Code: ErrCodeReentrant, Item: id, Message: "define re-entered while in progress"}
	}
	if _, ok := sl.def.(Placeholder); !ok {
		return &DefineError{Code: ErrCodeAlreadyDefined, Item: id, Message: "slot is already " + sl.def.Kind().String()}
	}
	sl.def = def
	return nil
}

// DefineWith computes a placeholder's definition with fn and stores it. The
// slot is marked in progress while fn runs; a nested Define or DefineWith on
// the same slot fails with ErrCodeReentrant.
func (s *Store) DefineWith(id ID, fn func() (Definition, error)) error {
	sl, err := s.slot(id)
	if err != nil {
		return err
	}
	if sl.defining {
		return &DefineError{Code: ErrCodeReentrant, Item: id, Message: "define re-entered while in progress"}
	}
	if _, ok := sl.def.(Placeholder); !ok {
		return &DefineError{Code: ErrCodeAlreadyDefined, Item: id, Message: "slot is already " + sl.def.Kind().String()}
	}
	sl.defining = true
	def, err := fn()
	// fn may have appended slots; re-fetch.
	s.slots[id].defining = false
	if err != nil {
		return err
	}
	s.slots[id].def = def
	return nil
}

// Resolve replaces an Unresolved definition.
func (s *Store) Resolve(id ID, def Definition) error {
	sl, err := s.slot(id)
	if err != nil {
		return err
	}
	if _, ok := sl.def.(Unresolved); !ok {
		return &DefineError{Code: ErrCodeNotUnresolved, Item: id, Message: "slot is " + sl.def.Kind().String()}
	}
	sl.def = def
	return nil
}

// MarkRecursive sets the Recursive flag on an Other indirection.
func (s *Store) MarkRecursive(id ID) error {
	sl, err := s.slot(id)
	if err != nil {
		return err
	}
	other, ok := sl.def.(Other)
	if !ok {
		return &DefineError{Code: ErrCodeAlreadyDefined, Item: id, Message: "only an indirection can be marked recursive"}
	}
	other.Recursive = true
	sl.def = other
	return nil
}

func (s *Store) slot(id ID) (*slot, error) {
	if int(id) >= len(s.slots) {
		return nil, &DefineError{Code: ErrCodeUnknownItem, Item: id, Message: "no such item"}
	}
	return &s.slots[id], nil
}

// Definition returns the raw definition of id without following
// indirections. It panics if id is not in the store.
func (s *Store) Definition(id ID) Definition {
	return s.slots[id].def
}

// Name returns the name recorded for id, if any.
func (s *Store) Name(id ID) string { return s.slots[id].name }

// SetName records a display name for id.
func (s *Store) SetName(id ID, name string) { s.slots[id].name = name }

// Scope returns the lexical scope of id.
func (s *Store) Scope(id ID) Scope { return s.slots[id].scope }

// SetScope replaces the lexical scope of id.
func (s *Store) SetScope(id ID, scope Scope) { s.slots[id].scope = scope }

// Pos returns the source position of id.
func (s *Store) Pos(id ID) Position { return s.slots[id].pos }

// SetPos records the source position of id.
func (s *Store) SetPos(id ID, pos Position) { s.slots[id].pos = pos }

// Label returns the name of id, or a generated label for anonymous items.
func (s *Store) Label(id ID) string {
	if name := s.slots[id].name; name != "" {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

// Dereference follows Other indirections to the canonical term. It stops at
// a recursive Other, and at an unmarked alias cycle after visiting every
// slot once. Placeholder and Unresolved targets are reported as errors along
// with the ID reached.
func (s *Store) Dereference(id ID) (ID, error) {
	for steps := 0; ; steps++ {
		switch def := s.slots[id].def.(type) {
		case Other:
			if def.Recursive || steps > len(s.slots) {
				return id, nil
			}
			id = def.Target
		case Placeholder:
			return id, &PlaceholderError{Item: id, Name: s.slots[id].name}
		case Unresolved:
			return id, &UnresolvedError{Item: id, Name: s.slots[id].name}
		default:
			return id, nil
		}
	}
}

// Resolved dereferences id and returns the definition reached.
func (s *Store) Resolved(id ID) (ID, Definition, error) {
	id, err := s.Dereference(id)
	if err != nil {
		return id, nil, err
	}
	return id, s.slots[id].def, nil
}

// Variable returns the binder id dereferences to, if it is a variable.
func (s *Store) Variable(id ID) (*Variable, bool) {
	_, def, err := s.Resolved(id)
	if err != nil {
		return nil, false
	}
	ref, ok := def.(VariableRef)
	if !ok {
		return nil, false
	}
	return ref.Var, true
}

// NewUnique allocates a fresh unique value.
func (s *Store) NewUnique(scope Scope) ID {
	s.uniques++
	return s.Push(Unique{UniqueID: s.uniques}, scope)
}

// DefineVariable turns the placeholder id into a variable. Invariants and
// dependencies may refer to id, which is how SELF works.
func (s *Store) DefineVariable(id ID, dependencies, invariants []ID, major uint8) (*Variable, error) {
	v := &Variable{
		ID:           uint32(len(s.variables)),
		Item:         id,
		Dependencies: append([]ID(nil), dependencies...),
		Invariants:   append([]ID(nil), invariants...),
		Order:        Order{Major: major, File: s.file, Minor: uint32(len(s.variables))},
	}
	if err := s.Define(id, VariableRef{Var: v}); err != nil {
		return nil, err
	}
	s.variables = append(s.variables, v)
	return v, nil
}

// NewVariable allocates and defines a variable in one step.
func (s *Store) NewVariable(name string, scope Scope, dependencies, invariants []ID) *Variable {
	id := s.Placeholder(name, scope)
	v, err := s.DefineVariable(id, dependencies, invariants, 0)
	if err != nil {
		// A fresh placeholder cannot already be defined.
		panic(err)
	}
	return v
}

// Variables returns every binder in creation order.
func (s *Store) Variables() []*Variable {
	return append([]*Variable(nil), s.variables...)
}

// LanguageItem returns the built-in term registered under name.
func (s *Store) LanguageItem(name string) (ID, bool) {
	id, ok := s.languageItems[name]
	return id, ok
}

// DefineLanguageItem registers id as the built-in term name.
func (s *Store) DefineLanguageItem(name string, id ID) error {
	if existing, ok := s.languageItems[name]; ok {
		return &DefineError{
			Code:    ErrCodeDuplicateLanguageItem,
			Item:    id,
			Message: fmt.Sprintf("language item %q is already item %d", name, existing),
		}
	}
	s.languageItems[name] = id
	return nil
}

// AddTheorem registers an axiom item whose statement the justification
// search may use anywhere.
func (s *Store) AddTheorem(id ID) {
	s.theorems = append(s.theorems, id)
}

// Theorems returns the registered axiom items in registration order.
func (s *Store) Theorems() []ID {
	return append([]ID(nil), s.theorems...)
}
