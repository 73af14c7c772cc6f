package term

import "fmt"

// ID is a stable handle into a Store.
type ID uint32

// Kind identifies the variant of a Definition.
type Kind uint8

const (
	KindPlaceholder Kind = iota
	KindUnresolved
	KindOther
	KindVariable
	KindSubstitution
	KindUnique
	KindStruct
	KindEmptyStruct
	KindDecision
	KindWithDependencies
	KindAxiom
)

var kindNames = [...]string{
	KindPlaceholder:      "placeholder",
	KindUnresolved:       "unresolved",
	KindOther:            "other",
	KindVariable:         "variable",
	KindSubstitution:     "substitution",
	KindUnique:           "unique",
	KindStruct:           "struct",
	KindEmptyStruct:      "empty_struct",
	KindDecision:         "decision",
	KindWithDependencies: "with_dependencies",
	KindAxiom:            "axiom",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Priority decides which operand's equality rule runs first when two
// dereferenced terms are compared. Higher runs first; ties alternate.
//
// The values are observable: they decide which side of a Yes result carries
// the substitutions.
func (k Kind) Priority() uint8 {
	switch k {
	case KindWithDependencies:
		return 255
	case KindUnique, KindEmptyStruct:
		return 100
	case KindStruct:
		return 90
	case KindDecision:
		return 80
	default:
		return 0
	}
}

// Definition is a sealed interface over term variants.
// Only the types in this file implement it.
type Definition interface {
	Kind() Kind
	definition() // Sealed
}

// Placeholder is an allocated slot awaiting its one-time definition.
type Placeholder struct{}

func (Placeholder) Kind() Kind  { return KindPlaceholder }
func (Placeholder) definition() {}

// Resolvable describes work a resolver still has to do before a slot has a
// real definition. Concrete resolvables live with the resolver.
type Resolvable interface {
	String() string
}

// Unresolved is a slot whose definition depends on names or dependency
// lists that are not yet known.
type Unresolved struct {
	Resolvable Resolvable
}

func (Unresolved) Kind() Kind  { return KindUnresolved }
func (Unresolved) definition() {}

// Other is an indirection to another term.
//
// Recursive is set once, by alias-cycle analysis, on the indirection that
// closes a cycle. Dereference stops at a recursive Other.
type Other struct {
	Target    ID
	Recursive bool
}

func (Other) Kind() Kind  { return KindOther }
func (Other) definition() {}

// VariableRef is the term wrapping a binder.
type VariableRef struct {
	Var *Variable
}

func (VariableRef) Kind() Kind  { return KindVariable }
func (VariableRef) definition() {}

// Substitution applies an ordered mapping to a base term. Requirements holds
// one justification obligation per target invariant, computed when the
// substitution was built.
type Substitution struct {
	Base         ID
	Subs         Substitutions
	Requirements []ID
}

func (Substitution) Kind() Kind  { return KindSubstitution }
func (Substitution) definition() {}

// Unique is a primitive value equal only to itself.
type Unique struct {
	UniqueID uint32
}

func (Unique) Kind() Kind  { return KindUnique }
func (Unique) definition() {}

// Struct is one labeled cell of a struct chain. Rest is either another
// Struct or an EmptyStruct.
type Struct struct {
	Label string
	Value ID
	Rest  ID
}

func (Struct) Kind() Kind  { return KindStruct }
func (Struct) definition() {}

// EmptyStruct terminates a struct chain.
type EmptyStruct struct{}

func (EmptyStruct) Kind() Kind  { return KindEmptyStruct }
func (EmptyStruct) definition() {}

// Decision evaluates to Equal when Left and Right are the same value and to
// Unequal otherwise. Decisions are never reduced by the engine.
type Decision struct {
	Left    ID
	Right   ID
	Equal   ID
	Unequal ID
}

func (Decision) Kind() Kind  { return KindDecision }
func (Decision) definition() {}

// WithDependencies fixes which free variables Base exposes, and in which
// order, to those of Dependencies.
type WithDependencies struct {
	Base         ID
	Dependencies []ID
}

func (WithDependencies) Kind() Kind  { return KindWithDependencies }
func (WithDependencies) definition() {}

// Axiom asserts Statement without proof.
type Axiom struct {
	Statement ID
}

func (Axiom) Kind() Kind  { return KindAxiom }
func (Axiom) definition() {}
