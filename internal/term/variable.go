package term

import (
	"cmp"
	"fmt"
)

// Order ranks variables. When two variables could equally drive a match the
// one with the smaller Order is canonical.
type Order struct {
	Major uint8  // explicit priority from the source
	File  uint32 // index of the defining file
	Minor uint32 // definition position within the file
}

// Compare returns -1, 0 or 1.
func (o Order) Compare(other Order) int {
	if c := cmp.Compare(o.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(o.File, other.File); c != 0 {
		return c
	}
	return cmp.Compare(o.Minor, other.Minor)
}

// Variable is a binder. It is created together with its VariableRef item
// and is immutable once defined.
type Variable struct {
	ID           uint32
	Item         ID
	Dependencies []ID
	Invariants   []ID
	Order        Order
}

// Compare orders variables by Order, then by creation.
func (v *Variable) Compare(other *Variable) int {
	if c := v.Order.Compare(other.Order); c != 0 {
		return c
	}
	return cmp.Compare(v.ID, other.ID)
}

func (v *Variable) String() string {
	return fmt.Sprintf("var#%d", v.ID)
}
