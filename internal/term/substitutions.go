package term

// Binding maps one variable to a value.
type Binding struct {
	Target *Variable
	Value  ID
}

// Substitutions is an ordered variable-to-term mapping. A later value may
// mention a variable bound by an earlier entry, so order is significant.
//
// INVARIANT: a target appears at most once.
type Substitutions []Binding

// Get returns the value bound to v.
func (s Substitutions) Get(v *Variable) (ID, bool) {
	for _, b := range s {
		if b.Target == v {
			return b.Value, true
		}
	}
	return 0, false
}

// Contains reports whether v is a target.
func (s Substitutions) Contains(v *Variable) bool {
	_, ok := s.Get(v)
	return ok
}

// Insert appends v -> value. It reports false, leaving s unchanged, if v is
// already a target.
func (s *Substitutions) Insert(v *Variable, value ID) bool {
	if s.Contains(v) {
		return false
	}
	*s = append(*s, Binding{Target: v, Value: value})
	return true
}

// Set binds v to value, replacing any existing binding in place.
func (s *Substitutions) Set(v *Variable, value ID) {
	for i := range *s {
		if (*s)[i].Target == v {
			(*s)[i].Value = value
			return
		}
	}
	*s = append(*s, Binding{Target: v, Value: value})
}

// Without returns a copy of s with v removed.
func (s Substitutions) Without(v *Variable) Substitutions {
	out := make(Substitutions, 0, len(s))
	for _, b := range s {
		if b.Target != v {
			out = append(out, b)
		}
	}
	return out
}

// Clone returns a copy that does not share storage with s.
func (s Substitutions) Clone() Substitutions {
	if s == nil {
		return nil
	}
	out := make(Substitutions, len(s))
	copy(out, s)
	return out
}

// Targets returns the bound variables in order.
func (s Substitutions) Targets() []*Variable {
	out := make([]*Variable, len(s))
	for i, b := range s {
		out[i] = b.Target
	}
	return out
}
