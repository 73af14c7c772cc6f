package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/subcalc/internal/term"
)

// EqualKind is the outcome of an equality query.
type EqualKind uint8

const (
	// KindYes means the terms are equal once Left and Right are applied to
	// the left and right operands respectively.
	KindYes EqualKind = iota

	// KindNo means the terms can never be equal.
	KindNo

	// KindUnknown means the engine cannot decide.
	KindUnknown

	// KindNeedsHigherLimit means the limit ran out before a decision.
	KindNeedsHigherLimit
)

func (k EqualKind) String() string {
	switch k {
	case KindYes:
		return "yes"
	case KindNo:
		return "no"
	case KindUnknown:
		return "unknown"
	case KindNeedsHigherLimit:
		return "needs_higher_limit"
	default:
		return fmt.Sprintf("equal(%d)", uint8(k))
	}
}

// Equal is the result of comparing two terms.
type Equal struct {
	Kind  EqualKind
	Left  term.Substitutions
	Right term.Substitutions
}

var (
	// No is the definite negative answer.
	No = Equal{Kind: KindNo}

	// Unknown is the undecided answer.
	Unknown = Equal{Kind: KindUnknown}

	// NeedsHigherLimit asks the caller to retry with a larger limit.
	NeedsHigherLimit = Equal{Kind: KindNeedsHigherLimit}
)

// Yes builds a positive answer with the given substitutions.
func Yes(left, right term.Substitutions) Equal {
	return Equal{Kind: KindYes, Left: left, Right: right}
}

// IsYes reports a positive answer with any substitutions.
func (eq Equal) IsYes() bool { return eq.Kind == KindYes }

// IsTrivialYes reports a positive answer that needs no substitutions.
func (eq Equal) IsTrivialYes() bool {
	return eq.Kind == KindYes && len(eq.Left) == 0 && len(eq.Right) == 0
}

// Swap exchanges the sides of the answer.
func (eq Equal) Swap() Equal {
	eq.Left, eq.Right = eq.Right, eq.Left
	return eq
}

func (eq Equal) String() string {
	if eq.Kind != KindYes {
		return eq.Kind.String()
	}
	return fmt.Sprintf("yes(%s | %s)", formatSubs(eq.Left), formatSubs(eq.Right))
}

func formatSubs(subs term.Substitutions) string {
	parts := make([]string, len(subs))
	for i, b := range subs {
		parts[i] = fmt.Sprintf("%s->%d", b.Target, b.Value)
	}
	return strings.Join(parts, ", ")
}

// sameValue decides whether two values bound to one target agree.
type sameValue func(a, b term.ID) bool

func identical(a, b term.ID) bool { return a == b }

// And combines answers that must all hold. Any No wins; Unknown is sticky
// over NeedsHigherLimit, which in turn downgrades Yes. Substitutions are
// merged in order; a target bound to two different values is Unknown.
func And(parts ...Equal) Equal {
	return and(identical, parts...)
}

func and(same sameValue, parts ...Equal) Equal {
	result := Yes(nil, nil)
	for _, part := range parts {
		switch part.Kind {
		case KindNo:
			return No
		case KindUnknown:
			result = Unknown
		case KindNeedsHigherLimit:
			if result.Kind == KindYes {
				result = NeedsHigherLimit
			}
		case KindYes:
			if result.Kind != KindYes {
				continue
			}
			left, ok := mergeSubs(same, result.Left, part.Left)
			if !ok {
				result = Unknown
				continue
			}
			right, ok := mergeSubs(same, result.Right, part.Right)
			if !ok {
				result = Unknown
				continue
			}
			result.Left, result.Right = left, right
		}
	}
	return result
}

func mergeSubs(same sameValue, into, from term.Substitutions) (term.Substitutions, bool) {
	if len(from) == 0 {
		return into, true
	}
	out := into.Clone()
	for _, b := range from {
		existing, ok := out.Get(b.Target)
		if !ok {
			out = append(out, b)
			continue
		}
		if !same(existing, b.Value) {
			return nil, false
		}
	}
	return out, true
}

// Or returns the first Yes. Otherwise NeedsHigherLimit wins over Unknown,
// which wins over No.
func Or(parts ...Equal) Equal {
	result := No
	for _, part := range parts {
		switch part.Kind {
		case KindYes:
			return part
		case KindNeedsHigherLimit:
			result = NeedsHigherLimit
		case KindUnknown:
			if result.Kind == KindNo {
				result = Unknown
			}
		}
	}
	return result
}

// and merges with the engine's notion of agreement: identical handles, or
// values that are trivially equal once trimmed at limit.
func (e *Engine) and(limit uint32, parts ...Equal) (Equal, error) {
	var firstErr error
	same := func(a, b term.ID) bool {
		if a == b {
			return true
		}
		if limit == 0 {
			return false
		}
		eq, err := e.TrimmedEqual(a, b, limit)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return false
		}
		return eq.IsTrivialYes()
	}
	result := and(same, parts...)
	if firstErr != nil {
		return Unknown, firstErr
	}
	return result, nil
}
