// Package engine implements the subcalc query surface: dependencies,
// substitution, equality, invariants and justification.
//
// ARCHITECTURE:
//
// Every query is a recursive function over the term graph owned by a
// term.Store. Recursion is bounded in one of two ways:
//   - An explicit limit parameter, decremented on every structural step.
//     Exhausting it yields NeedsHigherLimit, never a loop.
//   - An explicit stack of in-progress items, threaded through each call.
//     Re-entering an item on the stack means "self-referential, not yet
//     resolvable", not infinite recursion.
//
// JustifyAll is the only outer fixpoint. It retries with limits 0 through
// MaxLimit-1 and turns whatever is still unproven at the cap into
// diagnostics.
//
// CRITICAL PATTERNS:
//
// Determinism:
// A query is a pure function of (term graph, limit). Dependencies are
// ordered by variable Order; substitutions keep insertion order; operand
// order on equal kind priority alternates on every recursive call. The
// alternation is observable in which side of a Yes carries substitutions.
//
// Transient failures:
// term.UnresolvedError and term.PlaceholderError are propagated, never
// swallowed. Only JustifyAll converts persistent failures into diagnostics.
//
// Single thread:
// An Engine caches dependency and invariant results and appends new terms
// to its store. It must not be shared between goroutines.
package engine
