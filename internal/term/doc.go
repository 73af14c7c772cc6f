// Package term provides the arena that owns every term of a program.
//
// Terms are addressed by ID handles. Identity is positional: two IDs are the
// same term only if they are the same slot. Whether two different slots
// denote the same value is a question for the engine package.
//
// Self-referential terms are built in two phases. A slot is first allocated
// as a Placeholder and later given its Definition exactly once. Slots created
// by a resolver start out Unresolved and are resolved at most once.
//
// Key constraints:
//   - Definitions are never mutated after they are set, except for the
//     Recursive mark on an Other indirection
//   - term imports nothing internal; engine, compiler and harness build on it
//   - The Store is not safe for concurrent use
package term
