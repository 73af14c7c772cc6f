package engine

import (
	"log/slog"

	"github.com/roach88/subcalc/internal/term"
)

// DefaultMaxLimit is the hard cap of the justification fixpoint.
const DefaultMaxLimit = 16

// decisionIntersectionLimit bounds the equality used to intersect the
// statements of decision branches.
const decisionIntersectionLimit = 4

// trimLimit bounds the equality used to drop identity substitutions while
// trimming and merging.
const trimLimit = 4

// Engine answers queries over one term store.
//
// INVARIANTS:
//   - The store only grows while the engine runs; existing slots are never
//     redefined by the engine
//   - depCache holds complete results only (no skipped items, no error)
//   - invCache entries are created once and only their justification state
//     changes afterwards
type Engine struct {
	store    *term.Store
	logger   *slog.Logger
	maxLimit uint32

	depCache map[term.ID]Dependencies
	invCache map[term.ID]*InvariantSet
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxLimit sets the hard cap of JustifyAll.
//
// Default: 16 (DefaultMaxLimit)
func WithMaxLimit(limit uint32) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.maxLimit = limit
		}
	}
}

// WithLogger sets the logger used for fixpoint progress.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine over s.
func New(s *term.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		logger:   slog.Default(),
		maxLimit: DefaultMaxLimit,
		depCache: make(map[term.ID]Dependencies),
		invCache: make(map[term.ID]*InvariantSet),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the store the engine queries.
func (e *Engine) Store() *term.Store { return e.store }

// MaxLimit returns the configured hard cap.
func (e *Engine) MaxLimit() uint32 { return e.maxLimit }

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }
