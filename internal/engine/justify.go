package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/subcalc/internal/diagnostic"
	"github.com/roach88/subcalc/internal/term"
)

// frame is one theorem application in progress. Re-reaching a frame means
// the proof is going in circles.
type frame struct {
	invariant term.ID
	subs      term.Substitutions
}

// justifier holds the state of one justification run: every invariant set
// reachable from the root and the stack of theorem applications.
type justifier struct {
	e     *Engine
	root  term.ID
	sets  []*InvariantSet
	seen  map[*InvariantSet]bool
	stack []frame

	// lookupErrs records the last failure per (set, requirement).
	lookupErrs map[*InvariantSet]map[int]error
	diags      []diagnostic.Diagnostic
}

func (e *Engine) newJustifier(root term.ID) *justifier {
	j := &justifier{
		e:          e,
		root:       root,
		seen:       make(map[*InvariantSet]bool),
		lookupErrs: make(map[*InvariantSet]map[int]error),
	}
	j.collect()
	return j
}

// collect gathers the invariant sets of every item reachable from the root.
func (j *justifier) collect() {
	visited := make(map[term.ID]bool)
	queue := []term.ID{j.root}
	queue = append(queue, j.e.store.Theorems()...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		set, err := j.e.Invariants(id)
		if err != nil {
			if term.IsTransient(err) {
				j.diags = append(j.diags, diagnostic.New(diagnostic.LevelError, diagnostic.CodeUnresolved,
					fmt.Sprintf("%s is not resolved", j.e.store.Label(id)), id).WithPos(j.e.store.Pos(id)))
			}
		} else {
			j.add(set)
		}
		queue = append(queue, children(j.e.store.Definition(id))...)
	}
}

func (j *justifier) add(set *InvariantSet) {
	if !j.seen[set] {
		j.seen[set] = true
		j.sets = append(j.sets, set)
	}
}

// children lists the items a definition refers to.
func children(def term.Definition) []term.ID {
	switch def := def.(type) {
	case term.Other:
		return []term.ID{def.Target}
	case term.VariableRef:
		return slices.Concat(def.Var.Dependencies, def.Var.Invariants)
	case term.Substitution:
		out := []term.ID{def.Base}
		for _, b := range def.Subs {
			out = append(out, b.Value)
		}
		return append(out, def.Requirements...)
	case term.Struct:
		return []term.ID{def.Value, def.Rest}
	case term.Decision:
		return []term.ID{def.Left, def.Right, def.Equal, def.Unequal}
	case term.WithDependencies:
		return append([]term.ID{def.Base}, def.Dependencies...)
	case term.Axiom:
		return []term.ID{def.Statement}
	default:
		return nil
	}
}

// Justify searches for ways to justify statement from the invariant sets
// visible in the scope of context.
//
// Errors are *LookupInvariantError: ErrCodeMightNotExist when the limit ran
// out somewhere, ErrCodeDeadEnd when nothing matched, and ErrCodeUnresolved
// when a term on the way is not resolved.
func (e *Engine) Justify(root, context, statement term.ID, limit uint32) (Justifications, error) {
	return e.newJustifier(root).justify(context, statement, limit)
}

func (j *justifier) justify(context, statement term.ID, limit uint32) (Justifications, error) {
	var alts Justifications
	mightNotExist := false

	for _, source := range term.VisibleInvariantSources(j.e.store, j.e.store.Scope(context)) {
		set, err := j.e.Invariants(source)
		if err != nil {
			return nil, newUnresolvedLookup(statement, err)
		}
		for _, stmt := range set.Statements {
			eq, err := j.e.TrimmedEqual(stmt, statement, limit)
			if err != nil {
				return nil, newUnresolvedLookup(statement, err)
			}
			if eq.IsTrivialYes() {
				alts = append(alts, Justification{set})
				break
			}
			if eq.Kind == KindNeedsHigherLimit {
				mightNotExist = true
			}
		}
	}

	theorems := j.e.store.Theorems()
	if limit == 0 && len(theorems) > 0 {
		mightNotExist = true
	}
	if limit > 0 {
		for _, th := range theorems {
			found, maybe, err := j.fromTheorem(context, th, statement, limit)
			if err != nil {
				return nil, err
			}
			alts = append(alts, found...)
			mightNotExist = mightNotExist || maybe
		}
	}

	switch {
	case len(alts) > 0:
		return alts, nil
	case mightNotExist:
		return nil, newMightNotExist(statement)
	default:
		return nil, newDeadEnd(statement)
	}
}

// fromTheorem tries to instantiate an auto-theorem to prove statement. The
// theorem's statement must match with substitutions on the theorem side
// only; each substituted variable's invariants are then justified
// recursively, one limit lower.
func (j *justifier) fromTheorem(context, theorem, statement term.ID, limit uint32) (Justifications, bool, error) {
	set, err := j.e.Invariants(theorem)
	if err != nil {
		return nil, false, newUnresolvedLookup(statement, err)
	}
	j.add(set)

	var alts Justifications
	mightNotExist := false
	for _, stmt := range set.Statements {
		eq, err := j.e.Equal(stmt, statement, limit-1)
		if err != nil {
			return nil, false, newUnresolvedLookup(statement, err)
		}
		if eq.Kind == KindNeedsHigherLimit {
			mightNotExist = true
		}
		if !eq.IsYes() || len(eq.Right) > 0 {
			continue
		}
		alt, maybe, err := j.checkSubs(context, set, eq.Left, limit)
		if err != nil {
			return nil, false, err
		}
		mightNotExist = mightNotExist || maybe
		if alt != nil {
			alts = append(alts, alt)
		}
	}
	return alts, mightNotExist, nil
}

// checkSubs justifies the invariants of every variable bound by subs, each
// with the bindings up to its own target applied, as requirements does. A
// frame already on the stack abandons the whole candidate. Each
// justified invariant becomes a search-created set, so connectivity flows
// through it like any other set.
func (j *justifier) checkSubs(context term.ID, theorem *InvariantSet, subs term.Substitutions, limit uint32) (Justification, bool, error) {
	alt := Justification{theorem}
	for i, b := range subs {
		prefix := subs[:i+1]
		for _, inv := range b.Target.Invariants {
			f := frame{invariant: inv, subs: prefix}
			if j.onStack(f) {
				return nil, false, nil
			}
			req, err := j.e.SubstituteUnchecked(inv, prefix)
			if err != nil {
				return nil, false, newUnresolvedLookup(inv, err)
			}

			j.stack = append(j.stack, f)
			found, err := j.justify(context, req, limit-1)
			j.stack = j.stack[:len(j.stack)-1]

			if err != nil {
				if IsUnresolvedLookup(err) {
					return nil, false, err
				}
				return nil, IsMightNotExist(err), nil
			}
			synthetic := newInvariantSet(context, []term.ID{req}, []term.ID{req}, nil)
			synthetic.Required = false
			synthetic.JustifiedBy[0] = found
			j.add(synthetic)
			alt = append(alt, synthetic)
		}
	}
	return alt, false, nil
}

func (j *justifier) onStack(f frame) bool {
	return slices.ContainsFunc(j.stack, func(g frame) bool {
		return g.invariant == f.invariant && slices.Equal(g.subs, f.subs)
	})
}

// JustifyAll discharges every requirement reachable from root. It retries
// with limits 0 through MaxLimit-1, connecting sets to the root after each
// pass, and stops early once every required set is connected or nothing can
// change any more.
//
// Requirements still unconnected at the cap become error diagnostics and
// the returned error is an *UnjustifiedError.
func (e *Engine) JustifyAll(root term.ID) ([]diagnostic.Diagnostic, error) {
	j := e.newJustifier(root)

	for limit := range e.maxLimit {
		needsHigher := j.pass(limit)
		connected := j.propagate()
		e.logger.Debug("justify pass",
			slog.Uint64("limit", uint64(limit)),
			slog.Int("sets", len(j.sets)),
			slog.Int("connected", connected),
			slog.Int("unconnected_required", len(j.unconnectedRequired())),
		)
		if len(j.unconnectedRequired()) == 0 {
			break
		}
		if !needsHigher {
			break
		}
	}

	j.report()
	if diagnostic.HasErrors(j.diags) {
		e.logger.Warn("unjustified invariants", slog.Int("errors", diagnostic.Count(j.diags, diagnostic.LevelError)))
		return j.diags, &UnjustifiedError{Diagnostics: j.diags}
	}
	return j.diags, nil
}

// pass tries every undischarged requirement of every unconnected set at
// limit. It reports whether any lookup could succeed at a higher limit.
func (j *justifier) pass(limit uint32) bool {
	needsHigher := false
	// Sets may be appended while iterating.
	for i := 0; i < len(j.sets); i++ {
		set := j.sets[i]
		if set.ConnectedToRoot {
			continue
		}
		for r, req := range set.Requirements {
			if set.justified(r) {
				continue
			}
			found, err := j.justify(set.Context, req, limit)
			if err == nil {
				// A set never justifies its own requirements.
				found = slices.DeleteFunc(found, func(alt Justification) bool {
					return slices.Contains(alt, set)
				})
				if len(found) == 0 {
					err = newMightNotExist(req)
				}
			}
			if err != nil {
				j.recordErr(set, r, err)
				needsHigher = needsHigher || IsMightNotExist(err)
				continue
			}
			set.JustifiedBy[r] = found
			delete(j.lookupErrs[set], r)
		}
	}
	return needsHigher
}

func (j *justifier) recordErr(set *InvariantSet, r int, err error) {
	if j.lookupErrs[set] == nil {
		j.lookupErrs[set] = make(map[int]error)
	}
	j.lookupErrs[set][r] = err
}

// propagate connects sets to the root until a fixpoint and returns the
// number of connected sets.
func (j *justifier) propagate() int {
	for changed := true; changed; {
		changed = false
		for _, set := range j.sets {
			if !set.ConnectedToRoot && set.satisfied() {
				set.ConnectedToRoot = true
				changed = true
			}
		}
	}
	n := 0
	for _, set := range j.sets {
		if set.ConnectedToRoot {
			n++
		}
	}
	return n
}

func (j *justifier) unconnectedRequired() []*InvariantSet {
	var out []*InvariantSet
	for _, set := range j.sets {
		if set.Required && !set.ConnectedToRoot {
			out = append(out, set)
		}
	}
	return out
}

// report turns the sets still unconnected at the cap into diagnostics.
func (j *justifier) report() {
	store := j.e.store
	for _, set := range j.unconnectedRequired() {
		ctx := store.Label(set.Context)
		pos := store.Pos(set.Context)

		allJustified := true
		for r := range set.Requirements {
			if !set.justified(r) {
				allJustified = false
			}
		}
		if allJustified {
			j.diags = append(j.diags, diagnostic.New(diagnostic.LevelError, diagnostic.CodeCircular,
				fmt.Sprintf("circular justification: the requirements of %s are only justified by sets that depend on it", ctx),
				append([]term.ID{set.Context}, set.Requirements...)...).WithPos(pos))
			continue
		}

		for r, req := range set.Requirements {
			if set.justified(r) {
				continue
			}
			msg := fmt.Sprintf("could not justify %s required by the substitution %s", store.Label(req), ctx)
			err := j.lookupErrs[set][r]
			var le *LookupInvariantError
			if errors.As(err, &le) {
				le.Exhausted = true
				msg += " (" + le.Error() + ")"
			}
			j.diags = append(j.diags, diagnostic.New(diagnostic.LevelError, diagnostic.CodeUnjustified,
				msg, req, set.Context).WithPos(pos))
			if IsMightNotExist(err) {
				j.diags = append(j.diags, diagnostic.New(diagnostic.LevelInfo, diagnostic.CodeMightNotExist,
					fmt.Sprintf("the search limit was reached while justifying %s; a justification might exist", store.Label(req)),
					req).WithPos(pos))
			}
		}
	}
}
