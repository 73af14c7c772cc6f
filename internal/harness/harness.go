package harness

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/subcalc/internal/compiler"
	"github.com/roach88/subcalc/internal/diagnostic"
	"github.com/roach88/subcalc/internal/engine"
	"github.com/roach88/subcalc/internal/report"
	"github.com/roach88/subcalc/internal/term"
)

// Harness runs the queries of one scenario against one engine.
type Harness struct {
	program *compiler.Program
	engine  *engine.Engine
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load and compile the program
//  2. Resolve it; resolution errors fail the scenario without running queries
//  3. Run each query, recording its answer in the trace
//  4. Compare each answer with the query's expectation
//
// The returned error is for scenarios that cannot run at all; failed
// expectations are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	program, err := compiler.LoadFile(scenario.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		program: program,
		engine:  engine.New(program.Store, engine.WithLogger(logger)),
		logger:  logger,
	}

	result := NewResult()
	diags := compiler.ResolveAll(h.engine)
	for _, d := range diags {
		result.Diagnostics = append(result.Diagnostics, d.Code+" "+d.Message)
	}
	if diagnostic.HasErrors(diags) {
		result.AddError(fmt.Sprintf("program does not resolve: %d error(s)", diagnostic.Count(diags, diagnostic.LevelError)))
		return result, nil
	}

	for i, q := range scenario.Queries {
		if err := h.runQuery(i, q, result); err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
	}
	return result, nil
}

func (h *Harness) runQuery(index int, q Query, result *Result) error {
	switch q.Kind() {
	case QueryEqual:
		return h.equal(index, q.Equal, result)
	case QueryJustify:
		return h.justify(index, q.Justify, result)
	case QueryJustifyAll:
		return h.justifyAll(index, q.JustifyAll, result)
	case QueryDependencies:
		return h.dependencies(index, q.Dependencies, result)
	default:
		return fmt.Errorf("exactly one query kind is required")
	}
}

func (h *Harness) lookup(path string) (term.ID, error) {
	id, ok := h.program.Lookup(path)
	if !ok {
		return 0, fmt.Errorf("no item %q", path)
	}
	return id, nil
}

func (h *Harness) equal(index int, q *EqualQuery, result *Result) error {
	left, err := h.lookup(q.Left)
	if err != nil {
		return err
	}
	right, err := h.lookup(q.Right)
	if err != nil {
		return err
	}

	query := h.engine.Equal
	if q.Trim {
		query = h.engine.TrimmedEqual
	}
	eq, err := query(left, right, q.Limit)
	if err != nil {
		return err
	}

	input := report.Object{
		"left":  report.String(q.Left),
		"right": report.String(q.Right),
		"limit": report.Int(q.Limit),
	}
	if q.Trim {
		input["trim"] = report.Bool(true)
	}
	result.AddTrace(QueryEqual, input, report.EqualValue(h.program.Store, eq))
	h.logger.Debug("equal", slog.String("left", q.Left), slog.String("right", q.Right), slog.String("result", eq.String()))

	if got := eq.Kind.String(); got != q.Expect {
		h.fail(result, index, QueryEqual, q.Expect, got)
		return nil
	}
	h.checkSubs(result, index, "left_subs", q.LeftSubs, eq.Left)
	h.checkSubs(result, index, "right_subs", q.RightSubs, eq.Right)
	return nil
}

func (h *Harness) checkSubs(result *Result, index int, field string, expected map[string]string, subs term.Substitutions) {
	if expected == nil {
		return
	}
	actual := make(map[string]string, len(subs))
	for _, b := range subs {
		actual[h.program.Store.Label(b.Target.Item)] = report.Render(h.program.Store, b.Value)
	}
	if !maps.Equal(expected, actual) {
		h.fail(result, index, QueryEqual+"."+field, formatSubs(expected), formatSubs(actual))
	}
}

func formatSubs(subs map[string]string) string {
	parts := make([]string, 0, len(subs))
	for _, k := range slices.Sorted(maps.Keys(subs)) {
		parts = append(parts, k+" IS "+subs[k])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (h *Harness) justify(index int, q *JustifyQuery, result *Result) error {
	context, err := h.lookup(q.Context)
	if err != nil {
		return err
	}
	statement, err := h.lookup(q.Statement)
	if err != nil {
		return err
	}

	found, err := h.engine.Justify(h.program.Root, context, statement, q.Limit)
	var outcome string
	switch {
	case err == nil:
		outcome = "ok"
	case engine.IsDeadEnd(err):
		outcome = "dead_end"
	case engine.IsMightNotExist(err):
		outcome = "might_not_exist"
	case engine.IsUnresolvedLookup(err):
		outcome = "unresolved"
	default:
		return err
	}

	output := report.Object{"result": report.String(outcome)}
	if err == nil {
		output["justifications"] = report.JustificationsValue(h.program.Store, found)
	}
	result.AddTrace(QueryJustify, report.Object{
		"context":   report.String(q.Context),
		"statement": report.String(q.Statement),
		"limit":     report.Int(q.Limit),
	}, output)

	if outcome != q.Expect {
		h.fail(result, index, QueryJustify, q.Expect, outcome)
	}
	return nil
}

func (h *Harness) justifyAll(index int, q *JustifyAllQuery, result *Result) error {
	diags, err := h.engine.JustifyAll(h.program.Root)
	outcome := "ok"
	if err != nil {
		if !engine.IsUnjustified(err) {
			return err
		}
		outcome = "unjustified"
	}

	found := make(report.Array, len(diags))
	for i, d := range diags {
		found[i] = report.Object{
			"code":    report.String(d.Code),
			"message": report.String(d.Message),
		}
	}
	result.AddTrace(QueryJustifyAll, report.Object{}, report.Object{
		"result":      report.String(outcome),
		"diagnostics": found,
	})

	if outcome != q.Expect {
		h.fail(result, index, QueryJustifyAll, q.Expect, outcome)
	}
	return nil
}

func (h *Harness) dependencies(index int, q *DependenciesQuery, result *Result) error {
	item, err := h.lookup(q.Item)
	if err != nil {
		return err
	}
	deps := h.engine.Dependencies(item)
	if err := deps.Err(); err != nil {
		return err
	}

	result.AddTrace(QueryDependencies, report.Object{"item": report.String(q.Item)},
		report.DependenciesValue(h.program.Store, deps))

	if q.ExpectVars == nil {
		return nil
	}
	vars := deps.Vars()
	actual := make([]string, len(vars))
	for i, v := range vars {
		actual[i] = h.program.Store.Label(v.Item)
	}
	if !slices.Equal(q.ExpectVars, actual) {
		h.fail(result, index, QueryDependencies, fmt.Sprint(q.ExpectVars), fmt.Sprint(actual))
	}
	return nil
}

func (h *Harness) fail(result *Result, index int, query, expected, actual string) {
	err := &QueryError{Index: index, Query: query, Expected: expected, Actual: actual}
	h.logger.Info("expectation failed", slog.Int("query", index), slog.String("expected", expected), slog.String("actual", actual))
	result.AddError(err.Error())
}
