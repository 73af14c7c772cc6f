package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallProgram = `
items: {
	a: {unique: {}}
	x: {variable: {}}
}
`

// writeScenario writes a program and a scenario into a temp dir and
// returns the scenario path.
func writeScenario(t *testing.T, program, scenario string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prog.cue"), []byte(program), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/var_vs_unique.yaml")
	require.NoError(t, err)

	assert.Equal(t, "var_vs_unique", s.Name)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "programs", "var_vs_unique.cue"), s.Program)
	require.Len(t, s.Queries, 4)
	assert.Equal(t, QueryEqual, s.Queries[0].Kind())
	assert.Equal(t, "yes", s.Queries[0].Equal.Expect)
	assert.Equal(t, map[string]string{"x": "a"}, s.Queries[0].Equal.LeftSubs)
	assert.NotNil(t, s.Queries[0].Equal.RightSubs)
	assert.Nil(t, s.Queries[1].Equal.LeftSubs)
	assert.Equal(t, QueryDependencies, s.Queries[3].Kind())
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name     string
		scenario string
		errMsg   string
	}{
		{
			name:     "unknown field",
			scenario: "name: s\ndescription: d\nprogram: prog.cue\nquerys: []\n",
			errMsg:   "field querys not found",
		},
		{
			name:     "missing name",
			scenario: "description: d\nprogram: prog.cue\nqueries:\n  - justify_all: {expect: ok}\n",
			errMsg:   "name is required",
		},
		{
			name:     "missing program file",
			scenario: "name: s\ndescription: d\nprogram: nope.cue\nqueries:\n  - justify_all: {expect: ok}\n",
			errMsg:   "program file not found",
		},
		{
			name:     "no queries",
			scenario: "name: s\ndescription: d\nprogram: prog.cue\nqueries: []\n",
			errMsg:   "must be non-empty",
		},
		{
			name:     "two kinds",
			scenario: "name: s\ndescription: d\nprogram: prog.cue\nqueries:\n  - justify_all: {expect: ok}\n    dependencies: {item: x}\n",
			errMsg:   "queries[0]: exactly one of",
		},
		{
			name:     "bad outcome",
			scenario: "name: s\ndescription: d\nprogram: prog.cue\nqueries:\n  - equal: {left: x, right: a, expect: maybe}\n",
			errMsg:   `equal expect must be one of`,
		},
		{
			name:     "missing operand",
			scenario: "name: s\ndescription: d\nprogram: prog.cue\nqueries:\n  - equal: {left: x, expect: yes}\n",
			errMsg:   "left and right are required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, smallProgram, tt.scenario))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRun_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/basic_invariant.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_FailedExpectation(t *testing.T) {
	path := writeScenario(t, smallProgram, `
name: wrong
description: "x and a are equal, not unequal"
program: prog.cue
queries:
  - equal: {left: x, right: a, limit: 1, expect: "no"}
  - equal: {left: a, right: a, expect: "yes"}
`)
	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "queries[0] equal failed")
	assert.Contains(t, result.Errors[0], "Expected: no")
	assert.Contains(t, result.Errors[0], "Actual: yes")
	assert.Len(t, result.Trace, 2, "later queries still run")
}

func TestRun_SubstitutionMismatch(t *testing.T) {
	path := writeScenario(t, smallProgram, `
name: subs
description: "x is bound on the left, not the right"
program: prog.cue
queries:
  - equal: {left: x, right: a, limit: 1, expect: "yes", right_subs: {x: a}}
`)
	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "equal.right_subs failed")
	assert.Contains(t, result.Errors[0], "Expected: [x IS a]")
	assert.Contains(t, result.Errors[0], "Actual: []")
}

func TestRun_DependenciesMismatch(t *testing.T) {
	path := writeScenario(t, smallProgram, `
name: deps
description: "a unique value has no dependencies"
program: prog.cue
queries:
  - dependencies: {item: a, expect_vars: [x]}
`)
	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "queries[0] dependencies failed")
}

func TestRun_UnresolvedProgram(t *testing.T) {
	path := writeScenario(t, `items: {b: "nowhere"}`, `
name: unresolved
description: "queries do not run on a program that does not resolve"
program: prog.cue
queries:
  - justify_all: {expect: ok}
`)
	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Empty(t, result.Trace)
	require.NotEmpty(t, result.Diagnostics)
	assert.True(t, strings.HasPrefix(result.Diagnostics[0], "E201 "), result.Diagnostics[0])
	assert.Contains(t, result.Errors[0], "program does not resolve")
}

func TestRun_UnknownItem(t *testing.T) {
	path := writeScenario(t, smallProgram, `
name: unknown
description: "items must exist"
program: prog.cue
queries:
  - dependencies: {item: missing}
`)
	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `queries[0]: no item "missing"`)
}

func TestQuery_Kind(t *testing.T) {
	assert.Equal(t, "", Query{}.Kind())
	assert.Equal(t, QueryJustifyAll, Query{JustifyAll: &JustifyAllQuery{}}.Kind())
	assert.Equal(t, "", Query{JustifyAll: &JustifyAllQuery{}, Equal: &EqualQuery{}}.Kind())
}
