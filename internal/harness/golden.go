package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/subcalc/internal/report"
)

// Snapshot returns the canonical JSON of a scenario's trace.
// Only the scenario name, the resolver diagnostics and the trace are
// included, so the bytes depend on nothing but the program and queries.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make(report.Array, len(result.Trace))
	for i, event := range result.Trace {
		trace[i] = report.Object{
			"query":  report.String(event.Query),
			"input":  event.Input,
			"output": event.Output,
		}
	}
	return report.MarshalCanonical(report.Object{
		"scenario":    report.String(name),
		"diagnostics": report.Strings(result.Diagnostics...),
		"trace":       trace,
	})
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}
