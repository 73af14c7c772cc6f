package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/subcalc/internal/report"
	"github.com/roach88/subcalc/internal/testutil"
)

// unjustifiedProgram substitutes y although nothing proves a = a.
const unjustifiedProgram = `items: {
	a: {unique: {}}
	y: {variable: {invariants: [{equal: ["SELF", "a"]}]}}
	s: {substitute: {base: "y", named: {y: "a"}}}
}
`

// justifiedProgram is unjustifiedProgram plus reflexivity.
const justifiedProgram = `items: {
	a: {unique: {}}
	y: {variable: {invariants: [{equal: ["SELF", "a"]}]}}
	x: {variable: {}}
	refl: {axiom: {equal: ["x", "x"]}}
	s: {substitute: {base: "y", named: {y: "a"}}}
}
`

func runCheckCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCheckCommand(&RootOptions{Format: format, MaxLimit: 4})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

type checkData struct {
	Programs []struct {
		File        string `json:"file"`
		Items       int    `json:"items"`
		Status      string `json:"status"`
		RunID       string `json:"run_id"`
		Digest      string `json:"digest"`
		Diagnostics []struct {
			Code  string   `json:"code"`
			Level string   `json:"level"`
			Terms []string `json:"terms"`
		} `json:"diagnostics"`
	} `json:"programs"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

func TestCheckCommandMissingArgs(t *testing.T) {
	_, err := runCheckCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestCheckCommandOK(t *testing.T) {
	path := writeProgram(t, "prog.cue", okProgram)

	out, err := runCheckCommand(t, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+path+": 4 item(s), ok")
	assert.Contains(t, out, "Check Summary: 1 passed, 0 failed, 1 total")
}

func TestCheckCommandUnresolved(t *testing.T) {
	path := writeProgram(t, "prog.cue", unresolvedProgram)

	out, err := runCheckCommand(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ "+path+": 1 item(s), unresolved")
	assert.Contains(t, out, "[E201]")
}

func TestCheckCommandUnjustified(t *testing.T) {
	path := writeProgram(t, "prog.cue", unjustifiedProgram)

	out, err := runCheckCommand(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "unjustified")
	assert.Contains(t, out, "[E202]")
}

func TestCheckCommandJustified(t *testing.T) {
	path := writeProgram(t, "prog.cue", justifiedProgram)

	out, err := runCheckCommand(t, "text", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "5 item(s), ok")
}

func TestCheckCommandMissingProgram(t *testing.T) {
	out, err := runCheckCommand(t, "text", "/nonexistent/prog.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestCheckCommandParallelJSON(t *testing.T) {
	ok := writeProgram(t, "ok.cue", okProgram)
	bad := writeProgram(t, "bad.cue", unresolvedProgram)

	out, err := runCheckCommand(t, "json", ok, bad, ok, "--workers", "2")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_CHECK_FAILED", resp.Error.Code)

	var data checkData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 3, data.Total)
	assert.Equal(t, 1, data.Failed)
	require.Len(t, data.Programs, 3)

	// Results keep argument order whatever order the workers finish in.
	assert.Equal(t, ok, data.Programs[0].File)
	assert.Equal(t, bad, data.Programs[1].File)
	assert.Equal(t, ok, data.Programs[2].File)
	assert.Equal(t, report.StatusOK, data.Programs[0].Status)
	assert.Equal(t, report.StatusUnresolved, data.Programs[1].Status)
	require.NotEmpty(t, data.Programs[1].Diagnostics)
	assert.Equal(t, "E201", data.Programs[1].Diagnostics[0].Code)

	// Same program, same digest, different run.
	assert.Equal(t, data.Programs[0].Digest, data.Programs[2].Digest)
	assert.NotEqual(t, data.Programs[0].RunID, data.Programs[2].RunID)
}

func TestCheckProgram_FixedRunID(t *testing.T) {
	path := writeProgram(t, "prog.cue", okProgram)
	opts := &CheckOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      testutil.NewFixedRunID("run-1"),
	}

	first, err := checkProgram(opts, path)
	require.NoError(t, err)
	second, err := checkProgram(opts, path)
	require.NoError(t, err)

	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, 4, first.Items)
	d1, err := first.Digest()
	require.NoError(t, err)
	d2, err := second.Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}
