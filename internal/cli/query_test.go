package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runEqualCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewEqualCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func runDepsCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewDepsCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestEqualCommandYes(t *testing.T) {
	path := writeProgram(t, "prog.cue", okProgram)

	out, err := runEqualCommand(t, "text", path, "x", "a", "--limit", "1")
	require.NoError(t, err)
	assert.Equal(t, "yes\n  left: x IS a\n", out)
}

func TestEqualCommandNeedsHigherLimit(t *testing.T) {
	path := writeProgram(t, "prog.cue", okProgram)

	out, err := runEqualCommand(t, "text", path, "x", "a", "--limit", "0")
	require.NoError(t, err, "an answer is not a failure")
	assert.Equal(t, "needs_higher_limit\n", out)
}

func TestEqualCommandJSON(t *testing.T) {
	path := writeProgram(t, "prog.cue", okProgram)

	out, err := runEqualCommand(t, "json", path, "x", "a", "--limit", "1")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.JSONEq(t, `{"left":[{"target":"x","value":"a"}],"result":"yes","right":[]}`, string(resp.Data))
}

func TestEqualCommandUnknownItem(t *testing.T) {
	path := writeProgram(t, "prog.cue", okProgram)

	out, err := runEqualCommand(t, "text", path, "x", "nowhere")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `Error [E008]: no item "nowhere"`)
}

func TestEqualCommandUnresolvedProgram(t *testing.T) {
	path := writeProgram(t, "prog.cue", unresolvedProgram)

	out, err := runEqualCommand(t, "text", path, "b", "b")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "does not resolve")
	assert.Contains(t, out, "Error [E201]")
}

func TestEqualCommandMissingArgs(t *testing.T) {
	_, err := runEqualCommand(t, "text", "prog.cue", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 3 arg")
}

func TestDepsCommand(t *testing.T) {
	path := writeProgram(t, "prog.cue", okProgram)

	out, err := runDepsCommand(t, "text", path, "f")
	require.NoError(t, err)
	assert.Equal(t, "x (eager)\nf (eager)\n", out)

	out, err = runDepsCommand(t, "text", path, "a")
	require.NoError(t, err)
	assert.Equal(t, "No dependencies.\n", out)
}

func TestDepsCommandJSON(t *testing.T) {
	path := writeProgram(t, "prog.cue", okProgram)

	out, err := runDepsCommand(t, "json", path, "f")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.JSONEq(t, `[{"eager":true,"var":"x"},{"eager":true,"var":"f"}]`, string(resp.Data))
}

func TestDepsCommandMissingProgram(t *testing.T) {
	out, err := runDepsCommand(t, "json", "/nonexistent/prog.cue", "f")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}
