package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/subcalc/internal/report"
)

func TestExitError(t *testing.T) {
	err := NewExitError(ExitFailure, "2 program(s) failed")
	assert.Equal(t, "2 program(s) failed", err.Error())
	assert.Nil(t, errors.Unwrap(err))

	cause := errors.New("boom")
	wrapped := WrapExitError(ExitCommandError, "loading program", cause)
	assert.Equal(t, "loading program: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("x"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "x"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "x")), ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetExitCode(tt.err))
		})
	}
}

func TestOutputFormatter_Data(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Data(report.Object{"result": report.String("yes")}, nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `{"result":"yes"}`, string(resp.Data))
}

func TestOutputFormatter_DataFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Data(report.Array{}, &CLIError{Code: "E_CHECK_FAILED", Message: "1 program(s) failed"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_CHECK_FAILED", resp.Error.Code)
}

func TestOutputFormatter_DataRejectsNull(t *testing.T) {
	f := &OutputFormatter{Format: "json", Writer: &bytes.Buffer{}}
	err := f.Data(report.Array{nil}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoding output")
}

func TestOutputFormatter_Error(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, f.Error(ErrCodeNotFound, "program not found: x.cue", ""))
		assert.Equal(t, "Error [E005]: program not found: x.cue\n", buf.String())
	})

	t.Run("text with position", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, f.Error("E201", "cannot find it", "p.cue:2:5"))
		assert.Equal(t, "Error [E201]: p.cue:2:5: cannot find it\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, f.Error("E201", "cannot find it", "p.cue:2:5"))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Empty(t, resp.Data)
		require.NotNil(t, resp.Error)
		assert.Equal(t, CLIError{Code: "E201", Message: "cannot find it", Pos: "p.cue:2:5"}, *resp.Error)
	})
}

func TestOutputFormatter_LoadFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	err := f.LoadFailure(&LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in d"})
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E003]: no CUE files found in d")

	buf.Reset()
	err = f.LoadFailure(errors.New("odd"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E001]: odd")
}
