package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadErr(t *testing.T, path string) *LoadError {
	t.Helper()
	_, err := LoadProgram(path)
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	return le
}

func TestLoadProgram_File(t *testing.T) {
	program, err := LoadProgram(writeProgram(t, "prog.cue", okProgram))
	require.NoError(t, err)

	_, ok := program.Lookup("fa")
	assert.True(t, ok)
	assert.Len(t, program.Items(), 4)
}

func TestLoadProgram_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.cue"), []byte(`package nat

items: {
	a: {unique: {}}
	x: {variable: {}}
}
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "more.cue"), []byte(`package nat

items: {
	xa: {equal: ["x", "a"]}
}
`), 0644))

	program, err := LoadProgram(dir)
	require.NoError(t, err)

	for _, name := range []string{"a", "x", "xa"} {
		_, ok := program.Lookup(name)
		assert.True(t, ok, "%s is unified from both files", name)
	}
}

func TestLoadProgram_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		le := loadErr(t, filepath.Join(t.TempDir(), "nope.cue"))
		assert.Equal(t, ErrCodeNotFound, le.Code)
		assert.Contains(t, le.Message, "program not found")
	})

	t.Run("empty directory", func(t *testing.T) {
		le := loadErr(t, t.TempDir())
		assert.Equal(t, ErrCodeNoFiles, le.Code)
	})

	t.Run("no items", func(t *testing.T) {
		le := loadErr(t, writeProgram(t, "prog.cue", "other: 1\n"))
		assert.Equal(t, ErrCodeItems, le.Code)
		assert.Equal(t, "items is required", le.Message)
	})

	t.Run("malformed form", func(t *testing.T) {
		le := loadErr(t, writeProgram(t, "prog.cue", "items: {a: {equal: \"a\"}}\n"))
		assert.Equal(t, ErrCodeForm, le.Code)
		assert.True(t, le.Pos.IsValid())
		assert.Contains(t, le.Error(), "prog.cue:1:")
	})

	t.Run("cue syntax", func(t *testing.T) {
		le := loadErr(t, writeProgram(t, "prog.cue", "items: {a: \n"))
		assert.Equal(t, ErrCodeBuildFailed, le.Code)
	})
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("package p\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.cue"), []byte("package q\n"), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue")}, files)
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeItems, MapFieldToErrorCode("items"))
	assert.Equal(t, ErrCodeBuildFailed, MapFieldToErrorCode("cue"))
	assert.Equal(t, ErrCodeForm, MapFieldToErrorCode("member.label"))
	assert.Equal(t, ErrCodeGeneric, MapFieldToErrorCode(""))
}
