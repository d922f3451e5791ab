package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	// An explicit missing file is an error; no file at all is not.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, Init(""))
	assert.Equal(t, "config", GetString("cache"))
	assert.Equal(t, "line", GetString("atom"))
	assert.Equal(t, 2, GetInt("split"))
	assert.False(t, GetBool("parallel"))
}

func TestInitExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picire.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parallel: true\natom: char\njobs: 4\n"), 0644))

	require.NoError(t, Init(path))
	assert.True(t, GetBool("parallel"))
	assert.Equal(t, "char", GetString("atom"))
	assert.Equal(t, 4, GetInt("jobs"))
	// Untouched keys keep their defaults.
	assert.Equal(t, "config", GetString("cache"))
}

func TestInitMissingExplicitFile(t *testing.T) {
	err := Init(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picire.yaml")
	require.NoError(t, os.WriteFile(path, []byte("atom: line\n"), 0644))

	t.Setenv("PICIRE_ATOM", "char")
	require.NoError(t, Init(path))
	assert.Equal(t, "char", GetString("atom"))
}

func TestEnvKeyReplacerHandlesDashes(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("PICIRE_COMBINE_LOOPS", "true")
	require.NoError(t, Init(""))
	assert.True(t, GetBool("combine-loops"))
}
