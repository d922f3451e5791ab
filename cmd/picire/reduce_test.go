package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const crashInput = "int a;\ntrigger one\nint b;\nint c;\ntrigger two\nint d;\nint e;\nint f;\n"

// writeFixture creates an input file and a tester that calls a candidate
// interesting when both trigger lines survive.
func writeFixture(t *testing.T) (input, test, out string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script testers are not available on windows")
	}
	dir := t.TempDir()

	input = filepath.Join(dir, "crash.txt")
	require.NoError(t, os.WriteFile(input, []byte(crashInput), 0644))

	test = filepath.Join(dir, "tester.sh")
	script := "#!/bin/sh\ngrep -q 'trigger one' \"$1\" && grep -q 'trigger two' \"$1\"\n"
	require.NoError(t, os.WriteFile(test, []byte(script), 0755))

	out = filepath.Join(dir, "reduced")
	return input, test, out
}

func TestEndToEndReduction(t *testing.T) {
	input, test, out := writeFixture(t)

	rootCmd.SetArgs([]string{
		"--input", input,
		"--test", test,
		"--out", out,
		"--quiet",
	})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(filepath.Join(out, "crash.txt"))
	require.NoError(t, err)
	assert.Equal(t, "trigger one\ntrigger two\n", string(data))
}

func TestEndToEndReductionParallel(t *testing.T) {
	input, test, out := writeFixture(t)

	rootCmd.SetArgs([]string{
		"--input", input,
		"--test", test,
		"--out", out,
		"--parallel", "-j", "4",
		"--cache", "content",
		"--cleanup",
		"--quiet",
	})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(filepath.Join(out, "crash.txt"))
	require.NoError(t, err)
	assert.Equal(t, "trigger one\ntrigger two\n", string(data))
}

func TestEndToEndInitialUninteresting(t *testing.T) {
	input, _, out := writeFixture(t)
	dir := t.TempDir()

	never := filepath.Join(dir, "never.sh")
	require.NoError(t, os.WriteFile(never, []byte("#!/bin/sh\nexit 1\n"), 0755))

	rootCmd.SetArgs([]string{
		"--input", input,
		"--test", never,
		"--out", out,
		"--quiet",
	})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not interesting")
}

func TestRejectsDegenerateIterators(t *testing.T) {
	input, test, out := writeFixture(t)

	rootCmd.SetArgs([]string{
		"--input", input,
		"--test", test,
		"--out", out,
		"--subset-iterator", "skip",
		"--complement-iterator", "skip",
		"--quiet",
	})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no probe would ever fire")
}
