//go:build unix

package depforge

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecutor_MergesEnvironment(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	e := &Executor{Context: context.Background(), Env: []string{"DEPFORGE_TEST_VAR=activated"}, Stdout: &out}
	require.NoError(t, e.Run(exec.Command("sh", "-c", `printf %s "$DEPFORGE_TEST_VAR"`)))
	require.Equal(t, "activated", out.String())
}

// Not parallel: a concurrent fork can hold the script open for writing and
// fail the exec with ETXTBSY.
func TestExecutor_FindsToolOnActivatedPath(t *testing.T) {
	bin := t.TempDir()
	tool := filepath.Join(bin, "depforge-activated-cmake")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\nprintf activated\n"), 0o755))

	var out bytes.Buffer
	e := &Executor{
		Context: context.Background(),
		Env:     []string{"PATH=" + bin + string(os.PathListSeparator) + os.Getenv("PATH")},
		Stdout:  &out,
	}
	require.NoError(t, e.Run(exec.Command("depforge-activated-cmake")))
	require.Equal(t, "activated", out.String())
}

func TestLookPathEnv(t *testing.T) {
	t.Parallel()

	first, second := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(first, "tool"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(second, "tool"), []byte("#!/bin/sh\n"), 0o755))

	env := []string{"PATH=/nowhere", "PATH=relative:" + first + ":" + second}
	require.Equal(t, filepath.Join(second, "tool"), lookPathEnv("tool", env), "non-executable files are passed over")
	require.Empty(t, lookPathEnv("missing", env))
	require.Empty(t, lookPathEnv("tool", nil))
}

func TestExecutor_RunsInDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var out bytes.Buffer
	cmd := exec.Command("sh", "-c", "pwd -P")
	cmd.Dir = dir
	cmd.Stdout = &out
	require.NoError(t, (&Executor{}).Run(cmd))

	want, err := exec.Command("sh", "-c", "cd "+dir+" && pwd -P").Output()
	require.NoError(t, err)
	require.Equal(t, string(want), out.String())
}

func TestExecutor_ExitCode(t *testing.T) {
	t.Parallel()

	err := (&Executor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}).Run(exec.Command("sh", "-c", "exit 3"))
	require.ErrorIs(t, err, ErrExternalTool)

	var toolErr *ExternalToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, 3, toolErr.ExitCode)
	require.Equal(t, []string{"sh", "-c", "exit 3"}, toolErr.Command)
}

func TestExecutor_MissingBinary(t *testing.T) {
	t.Parallel()

	err := (&Executor{}).Run(exec.Command("depforge-no-such-tool-xyz"))
	var toolErr *ExternalToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, -1, toolErr.ExitCode)
}

func TestExecutor_CancelKillsCommand(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := (&Executor{Context: ctx}).Run(exec.Command("sh", "-c", "sleep 30"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 10*time.Second)
}
