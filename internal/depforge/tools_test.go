package depforge

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// recordingRunner captures commands instead of running them. results are
// returned in call order; missing entries mean success.
type recordingRunner struct {
	calls   [][]string
	dirs    []string
	results []error
}

func (r *recordingRunner) Run(cmd *exec.Cmd) error {
	r.calls = append(r.calls, cmd.Args)
	r.dirs = append(r.dirs, cmd.Dir)
	i := len(r.calls) - 1
	if i < len(r.results) {
		return r.results[i]
	}
	return nil
}

func TestCMake_Commands(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	c := &CMake{Runner: runner}

	require.NoError(t, c.Configure("/src", "/build", "/install", []string{"-DBUILD_TESTS=OFF"}))
	require.NoError(t, c.Compile("/build"))
	require.NoError(t, c.Install("/build", "/install"))

	want := [][]string{
		{
			"cmake",
			"-G", "Ninja",
			"-B", "/build",
			"-S", "/src",
			"-DCMAKE_BUILD_TYPE=Release",
			"-DCMAKE_FIND_PACKAGE_PREFER_CONFIG=TRUE",
			"-DCMAKE_INSTALL_PREFIX=/install",
			"-DCMAKE_PREFIX_PATH=/install",
			"-DPKG_CONFIG_USE_CMAKE_PREFIX_PATH=TRUE",
			"-DBUILD_TESTS=OFF",
		},
		{"cmake", "--build", "/build"},
		{"cmake", "--install", "/build", "--prefix", "/install"},
	}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Errorf("cmake commands mismatch (-want +got):\n%s", diff)
	}
}

func TestCMake_GeneratorAndBuildType(t *testing.T) {
	t.Parallel()

	c := &CMake{Generator: "Visual Studio 17 2022", BuildType: "RelWithDebInfo"}
	args := c.configureArgs("s", "b", "i", nil)
	require.Equal(t, []string{"-G", "Visual Studio 17 2022"}, args[:2])
	require.Contains(t, args, "-DCMAKE_BUILD_TYPE=RelWithDebInfo")
}

func TestCMake_PropagatesToolError(t *testing.T) {
	t.Parallel()

	toolErr := &ExternalToolError{Command: []string{"cmake"}, ExitCode: 2}
	c := &CMake{Runner: &recordingRunner{results: []error{toolErr}}}
	require.ErrorIs(t, c.Compile("/build"), ErrExternalTool)
}

func TestGitPatcher_Apply(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	require.NoError(t, (&GitPatcher{Runner: runner}).Apply("/p/zlib_1.3.1.patch", "/src/zlib"))

	want := [][]string{
		{"git", "apply", "--check", "--ignore-whitespace", "/p/zlib_1.3.1.patch"},
		{"git", "apply", "--ignore-whitespace", "/p/zlib_1.3.1.patch"},
	}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Errorf("git commands mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"/src/zlib", "/src/zlib"}, runner.dirs)
}

func TestGitPatcher_CheckFailureIsPatchError(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{results: []error{&ExternalToolError{Command: []string{"git"}, ExitCode: 1}}}
	err := (&GitPatcher{Runner: runner}).Apply("x.patch", "/src")

	require.ErrorIs(t, err, ErrPatchApply)
	var pe *PatchApplyError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "x.patch", pe.Patch)
	require.Len(t, runner.calls, 1, "nothing is applied after a failed check")
}

func TestGitPatcher_MissingGitIsToolError(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{results: []error{&ExternalToolError{Command: []string{"git"}, ExitCode: -1, Err: errors.New("not found")}}}
	err := (&GitPatcher{Runner: runner}).Apply("x.patch", "/src")
	require.ErrorIs(t, err, ErrExternalTool)
	require.NotErrorIs(t, err, ErrPatchApply)
}
