package depforge

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCopyLibToInstall(t *testing.T) {
	t.Parallel()

	l := Layout{Root: t.TempDir()}
	writeFile(t, filepath.Join(l.LibDir(), "libfoo.a"), "archive")
	writeFile(t, filepath.Join(l.LibDir(), "cmake", "foo", "fooConfig.cmake"), "set(FOO_FOUND 1)\n")
	writeFile(t, filepath.Join(l.InstallDir(), "lib", "libfoo.a"), "stale")

	require.NoError(t, copyLibToInstall(l))

	got, err := os.ReadFile(filepath.Join(l.InstallDir(), "lib", "libfoo.a"))
	require.NoError(t, err)
	require.Equal(t, "archive", string(got), "existing files are overwritten")
	require.FileExists(t, filepath.Join(l.InstallDir(), "lib", "cmake", "foo", "fooConfig.cmake"))
}

func TestCopyLibToInstall_NoLibDir(t *testing.T) {
	t.Parallel()

	l := Layout{Root: t.TempDir()}
	require.NoError(t, copyLibToInstall(l))
	_, err := os.Stat(l.InstallDir())
	require.True(t, os.IsNotExist(err))
}

func TestCopyFile_KeepsMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not preserved on windows")
	}
	t.Parallel()

	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "tool.sh"), "#!/bin/sh\n")
	require.NoError(t, os.Chmod(src, 0o755))

	dst := filepath.Join(dir, "out", "tool.sh")
	require.NoError(t, copyFile(src, dst))
	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestCopyDir_FollowsSymlinkedDirectories(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "lib")
	writeFile(t, filepath.Join(src, "real", "libbar.a"), "bar")
	require.NoError(t, os.Symlink("real", filepath.Join(src, "linked")))
	require.NoError(t, os.Symlink(filepath.Join("real", "libbar.a"), filepath.Join(src, "libbar-link.a")))

	dst := filepath.Join(dir, "out")
	require.NoError(t, copyDir(src, dst))

	got, err := os.ReadFile(filepath.Join(dst, "linked", "libbar.a"))
	require.NoError(t, err)
	require.Equal(t, "bar", string(got))

	info, err := os.Lstat(filepath.Join(dst, "libbar-link.a"))
	require.NoError(t, err)
	require.True(t, info.Mode().IsRegular())
}

func TestCopyDir_RejectsSymlinkCycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "lib")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.Symlink(".", filepath.Join(src, "self")))

	err := copyDir(src, filepath.Join(dir, "out"))
	require.ErrorContains(t, err, "symlink cycle")
}
