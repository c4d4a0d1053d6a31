package depforge

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// copyLibToInstall merges the repository's prebuilt lib directory into the
// install root. Files already there are overwritten.
func copyLibToInstall(l Layout) error {
	src := l.LibDir()
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		debugf("no lib directory at %s, nothing to copy", src)
		return nil
	}
	step("Copying lib directory into install directory")
	if err := copyDir(src, filepath.Join(l.InstallDir(), "lib")); err != nil {
		return fmt.Errorf("copy lib directory: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	// Copy file mode
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode())
}

// copyDir recursively copies src into dst. Symlinks are followed, so a
// linked directory is copied as a directory and a linked file as a file.
func copyDir(src, dst string) error {
	return copyTree(src, dst, map[string]bool{})
}

// copyTree does the work of copyDir. seen holds the resolved directories on
// the current path and stops symlink cycles.
func copyTree(src, dst string, seen map[string]bool) error {
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		return err
	}
	if seen[resolved] {
		return fmt.Errorf("symlink cycle at %s", src)
	}
	seen[resolved] = true
	defer delete(seen, resolved)

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(srcPath)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", srcPath, err)
			}
			isDir = info.IsDir()
		}

		if isDir {
			err = copyTree(srcPath, dstPath, seen)
		} else {
			err = copyFile(srcPath, dstPath)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
