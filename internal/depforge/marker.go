package depforge

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const markerSuffix = ".ok"

// MarkerStore persists one-shot completion sentinels as empty files.
type MarkerStore struct{}

// Exists reports whether the marker at path is present.
func (MarkerStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Create writes an empty marker, creating parent directories. An existing
// marker is left alone.
func (MarkerStore) Create(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Clear removes the marker so the stage runs again. A missing marker is not an error.
func (MarkerStore) Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns every marker below root, sorted.
func (MarkerStore) List(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), markerSuffix) {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}
