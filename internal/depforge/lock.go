package depforge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// errLocked is returned by tryLock when another process holds the lock.
var errLocked = errors.New("lock held by another process")

// RunLock guards a root directory against concurrent pipeline runs.
type RunLock struct {
	f *os.File
}

// acquireRunLock takes the exclusive lock on <root>/.depforge.lock without
// blocking. A held lock is a *ConfigurationError naming the lock file.
func acquireRunLock(root string) (*RunLock, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, LockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	if err := tryLock(f); err != nil {
		f.Close()
		if errors.Is(err, errLocked) {
			return nil, configErrorf("another depforge run holds %s", path)
		}
		return nil, fmt.Errorf("failed to acquire %s: %w", path, err)
	}
	debugf("acquired run lock %s", path)
	return &RunLock{f: f}, nil
}

// Release drops the lock. The lock file itself is left in place.
func (l *RunLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlock(l.f)
	err := l.f.Close()
	l.f = nil
	return err
}
