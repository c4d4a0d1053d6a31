package depforge

import (
	"errors"
	"io"
	"os/exec"
)

// Patcher applies a patch file rooted at dir.
type Patcher interface {
	Apply(patchFile, dir string) error
}

// GitPatcher applies patches with git apply, which also works outside a
// repository.
type GitPatcher struct {
	Runner CommandRunner
}

var _ Patcher = (*GitPatcher)(nil)

// Apply dry-runs the patch first so a patch that does not fit is reported as
// *PatchApplyError without touching the tree.
func (g *GitPatcher) Apply(patchFile, dir string) error {
	check := exec.Command("git", "apply", "--check", "--ignore-whitespace", patchFile)
	check.Dir = dir
	check.Stdout = io.Discard
	if err := g.Runner.Run(check); err != nil {
		var toolErr *ExternalToolError
		if errors.As(err, &toolErr) && toolErr.ExitCode > 0 {
			return &PatchApplyError{Patch: patchFile, Dir: dir, Err: err}
		}
		return err
	}

	apply := exec.Command("git", "apply", "--ignore-whitespace", patchFile)
	apply.Dir = dir
	if err := g.Runner.Run(apply); err != nil {
		return &PatchApplyError{Patch: patchFile, Dir: dir, Err: err}
	}
	return nil
}
