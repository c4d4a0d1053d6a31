package depforge

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrIntegrity      = errors.New("integrity error")
	ErrRecursionLimit = errors.New("recursion limit exceeded")
	ErrExternalTool   = errors.New("external tool error")
	ErrPatchApply     = errors.New("patch apply error")
)

// ConfigurationError reports invalid input detected before any work starts,
// such as an unknown target name.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Msg }
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(format string, a ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, a...)}
}

// IntegrityError reports a downloaded artifact whose digest does not match the
// declared one. The artifact is left on disk for inspection.
type IntegrityError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("verification failed: %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}
func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// RecursionLimitError reports a template that did not expand to a fixed point.
type RecursionLimitError struct {
	Template string
	Passes   int
	Last     string
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("expanding %q: no fixed point after %d passes (last %q)", e.Template, e.Passes, e.Last)
}
func (e *RecursionLimitError) Is(target error) bool { return target == ErrRecursionLimit }

// ExternalToolError reports a failed collaborator command.
type ExternalToolError struct {
	Command  []string
	ExitCode int
	Err      error
}

func (e *ExternalToolError) Error() string {
	cmd := strings.Join(e.Command, " ")
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: exit status %d", cmd, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", cmd, e.Err)
}
func (e *ExternalToolError) Unwrap() error        { return e.Err }
func (e *ExternalToolError) Is(target error) bool { return target == ErrExternalTool }

// PatchApplyError reports a patch that does not apply cleanly.
type PatchApplyError struct {
	Patch string
	Dir   string
	Err   error
}

func (e *PatchApplyError) Error() string {
	return fmt.Sprintf("patch %s does not apply in %s: %v", e.Patch, e.Dir, e.Err)
}
func (e *PatchApplyError) Unwrap() error        { return e.Err }
func (e *PatchApplyError) Is(target error) bool { return target == ErrPatchApply }

// StageError attaches the target identity and stage to a failure.
type StageError struct {
	Target  string
	Version string
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Target, e.Version, e.Stage, e.Err)
}
func (e *StageError) Unwrap() error { return e.Err }
