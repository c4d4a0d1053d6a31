package depforge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner runs a prepared command to completion.
type CommandRunner interface {
	Run(cmd *exec.Cmd) error
}

// Executor runs collaborator commands with the activated toolchain
// environment, killing the whole process tree when its context is cancelled.
type Executor struct {
	Context context.Context // The context to use for cancellation
	// Env is merged over the process environment of every command.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

var _ CommandRunner = (*Executor)(nil)

// NewExecutor returns an executor bound to ctx that writes to the terminal.
func NewExecutor(ctx context.Context, env []string) *Executor {
	return &Executor{Context: ctx, Env: env, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes cmd. A non-zero exit or a start failure is an *ExternalToolError.
func (e *Executor) Run(cmd *exec.Cmd) error {
	ctx := e.Context
	if ctx == nil {
		ctx = context.Background()
	}

	// --- Phase 1: build the final command ---
	base := cmd.Env
	if len(base) == 0 {
		base = os.Environ()
	}
	env := mergeEnv(base, e.Env)

	// Bare names resolve against the activated PATH, not the parent's.
	path := cmd.Path
	if name := cmd.Args[0]; !strings.ContainsAny(name, pathSeparators) {
		if found := lookPathEnv(name, env); found != "" {
			path = found
		}
	}
	finalCmd := exec.CommandContext(ctx, path, cmd.Args[1:]...)
	finalCmd.Dir = cmd.Dir
	finalCmd.Env = env

	// --- Phase 2: wire up stdio ---
	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = firstWriter(cmd.Stdout, e.Stdout, os.Stdout)
	finalCmd.Stderr = firstWriter(cmd.Stderr, e.Stderr, os.Stderr)

	// --- Phase 3: isolate the process group so cancellation reaches children ---
	isolateProcessGroup(finalCmd)

	debugf("exec: %s (dir %s)", strings.Join(cmd.Args, " "), cmd.Dir)

	// --- Phase 4: run and classify ---
	if err := finalCmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("command aborted: %w", ctx.Err())
		}
		toolErr := &ExternalToolError{Command: cmd.Args, ExitCode: -1, Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			toolErr.ExitCode = exitErr.ExitCode()
		}
		return toolErr
	}
	return nil
}

// lookPathEnv searches the PATH entry of env for an executable named name.
// It returns "" when nothing matches.
func lookPathEnv(name string, env []string) string {
	for _, dir := range filepath.SplitList(envValue(env, "PATH")) {
		// Relative entries are ignored, as exec.LookPath does.
		if !filepath.IsAbs(dir) {
			continue
		}
		for _, ext := range executableSuffixes(name, env) {
			candidate := filepath.Join(dir, name+ext)
			if isExecutable(candidate) {
				return candidate
			}
		}
	}
	return ""
}

// envValue returns the last value of key in env.
func envValue(env []string, key string) string {
	for i := len(env) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(env[i], "=")
		if ok && envKey(k) == envKey(key) {
			return v
		}
	}
	return ""
}

func firstWriter(ws ...io.Writer) io.Writer {
	for _, w := range ws {
		if w != nil {
			return w
		}
	}
	return io.Discard
}

// mergeEnv overlays KEY=VALUE pairs from over onto base. Keys are matched
// case-insensitively on Windows.
func mergeEnv(base, over []string) []string {
	if len(over) == 0 {
		return base
	}
	pos := make(map[string]int, len(base))
	out := make([]string, 0, len(base)+len(over))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		pos[envKey(k)] = len(out)
		out = append(out, kv)
	}
	for _, kv := range over {
		k, _, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		if i, seen := pos[envKey(k)]; seen {
			out[i] = kv
			continue
		}
		pos[envKey(k)] = len(out)
		out = append(out, kv)
	}
	return out
}
