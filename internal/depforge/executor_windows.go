//go:build windows

package depforge

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// isolateProcessGroup relies on exec.CommandContext killing the child.
func isolateProcessGroup(cmd *exec.Cmd) {}

func envKey(k string) string { return strings.ToUpper(k) }

const pathSeparators = `/\:`

// executableSuffixes lists the PATHEXT extensions to try. A name that already
// carries an extension is tried as is first.
func executableSuffixes(name string, env []string) []string {
	var out []string
	if filepath.Ext(name) != "" {
		out = append(out, "")
	}
	pathext := envValue(env, "PATHEXT")
	if pathext == "" {
		pathext = ".com;.exe;.bat;.cmd"
	}
	for _, ext := range strings.Split(strings.ToLower(pathext), ";") {
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
