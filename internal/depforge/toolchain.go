package depforge

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Activator produces the environment the build tool must run in. It is
// invoked once before any stage runs.
type Activator interface {
	Activate(ctx context.Context) ([]string, error)
}

// NoopActivator leaves the environment unchanged.
type NoopActivator struct{}

func (NoopActivator) Activate(context.Context) ([]string, error) { return nil, nil }

// ToolchainConfig selects the MSVC toolchain on Windows.
type ToolchainConfig struct {
	Arch    string // VCVARS_ARCH: x64, x86, arm64, arm32
	Version string // VCVARS_VERSION, passed as -vcvars_ver
	// ProgramFiles is the directory holding the Visual Studio installer,
	// ProgramFiles(x86) on 64-bit hosts.
	ProgramFiles string
}

var msvcComponentArch = map[string]string{
	"x64":   "x86.x64",
	"x86":   "x86.x64",
	"arm64": "ARM64",
	"arm32": "ARM",
}

var vcvarsArch = map[string]string{
	"x64":   "x64",
	"x86":   "x86",
	"arm64": "arm64",
	"arm32": "arm",
}

// newActivator returns the MSVC activator on Windows and a no-op elsewhere.
func newActivator(cfg ToolchainConfig, runner CommandRunner) Activator {
	if runtime.GOOS != "windows" {
		return NoopActivator{}
	}
	return &MSVCActivator{Config: cfg, Runner: runner}
}

// MSVCActivator captures the variables vcvarsall.bat sets.
type MSVCActivator struct {
	Config ToolchainConfig
	Runner CommandRunner
}

func (m *MSVCActivator) Activate(ctx context.Context) ([]string, error) {
	if m.Config.Arch == "" || m.Config.Version == "" {
		return nil, configErrorf("VCVARS_ARCH and VCVARS_VERSION must be set on Windows")
	}
	batArch, ok := vcvarsArch[m.Config.Arch]
	if !ok {
		return nil, configErrorf("unsupported VCVARS_ARCH %q", m.Config.Arch)
	}
	vcvars, err := m.findVcvars()
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "cmd.exe", "/C", "call", vcvars, batArch,
		"-vcvars_ver="+m.Config.Version, ">", "nul", "&&", "set")
	cmd.Stdout = &out
	if err := m.Runner.Run(cmd); err != nil {
		return nil, fmt.Errorf("failed to activate MSVC toolchain: %w", err)
	}
	return parseEnvDump(out.Bytes()), nil
}

func (m *MSVCActivator) findVcvars() (string, error) {
	if m.Config.ProgramFiles == "" {
		return "", configErrorf("unable to locate the Program Files directory")
	}
	vswhere := filepath.Join(m.Config.ProgramFiles, "Microsoft Visual Studio", "Installer", "vswhere.exe")
	if _, err := os.Stat(vswhere); err != nil {
		return "", fmt.Errorf("unable to find vswhere.exe: %w", err)
	}

	var out bytes.Buffer
	cmd := exec.Command(vswhere, "-latest", "-products", "*", "-requires",
		"Microsoft.VisualStudio.Component.VC.Tools."+msvcComponentArch[m.Config.Arch],
		"-property", "installationPath")
	cmd.Stdout = &out
	if err := m.Runner.Run(cmd); err != nil {
		return "", err
	}

	vsDir := strings.TrimSpace(out.String())
	vcvars := filepath.Join(vsDir, "VC", "Auxiliary", "Build", "vcvarsall.bat")
	if _, err := os.Stat(vcvars); err != nil {
		return "", fmt.Errorf("unable to find vcvarsall.bat: %w", err)
	}
	return vcvars, nil
}

// parseEnvDump turns `set` output into KEY=VALUE pairs.
func parseEnvDump(b []byte) []string {
	var env []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		k, _, ok := strings.Cut(line, "=")
		if !ok || k == "" {
			continue
		}
		env = append(env, line)
	}
	return env
}
