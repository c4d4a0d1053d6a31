package depforge

import "os/exec"

// BuildTool is the native build system driven by the configure, compile and
// install stages.
type BuildTool interface {
	Configure(sourceDir, buildDir, installPrefix string, options []string) error
	Compile(buildDir string) error
	Install(buildDir, installPrefix string) error
}

// CMake drives cmake. Generator and BuildType default to Ninja and Release.
type CMake struct {
	Runner    CommandRunner
	Generator string
	BuildType string
}

var _ BuildTool = (*CMake)(nil)

func (c *CMake) configureArgs(sourceDir, buildDir, installPrefix string, options []string) []string {
	generator := c.Generator
	if generator == "" {
		generator = "Ninja"
	}
	buildType := c.BuildType
	if buildType == "" {
		buildType = "Release"
	}
	args := []string{
		"-G", generator,
		"-B", buildDir,
		"-S", sourceDir,
		"-DCMAKE_BUILD_TYPE=" + buildType,
		"-DCMAKE_FIND_PACKAGE_PREFER_CONFIG=TRUE",
		"-DCMAKE_INSTALL_PREFIX=" + installPrefix,
		"-DCMAKE_PREFIX_PATH=" + installPrefix,
		"-DPKG_CONFIG_USE_CMAKE_PREFIX_PATH=TRUE",
	}
	return append(args, options...)
}

func (c *CMake) Configure(sourceDir, buildDir, installPrefix string, options []string) error {
	return c.Runner.Run(exec.Command("cmake", c.configureArgs(sourceDir, buildDir, installPrefix, options)...))
}

func (c *CMake) Compile(buildDir string) error {
	return c.Runner.Run(exec.Command("cmake", "--build", buildDir))
}

// Install runs the install step. The prefix fixed at configure time is passed
// again so a rerun against a reused build tree installs to the same root.
func (c *CMake) Install(buildDir, installPrefix string) error {
	return c.Runner.Run(exec.Command("cmake", "--install", buildDir, "--prefix", installPrefix))
}
