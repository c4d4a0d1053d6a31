package depforge

import (
	"runtime"

	"github.com/gookit/color"
)

var (
	version   = "dev"     // overridden at build time
	buildDate = "unknown" // overridden at build time
	arch      = runtime.GOARCH
	goos      = runtime.GOOS

	// ConfigFileName is looked up in the root directory when DEPFORGE_CONFIG is unset.
	ConfigFileName = "depforge.conf"
	// LockFileName guards the root directory against concurrent runs.
	LockFileName = ".depforge.lock"
)

// color helpers
var (
	colInfo    = color.Info // style provided by gookit/color
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)
