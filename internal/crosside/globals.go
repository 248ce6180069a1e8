package crosside

import (
	"errors"
	"runtime"

	"github.com/gookit/color"
)

// Global variables
var (
	Debug   bool
	Verbose bool
	DryRun  bool

	version   = "dev" // overridden at build time
	arch      = runtime.GOARCH
	buildDate = "unknown" // overridden at build time

	errModuleNotFound    = errors.New("module not found")
	errProjectNotFound   = errors.New("project not found")
	errToolchainMissing  = errors.New("toolchain missing")
	errWebOutputMissing  = errors.New("web output not found")
	errNoCompilableFiles = errors.New("no compilable sources")

	// Global executor (assigned in Main)
	Exec *Executor
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
