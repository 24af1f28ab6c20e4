package config

import "fmt"

// ModuleName is the name of the Go module as defined in go.mod.
const ModuleName = "github/meridian/algo-wallet"

// Build arguments, overridden via -ldflags "-X ..." at build time.
var (
	Commit    = "local"
	BuildDate = "unknown"
)

// GetFormattedBuildArgs returns "<commit> (<build date>)".
func GetFormattedBuildArgs() string {
	return fmt.Sprintf("%v (%v)", Commit, BuildDate)
}
