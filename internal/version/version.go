// Package version reports which depcrit build is running.
package version

import (
	"fmt"
	"runtime/debug"
)

// Release builds set these with -ldflags "-X".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the version line printed by --version. Development builds
// fall back to the module version and VCS stamp recorded by the go command.
func String() string {
	version, commit, date := Version, Commit, Date
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if v := info.Main.Version; v != "" && v != "(devel)" {
				version = v
			}
			for _, s := range info.Settings {
				switch {
				case s.Key == "vcs.revision" && commit == "none":
					commit = s.Value
				case s.Key == "vcs.time" && date == "unknown":
					date = s.Value
				}
			}
		}
	}
	return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}
