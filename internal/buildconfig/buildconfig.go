package buildconfig

import "runtime/debug"

// Set with -ldflags "-X github.com/Harshitk-cp/sovern/internal/buildconfig.version=..."
var (
	version = "dev"
	commit  = ""
)

func Version() string {
	return version
}

// Commit returns the ldflags commit, falling back to the VCS revision stamped by the Go toolchain.
func Commit() string {
	if commit != "" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}

func VersionInfo() map[string]string {
	return map[string]string{
		"version": Version(),
		"commit":  Commit(),
	}
}
