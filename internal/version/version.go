// Package version reports the devgraph build identity.
package version

import "runtime/debug"

// Overridable via ldflags:
//
//	go build -ldflags "-X devgraph/internal/version.Version=1.0.0 -X devgraph/internal/version.Commit=abc123"
var (
	Version   = "0.3.0"
	Commit    = ""
	BuildDate = ""
)

// BuildInfo is the resolved identity of the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// Current resolves the build identity. When ldflags did not stamp a commit,
// the module build info's VCS revision fills in, if present.
func Current() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	}

	if info.Commit == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				switch s.Key {
				case "vcs.revision":
					info.Commit = s.Value
				case "vcs.time":
					if info.BuildDate == "" {
						info.BuildDate = s.Value
					}
				}
			}
		}
	}

	return info
}

// Short is the version plus an abbreviated commit when one is known.
func (b BuildInfo) Short() string {
	if len(b.Commit) >= 8 {
		return b.Version + " (" + b.Commit[:7] + ")"
	}
	return b.Version
}

// String is the multi-line form printed by the version subcommand.
func (b BuildInfo) String() string {
	commit, date := b.Commit, b.BuildDate
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return "devgraph version " + b.Version + "\n" +
		"Commit: " + commit + "\n" +
		"Built: " + date
}
