package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time through -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info describes the running build. It is served by GET /version and
// printed by `dagflow version`.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit,omitempty"`
	GoVersion string    `json:"go_version"`
	BuiltAt   time.Time `json:"built_at,omitzero"`
	Dirty     bool      `json:"dirty,omitempty"`
}

// Get returns the build information, preferring stamped values over the
// ones recorded by the toolchain.
func Get() Info {
	info := Info{Version: Version, GitCommit: GitCommit}
	if BuildTime != "" {
		info.BuiltAt, _ = time.Parse(time.RFC3339, BuildTime)
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "vcs.time":
			if info.BuiltAt.IsZero() {
				info.BuiltAt, _ = time.Parse(time.RFC3339, s.Value)
			}
		}
	}
	return info
}

// Release reports whether the build was stamped with a clean version.
func (i Info) Release() bool {
	return i.Version != "dev" && !i.Dirty
}

// String renders the build on one line, e.g. "1.4.0 (3f2a9c1, go1.25.1)".
func (i Info) String() string {
	var parts []string
	if i.GitCommit != "" {
		commit := i.GitCommit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		if i.Dirty {
			commit += "-dirty"
		}
		parts = append(parts, commit)
	}
	if i.GoVersion != "" {
		parts = append(parts, i.GoVersion)
	}
	if !i.BuiltAt.IsZero() {
		parts = append(parts, "built "+i.BuiltAt.UTC().Format(time.DateOnly))
	}
	if len(parts) == 0 {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, strings.Join(parts, ", "))
}
