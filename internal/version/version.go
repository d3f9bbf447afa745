// Package version stamps pitbossctl builds.
//
// Release builds inject both values with ldflags:
//
//	go build -ldflags "-X github.com/opengrill/pitboss/internal/version.Version=v0.3.0 \
//	    -X github.com/opengrill/pitboss/internal/version.Commit=1a2b3c4"
//
// Anything else falls back to the module and VCS metadata the Go toolchain
// embeds, and finally to "dev".
package version

import "runtime/debug"

var (
	// Version is the release tag, settable at build time.
	Version = ""
	// Commit is the short VCS revision, settable at build time.
	Commit = ""
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
		if Commit == "" {
			Commit = vcsCommit(info.Settings)
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// vcsCommit assembles the short revision from the embedded VCS settings.
func vcsCommit(settings []debug.BuildSetting) string {
	var revision string
	var dirty bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return ""
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if dirty {
		revision += "-dirty"
	}
	return revision
}
