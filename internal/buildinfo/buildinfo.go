// Package buildinfo reports the deckmd version for --version and startup logs.
package buildinfo

import "runtime/debug"

// Version metadata is injected at build time via ldflags. Anything left unset is
// filled from the module build info that `go install` embeds.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

const shortCommit = 12

var readBuildInfo = debug.ReadBuildInfo

// Summary returns "version (commit date)", omitting parts that are unknown.
func Summary() string {
	version, commit, date := resolve()
	if commit == "" && date == "" {
		return version
	}
	details := commit
	if date != "" {
		if details != "" {
			details += " "
		}
		details += date
	}
	return version + " (" + details + ")"
}

func resolve() (version, commit, date string) {
	version, commit, date = Version, Commit, Date
	if version == "" {
		version = "dev"
	}

	info, ok := readBuildInfo()
	if !ok || info == nil {
		return version, commit, date
	}
	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	var dirty bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == "" {
				commit = setting.Value
				if len(commit) > shortCommit {
					commit = commit[:shortCommit]
				}
			}
		case "vcs.time":
			if date == "" {
				date = setting.Value
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if dirty && commit != "" && Commit == "" {
		commit += "-dirty"
	}
	return version, commit, date
}
