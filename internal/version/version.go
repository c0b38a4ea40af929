// Package version carries build metadata injected via -ldflags.
package version

// Set at build time with:
//
//	-ldflags "-X keymate/internal/version.Version=... -X keymate/internal/version.Commit=... -X keymate/internal/version.Date=..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is the version payload exposed on the health endpoint.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}
