// Package buildinfo carries release metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/trylock/viewer-sub003/internal/buildinfo.Version=v0.4.0"
//
// Local builds leave the values empty and 'vwr version' falls back to the
// module build info.
package buildinfo

var (
	Version = ""
	Commit  = ""
	Date    = ""
)
