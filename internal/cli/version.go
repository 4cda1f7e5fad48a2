package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trylock/viewer-sub003/internal/buildinfo"
	"github.com/trylock/viewer-sub003/internal/cache"
	"github.com/trylock/viewer-sub003/internal/ui"
)

const modulePath = "github.com/trylock/viewer-sub003"

type versionInfo struct {
	Version     string `json:"version"`
	Commit      string `json:"commit,omitempty"`
	CommitTime  string `json:"commit_time,omitempty"`
	Modified    bool   `json:"modified"`
	GoVersion   string `json:"go_version"`
	Platform    string `json:"platform"`
	CacheSchema int    `json:"cache_schema"`
}

var readBuildInfo = debug.ReadBuildInfo

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show vwr version and build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersionInfo()
		if isJSONOutput() {
			outputSuccess(info, nil)
			return nil
		}

		fmt.Println(ui.Header("vwr " + info.Version))
		tbl := ui.NewTable(2)
		if info.Commit != "" {
			commit := info.Commit
			if info.Modified {
				commit += " (modified)"
			}
			tbl.AddRow("commit", commit)
		}
		if info.CommitTime != "" {
			tbl.AddRow("built", info.CommitTime)
		}
		tbl.AddRow("go", info.GoVersion)
		tbl.AddRow("platform", info.Platform)
		tbl.AddRow("cache schema", fmt.Sprint(info.CacheSchema))
		fmt.Print(tbl.String())
		return nil
	},
}

// currentVersionInfo prefers the module build info and fills gaps from
// the values stamped into buildinfo at link time.
func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:     "devel",
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		CacheSchema: cache.CurrentVersion,
	}

	if bi, ok := readBuildInfo(); ok && bi != nil {
		settings := make(map[string]string, len(bi.Settings))
		for _, s := range bi.Settings {
			settings[s.Key] = s.Value
		}
		// a replaced or vendored main module keeps the devel version
		if bi.Main.Path == modulePath {
			info.Version = normalizeVersion(bi.Main.Version)
		}
		if bi.GoVersion != "" {
			info.GoVersion = bi.GoVersion
		}
		if goos, goarch := settings["GOOS"], settings["GOARCH"]; goos != "" && goarch != "" {
			info.Platform = goos + "/" + goarch
		}
		info.Commit = settings["vcs.revision"]
		info.CommitTime = settings["vcs.time"]
		info.Modified = strings.EqualFold(settings["vcs.modified"], "true")
	}

	if info.Version == "devel" && buildinfo.Version != "" {
		info.Version = normalizeVersion(buildinfo.Version)
	}
	if info.Commit == "" {
		info.Commit = buildinfo.Commit
	}
	if info.CommitTime == "" {
		info.CommitTime = buildinfo.Date
	}
	return info
}

func normalizeVersion(version string) string {
	if version == "" || version == "(devel)" {
		return "devel"
	}
	return "v" + strings.TrimPrefix(version, "v")
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
