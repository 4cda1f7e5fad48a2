package cli

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trylock/viewer-sub003/internal/buildinfo"
	"github.com/trylock/viewer-sub003/internal/cache"
)

func stubBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	prev := readBuildInfo
	t.Cleanup(func() { readBuildInfo = prev })
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
}

func TestCurrentVersionInfo(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		GoVersion: "go1.23.4",
		Main:      debug.Module{Path: modulePath, Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "9f2c1e7"},
			{Key: "vcs.time", Value: "2026-05-02T09:30:00Z"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "GOOS", Value: "windows"},
			{Key: "GOARCH", Value: "amd64"},
		},
	})

	require.Equal(t, versionInfo{
		Version:     "v0.4.0",
		Commit:      "9f2c1e7",
		CommitTime:  "2026-05-02T09:30:00Z",
		Modified:    true,
		GoVersion:   "go1.23.4",
		Platform:    "windows/amd64",
		CacheSchema: cache.CurrentVersion,
	}, currentVersionInfo())
}

func TestCurrentVersionInfoFallsBackToLinkerValues(t *testing.T) {
	stubBuildInfo(t, nil)

	prev := buildinfo.Version
	t.Cleanup(func() { buildinfo.Version = prev })

	buildinfo.Version = ""
	info := currentVersionInfo()
	require.Equal(t, "devel", info.Version)
	require.Equal(t, runtime.Version(), info.GoVersion)
	require.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)

	buildinfo.Version = "0.5.1"
	require.Equal(t, "v0.5.1", currentVersionInfo().Version)
}

func TestVersionCommandJSONOutput(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		GoVersion: "go1.23.4",
		Main:      debug.Module{Path: modulePath, Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "deadbeef"},
			{Key: "GOOS", Value: "darwin"},
			{Key: "GOARCH", Value: "arm64"},
		},
	})
	prevJSON := jsonOutput
	t.Cleanup(func() { jsonOutput = prevJSON })
	jsonOutput = true

	out := captureStdout(t, func() {
		require.NoError(t, versionCmd.RunE(versionCmd, nil))
	})

	var resp struct {
		OK   bool        `json:"ok"`
		Data versionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.True(t, resp.OK)
	require.Equal(t, "deadbeef", resp.Data.Commit)
	require.Equal(t, "darwin/arm64", resp.Data.Platform)
	require.Equal(t, cache.CurrentVersion, resp.Data.CacheSchema)
}
