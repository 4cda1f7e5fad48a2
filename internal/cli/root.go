// Package cli implements the command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/trylock/viewer-sub003/internal/config"
	"github.com/trylock/viewer-sub003/internal/logging"
	"github.com/trylock/viewer-sub003/internal/ui"
)

var (
	// Global flags
	configPath  string
	libraryFlag string
	debugLog    bool

	// Resolved values
	cfg                *config.Config
	resolvedLibrary    string
	resolvedCachePath  string
	resolvedViewsPath  string
	resolvedConfigPath string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vwr",
	Short: "Query a photo library by path patterns and attributes",
	Long: `vwr finds photos with a small SQL-like query language:

  vwr query 'select "trips/**" where Model = "X100V" order by DateTaken desc'

Patterns pick folders, predicates filter on file and EXIF attributes, and
queries combine with union, except and intersect. Run 'vwr syntax' for the
full reference and 'vwr index' to fill the attribute cache.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}
		if cmd == configCmd || (cmd.HasParent() && cmd.Parent() == configCmd) {
			return nil
		}

		loaded, err := loadConfig()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "Fix the file or pass --config to use another one")
		}
		cfg = loaded
		if libraryFlag != "" {
			cfg.Library = libraryFlag
		}

		level, err := cfg.Level()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		if debugLog {
			level = zerolog.DebugLevel
		}
		logging.Configure(os.Stderr, level.String())

		ui.ConfigureTheme(cfg.UI.Accent)
		ui.ConfigureMarkdownCodeTheme(cfg.UI.CodeTheme)

		return resolvePaths()
	},
}

// loadConfig reads --config when given, the default config file otherwise.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		resolvedConfigPath = loaded.Path()
		return loaded, nil
	}
	loaded, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, err
	}
	resolvedConfigPath = configPath
	return loaded, nil
}

// resolvePaths makes the cache and view paths absolute and then moves into
// the library, so relative query patterns and cache keys are relative to
// it.
func resolvePaths() error {
	var err error
	if resolvedCachePath, err = filepath.Abs(cfg.CachePath()); err != nil {
		return err
	}
	if resolvedViewsPath, err = filepath.Abs(cfg.ViewsPath()); err != nil {
		return err
	}

	resolvedLibrary = cfg.LibraryPath()
	if resolvedLibrary == "" {
		return nil
	}
	info, err := os.Stat(filepath.FromSlash(resolvedLibrary))
	if err != nil || !info.IsDir() {
		return handleError(ErrLibraryNotFound,
			fmt.Errorf("library not found: %s", resolvedLibrary),
			"Set library in the config file or pass --library")
	}
	return os.Chdir(filepath.FromSlash(resolvedLibrary))
}

// Execute runs the CLI. Interrupting the process cancels the running
// command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, ui.Error(err.Error()))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&libraryFlag, "library", "l", "", "Photo library directory (overrides library in config)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Log debug messages to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for script use)")
}
