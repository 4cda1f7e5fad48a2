package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trylock/viewer-sub003/internal/config"
	"github.com/trylock/viewer-sub003/internal/ui"
)

var (
	configSetLibrary   string
	configSetCache     string
	configSetViews     string
	configSetLogLevel  string
	configSetWorkers   int
	configSetAccent    string
	configSetCodeTheme string
)

// configFields are the settings 'config set' and 'config unset' accept,
// keyed by flag name.
var configFields = map[string]struct {
	key   string
	clear func(*config.Config)
}{
	"library":       {"library", func(c *config.Config) { c.Library = "" }},
	"cache":         {"cache", func(c *config.Config) { c.Cache = "" }},
	"views":         {"views", func(c *config.Config) { c.Views = "" }},
	"log-level":     {"log_level", func(c *config.Config) { c.LogLevel = "" }},
	"workers":       {"workers", func(c *config.Config) { c.Workers = 0 }},
	"ui-accent":     {"ui.accent", func(c *config.Config) { c.UI.Accent = "" }},
	"ui-code-theme": {"ui.code_theme", func(c *config.Config) { c.UI.CodeTheme = "" }},
}

func targetConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// loadConfigAllowMissing loads the target config, or an empty one bound to
// the target path when the file does not exist yet.
func loadConfigAllowMissing() (*config.Config, bool, error) {
	path := targetConfigPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		empty := &config.Config{}
		return empty, false, nil
	}
	loaded, err := config.LoadFrom(path)
	if err != nil {
		return nil, false, err
	}
	return loaded, true, nil
}

func configData(c *config.Config, exists bool) map[string]any {
	return map[string]any{
		"config_path": targetConfigPath(),
		"exists":      exists,
		"library":     c.LibraryPath(),
		"cache":       c.CachePath(),
		"views":       c.ViewsPath(),
		"extensions":  c.ExtensionList(),
		"log_level":   strings.TrimSpace(c.LogLevel),
		"workers":     c.Workers,
		"ui": map[string]any{
			"accent":     strings.TrimSpace(c.UI.Accent),
			"code_theme": strings.TrimSpace(c.UI.CodeTheme),
		},
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	c, exists, err := loadConfigAllowMissing()
	if err != nil {
		return handleError(ErrConfigInvalid, err, "")
	}

	if isJSONOutput() {
		outputSuccess(configData(c, exists), nil)
		return nil
	}

	if !exists {
		fmt.Printf("Config file does not exist: %s\n", targetConfigPath())
		fmt.Println(ui.Hint("Run 'vwr config init' to create it. Defaults apply until then."))
	} else {
		fmt.Printf("config: %s\n", targetConfigPath())
	}

	tbl := ui.NewTable(2)
	library := c.LibraryPath()
	if library == "" {
		library = ui.Hint("(working directory)")
	}
	tbl.AddRow("library", library)
	tbl.AddRow("cache", c.CachePath())
	tbl.AddRow("views", c.ViewsPath())
	tbl.AddRow("extensions", strings.Join(c.ExtensionList(), ", "))
	if v := strings.TrimSpace(c.LogLevel); v != "" {
		tbl.AddRow("log_level", v)
	}
	if c.Workers > 0 {
		tbl.AddRow("workers", fmt.Sprint(c.Workers))
	}
	if v := strings.TrimSpace(c.UI.Accent); v != "" {
		tbl.AddRow("ui.accent", v)
	}
	if v := strings.TrimSpace(c.UI.CodeTheme); v != "" {
		tbl.AddRow("ui.code_theme", v)
	}
	fmt.Print(tbl.String())
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the vwr config.toml",
	Long: `Manage the vwr config.toml: where the library, cache and views live,
which files queries select and how output looks.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config.toml if missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		target := targetConfigPath()
		_, statErr := os.Stat(target)
		existed := statErr == nil

		created, err := config.CreateDefaultAt(target)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"config_path": created, "created": !existed}, nil)
			return nil
		}
		if existed {
			fmt.Println(ui.Info("Config already exists: " + created))
		} else {
			fmt.Println(ui.Successf("Created config: %s", created))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set one or more config.toml fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := loadConfigAllowMissing()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}

		var changed []string
		set := func(flag string, apply func()) {
			if cmd.Flags().Changed(flag) {
				apply()
				changed = append(changed, configFields[flag].key)
			}
		}
		set("library", func() { c.Library = strings.TrimSpace(configSetLibrary) })
		set("cache", func() { c.Cache = strings.TrimSpace(configSetCache) })
		set("views", func() { c.Views = strings.TrimSpace(configSetViews) })
		set("log-level", func() { c.LogLevel = strings.TrimSpace(configSetLogLevel) })
		set("workers", func() { c.Workers = configSetWorkers })
		set("ui-accent", func() { c.UI.Accent = strings.TrimSpace(configSetAccent) })
		set("ui-code-theme", func() { c.UI.CodeTheme = strings.TrimSpace(configSetCodeTheme) })

		if len(changed) == 0 {
			return handleError(ErrInvalidInput, errors.New("no fields provided"), "Pass at least one of --library, --cache, --views, --log-level, --workers, --ui-accent, --ui-code-theme")
		}
		if _, err := c.Level(); err != nil {
			return handleError(ErrInvalidInput, err, "Use trace, debug, info, warn or error")
		}
		if c.Workers < 0 {
			return handleError(ErrInvalidInput, fmt.Errorf("workers must not be negative"), "")
		}

		return saveConfig(c, changed)
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <field>...",
	Short: "Reset config.toml fields to their defaults",
	Long: `Reset config.toml fields to their defaults. Fields are named like the
flags of 'vwr config set': library, cache, views, log-level, workers,
ui-accent, ui-code-theme.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, exists, err := loadConfigAllowMissing()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		if !exists {
			return handleError(ErrFileNotFound, fmt.Errorf("config file not found: %s", targetConfigPath()), "Run 'vwr config init' first")
		}

		var changed []string
		for _, name := range args {
			field, ok := configFields[name]
			if !ok {
				return handleError(ErrInvalidInput, fmt.Errorf("unknown config field %q", name), "")
			}
			field.clear(c)
			changed = append(changed, field.key)
		}
		return saveConfig(c, changed)
	},
}

func saveConfig(c *config.Config, changed []string) error {
	if err := config.SaveTo(targetConfigPath(), c); err != nil {
		return handleError(ErrInternal, err, "")
	}

	if isJSONOutput() {
		data := configData(c, true)
		data["changed"] = changed
		outputSuccess(data, nil)
		return nil
	}
	fmt.Println(ui.Successf("Updated %s: %s", c.Path(), strings.Join(changed, ", ")))
	return nil
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})

	configSetCmd.Flags().StringVar(&configSetLibrary, "library", "", "Photo library directory")
	configSetCmd.Flags().StringVar(&configSetCache, "cache", "", "Attribute cache database path")
	configSetCmd.Flags().StringVar(&configSetViews, "views", "", "View store path")
	configSetCmd.Flags().StringVar(&configSetLogLevel, "log-level", "", "Log level (trace|debug|info|warn|error)")
	configSetCmd.Flags().IntVar(&configSetWorkers, "workers", 0, "Concurrent file reads while indexing")
	configSetCmd.Flags().StringVar(&configSetAccent, "ui-accent", "", "UI accent color (ANSI 0-255 or #RRGGBB)")
	configSetCmd.Flags().StringVar(&configSetCodeTheme, "ui-code-theme", "", "Code block theme for 'vwr syntax'")

	rootCmd.AddCommand(configCmd)
}
