// Package config handles the global viewer configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/glob"
	"github.com/trylock/viewer-sub003/internal/plan"
)

// Config represents the global configuration.
type Config struct {
	// Library is the photo directory relative patterns are resolved
	// against. Empty means the working directory.
	Library string `toml:"library"`

	// Cache is the attribute cache database. Defaults to
	// <user cache dir>/viewer/cache.db.
	Cache string `toml:"cache"`

	// Views is the named query file. Defaults to views.toml next to the
	// config file.
	Views string `toml:"views"`

	// Extensions lists the file extensions a query selects, e.g. ".jpg".
	Extensions []string `toml:"extensions"`

	// Hidden lists the attribute flags that hide an entry from wildcard
	// expansion and results: "hidden", "system", "readonly".
	Hidden []string `toml:"hidden"`

	// LogLevel is a zerolog level name. Defaults to "warn".
	LogLevel string `toml:"log_level"`

	// Workers bounds concurrent EXIF reads while indexing. Zero picks a
	// value from the CPU count.
	Workers int `toml:"workers"`

	// UI controls optional CLI theming preferences.
	UI UIConfig `toml:"ui"`

	path string
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output and markdown rendering.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`

	// CodeTheme sets the Glamour/Chroma theme used for rendered markdown code blocks.
	CodeTheme string `toml:"code_theme"`
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &Config{path: configPath}, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	config.path = path
	return &config, nil
}

// DefaultPath returns the default config file path.
// Checks ~/.config/viewer/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "viewer", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "viewer", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}

// Path is the file the config was loaded from.
func (c *Config) Path() string { return c.path }

// CachePath returns the attribute cache database path.
func (c *Config) CachePath() string {
	if c.Cache != "" {
		return expandHome(c.Cache)
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "viewer", "cache.db")
	}
	return filepath.Join(".", "viewer-cache.db")
}

// ViewsPath returns the view store path.
func (c *Config) ViewsPath() string {
	if c.Views != "" {
		return expandHome(c.Views)
	}
	base := c.path
	if base == "" {
		base = DefaultPath()
	}
	return filepath.Join(filepath.Dir(base), "views.toml")
}

// LibraryPath returns the library directory in normalized form.
func (c *Config) LibraryPath() string {
	return fsys.Normalize(expandHome(c.Library))
}

// HiddenAttributes returns the configured hidden flags, or the default
// set when none are configured.
func (c *Config) HiddenAttributes() fsys.Attributes {
	if len(c.Hidden) == 0 {
		return glob.DefaultHidden
	}
	return fsys.ParseAttributes(c.Hidden)
}

// ExtensionList returns the accepted extensions lower-cased with a leading
// dot.
func (c *Config) ExtensionList() []string {
	if len(c.Extensions) == 0 {
		return plan.DefaultExtensions
	}
	out := make([]string, 0, len(c.Extensions))
	for _, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// Level returns the configured log level.
func (c *Config) Level() (zerolog.Level, error) {
	if strings.TrimSpace(c.LogLevel) == "" {
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	if err != nil {
		return zerolog.WarnLevel, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// CreateDefaultAt creates a default config file at configPath if it
// doesn't exist.
func CreateDefaultAt(configPath string) (string, error) {
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil // Already exists
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := `# Viewer Configuration

# Photo library; relative query patterns are resolved against it
# library = "~/Pictures"

# Attribute cache and named views
# cache = "~/.cache/viewer/cache.db"
# views = "~/.config/viewer/views.toml"

# Files a query selects
# extensions = [".jpg", ".jpeg"]

# Entries skipped by wildcards: hidden, system, readonly
# hidden = ["hidden", "system"]

# trace, debug, info, warn, error
# log_level = "warn"

# [ui]
# accent = "39"
# code_theme = "monokai"
`

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}
