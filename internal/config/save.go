package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/trylock/viewer-sub003/internal/atomicfile"
)

type persistedConfig struct {
	Library    *string              `toml:"library,omitempty"`
	Cache      *string              `toml:"cache,omitempty"`
	Views      *string              `toml:"views,omitempty"`
	Extensions []string             `toml:"extensions,omitempty"`
	Hidden     []string             `toml:"hidden,omitempty"`
	LogLevel   *string              `toml:"log_level,omitempty"`
	Workers    int                  `toml:"workers,omitempty"`
	UI         *persistedUISettings `toml:"ui,omitempty"`
}

type persistedUISettings struct {
	Accent    *string `toml:"accent,omitempty"`
	CodeTheme *string `toml:"code_theme,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// SaveTo writes the config to a specific path atomically. Empty settings
// are omitted.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	out := persistedConfig{
		Library:    nonEmptyPtr(cfg.Library),
		Cache:      nonEmptyPtr(cfg.Cache),
		Views:      nonEmptyPtr(cfg.Views),
		Extensions: cfg.Extensions,
		Hidden:     cfg.Hidden,
		LogLevel:   nonEmptyPtr(cfg.LogLevel),
		Workers:    cfg.Workers,
	}

	accent := nonEmptyPtr(cfg.UI.Accent)
	codeTheme := nonEmptyPtr(cfg.UI.CodeTheme)
	if accent != nil || codeTheme != nil {
		out.UI = &persistedUISettings{
			Accent:    accent,
			CodeTheme: codeTheme,
		}
	}

	err := atomicfile.Write(path, 0o644, func(w io.Writer) error {
		return toml.NewEncoder(w).Encode(out)
	})
	if err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	cfg.path = path
	return nil
}
