package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/glob"
)

func TestLoadFrom(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	// In TOML, keys after a [section] belong to that section.
	content := `library = "/photos"
extensions = ["JPG", ".png", " "]
hidden = ["hidden"]
log_level = "debug"
workers = 3

[ui]
accent = "39"
code_theme = "dracula"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LibraryPath() != "/photos" {
		t.Errorf("expected library '/photos', got %q", cfg.LibraryPath())
	}
	if got := cfg.ExtensionList(); !reflect.DeepEqual(got, []string{".jpg", ".png"}) {
		t.Errorf("unexpected extensions %v", got)
	}
	if cfg.HiddenAttributes() != fsys.AttrHidden {
		t.Errorf("expected only the hidden flag, got %v", cfg.HiddenAttributes())
	}
	if lvl, err := cfg.Level(); err != nil || lvl != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %v (%v)", lvl, err)
	}
	if cfg.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Workers)
	}
	if cfg.UI.Accent != "39" {
		t.Errorf("expected ui.accent '39', got %q", cfg.UI.Accent)
	}
	if cfg.UI.CodeTheme != "dracula" {
		t.Errorf("expected ui.code_theme 'dracula', got %q", cfg.UI.CodeTheme)
	}
	if cfg.ViewsPath() != filepath.Join(tmpDir, "views.toml") {
		t.Errorf("expected views next to the config, got %q", cfg.ViewsPath())
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	if cfg.HiddenAttributes() != glob.DefaultHidden {
		t.Errorf("expected default hidden flags, got %v", cfg.HiddenAttributes())
	}
	if got := cfg.ExtensionList(); !reflect.DeepEqual(got, []string{".jpg", ".jpeg"}) {
		t.Errorf("unexpected default extensions %v", got)
	}
	if lvl, err := cfg.Level(); err != nil || lvl != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %v (%v)", lvl, err)
	}
	if filepath.Base(cfg.CachePath()) == "" {
		t.Error("expected a cache path")
	}
}

func TestInvalidLogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "loud"}
	if _, err := cfg.Level(); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestLoadFromInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	// Invalid TOML
	content := `this is not valid toml {{{{`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadFrom(configPath)
	if err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestLoad(t *testing.T) {
	// Load should return empty config when file doesn't exist
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Error("expected non-nil config")
	}
}

func TestCreateDefaultAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	got, err := CreateDefaultAt(path)
	if err != nil {
		t.Fatalf("CreateDefaultAt returned error: %v", err)
	}
	if got != path {
		t.Errorf("expected %s, got %s", path, got)
	}

	// the template is all comments, so it loads as an empty config
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
	if cfg.Library != "" || len(cfg.Extensions) != 0 {
		t.Errorf("expected empty settings, got %#v", cfg)
	}

	if err := os.WriteFile(path, []byte("library = \"/kept\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDefaultAt(path); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadFrom(path)
	if err != nil || cfg.Library != "/kept" {
		t.Errorf("expected existing config to be kept, got %#v (%v)", cfg, err)
	}
}
