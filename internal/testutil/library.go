// Package testutil provides reusable helpers for vwr integration tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLibrary is a temporary photo library with its own config, cache and
// view store.
type TestLibrary struct {
	// Root is the library directory.
	Root string
	// Config is the config.toml passed to every command.
	Config string

	t      *testing.T
	files  map[string][]byte
	config []string
}

// NewTestLibrary creates a library builder. Call Build to write it out.
func NewTestLibrary(t *testing.T) *TestLibrary {
	t.Helper()
	return &TestLibrary{
		t:     t,
		files: make(map[string][]byte),
	}
}

// WithPhoto adds a file of size bytes. The path is relative to the library
// root and uses forward slashes.
func (l *TestLibrary) WithPhoto(path string, size int) *TestLibrary {
	l.files[path] = bytes.Repeat([]byte("x"), size)
	return l
}

// WithFile adds a file with the given content.
func (l *TestLibrary) WithFile(path, content string) *TestLibrary {
	l.files[path] = []byte(content)
	return l
}

// WithConfig appends raw TOML lines to the generated config.toml.
func (l *TestLibrary) WithConfig(lines ...string) *TestLibrary {
	l.config = append(l.config, lines...)
	return l
}

// Build writes the library files and a config pointing the cache and view
// store into the same temp directory.
func (l *TestLibrary) Build() *TestLibrary {
	l.t.Helper()

	base := l.t.TempDir()
	l.Root = filepath.Join(base, "library")
	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		l.t.Fatalf("failed to create library: %v", err)
	}
	for path, content := range l.files {
		l.writeFile(path, content)
	}

	lines := []string{
		"library = " + literal(l.Root),
		"cache = " + literal(filepath.Join(base, "cache.db")),
		"views = " + literal(filepath.Join(base, "views.toml")),
	}
	lines = append(lines, l.config...)
	l.Config = filepath.Join(base, "config.toml")
	if err := os.WriteFile(l.Config, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		l.t.Fatalf("failed to write config: %v", err)
	}
	return l
}

func (l *TestLibrary) writeFile(relPath string, content []byte) {
	l.t.Helper()
	full := filepath.Join(l.Root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		l.t.Fatalf("failed to create directory for %s: %v", relPath, err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		l.t.Fatalf("failed to write %s: %v", relPath, err)
	}
}

// Remove deletes a library file.
func (l *TestLibrary) Remove(relPath string) {
	l.t.Helper()
	if err := os.Remove(filepath.Join(l.Root, filepath.FromSlash(relPath))); err != nil {
		l.t.Fatalf("failed to remove %s: %v", relPath, err)
	}
}

// literal quotes a path as a TOML literal string.
func literal(path string) string {
	return "'" + filepath.ToSlash(path) + "'"
}
