// Package fsys abstracts the filesystem probes used by the pattern matcher
// and the query engine.
package fsys

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Attributes is a set of filesystem attribute flags.
type Attributes uint32

const (
	AttrDirectory Attributes = 1 << iota
	AttrHidden
	AttrSystem
	AttrReadOnly
)

// Has reports whether any flag of mask is set.
func (a Attributes) Has(mask Attributes) bool { return a&mask != 0 }

// ParseAttributes converts flag names ("hidden", "system", "readonly",
// "directory") into a flag set. Unknown names are ignored.
func ParseAttributes(names []string) Attributes {
	var out Attributes
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "hidden":
			out |= AttrHidden
		case "system":
			out |= AttrSystem
		case "readonly", "read-only":
			out |= AttrReadOnly
		case "directory":
			out |= AttrDirectory
		}
	}
	return out
}

// FileSystem is the probe interface the engine reads the library through.
// Paths use forward slashes. Enumeration patterns use path.Match syntax and
// apply to entry names.
type FileSystem interface {
	// DirectoryExists reports whether dir exists and is a directory.
	DirectoryExists(dir string) (bool, error)
	// EnumerateDirectories lists subdirectories of dir whose name matches pattern.
	EnumerateDirectories(dir, pattern string) ([]string, error)
	// EnumerateFiles lists regular files in dir whose name matches pattern.
	EnumerateFiles(dir, pattern string) ([]string, error)
	// Attributes returns the attribute flags of p.
	Attributes(p string) (Attributes, error)
}

// Normalize converts p to the forward-slash form used throughout the engine
// and removes redundant separators. A trailing separator is kept only for a
// bare root such as "/" or "C:/".
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	cleaned := path.Clean(p)
	if cleaned == "." && !strings.HasPrefix(p, ".") {
		return ""
	}
	if len(cleaned) == 2 && cleaned[1] == ':' {
		cleaned += "/"
	}
	return cleaned
}

// Join joins a directory and a relative path in normalized form.
func Join(dir, rel string) string {
	switch {
	case dir == "":
		return Normalize(rel)
	case rel == "":
		return dir
	case strings.HasSuffix(dir, "/"):
		return Normalize(dir + rel)
	default:
		return Normalize(dir + "/" + rel)
	}
}

// Dir returns the parent directory of p in normalized form.
func Dir(p string) string {
	p = Normalize(p)
	i := strings.LastIndexByte(p, '/')
	switch {
	case i < 0:
		return ""
	case i == 0:
		return "/"
	case i == 2 && p[1] == ':':
		return p[:3]
	}
	return p[:i]
}

// Base returns the last element of p.
func Base(p string) string {
	p = Normalize(p)
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Depth counts the separators in a normalized path.
func Depth(p string) int {
	return strings.Count(strings.TrimSuffix(p, "/"), "/")
}

// IsNotExist reports whether err means the path does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// OS implements FileSystem on the host filesystem. Names starting with a dot
// are reported as hidden; on Windows the hidden and system file attributes
// count too.
type OS struct{}

var _ FileSystem = OS{}

func (OS) DirectoryExists(dir string) (bool, error) {
	info, err := os.Stat(osPath(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (o OS) EnumerateDirectories(dir, pattern string) ([]string, error) {
	return o.enumerate(dir, pattern, true)
}

func (o OS) EnumerateFiles(dir, pattern string) ([]string, error) {
	return o.enumerate(dir, pattern, false)
}

func (OS) enumerate(dir, pattern string, dirs bool) ([]string, error) {
	entries, err := os.ReadDir(osPath(dir))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(osPath(dir), e.Name())); err == nil {
				isDir = info.IsDir()
			}
		}
		if isDir != dirs {
			continue
		}
		if ok, _ := path.Match(pattern, e.Name()); !ok {
			continue
		}
		out = append(out, Join(dir, e.Name()))
	}
	return out, nil
}

func (OS) Attributes(p string) (Attributes, error) {
	info, err := os.Stat(osPath(p))
	if err != nil {
		return 0, err
	}
	a := platformAttributes(osPath(p))
	if info.IsDir() {
		a |= AttrDirectory
	}
	if strings.HasPrefix(Base(p), ".") {
		a |= AttrHidden
	}
	if info.Mode().Perm()&0o200 == 0 {
		a |= AttrReadOnly
	}
	return a, nil
}

func osPath(p string) string {
	if p == "" {
		return "."
	}
	return filepath.FromSlash(p)
}

// Mem is an in-memory FileSystem keyed by normalized paths. It is used by
// tests and by callers that want to query a synthetic tree.
type Mem struct {
	entries map[string]memEntry
}

type memEntry struct {
	attrs    Attributes
	children map[string]struct{}
}

var _ FileSystem = (*Mem)(nil)

// NewMem creates an empty in-memory filesystem.
func NewMem() *Mem {
	return &Mem{entries: make(map[string]memEntry)}
}

// AddDir adds a directory and all of its ancestors.
func (m *Mem) AddDir(p string, attrs ...Attributes) *Mem {
	p = Normalize(p)
	m.add(p, AttrDirectory|merge(attrs))
	return m
}

// AddFile adds a file and all of its ancestor directories.
func (m *Mem) AddFile(p string, attrs ...Attributes) *Mem {
	p = Normalize(p)
	m.add(p, merge(attrs)&^AttrDirectory)
	return m
}

func merge(attrs []Attributes) Attributes {
	var a Attributes
	for _, x := range attrs {
		a |= x
	}
	return a
}

func (m *Mem) add(p string, attrs Attributes) {
	e, ok := m.entries[p]
	if !ok {
		e.children = make(map[string]struct{})
	}
	e.attrs = attrs
	m.entries[p] = e

	// relative paths hang below the "" root
	for {
		parent := Dir(p)
		if parent == p {
			return
		}
		pe, ok := m.entries[parent]
		if !ok {
			pe = memEntry{attrs: AttrDirectory, children: make(map[string]struct{})}
		}
		pe.children[p] = struct{}{}
		m.entries[parent] = pe
		if ok {
			return
		}
		p = parent
	}
}

func (m *Mem) DirectoryExists(dir string) (bool, error) {
	e, ok := m.entries[Normalize(dir)]
	return ok && e.attrs.Has(AttrDirectory), nil
}

func (m *Mem) EnumerateDirectories(dir, pattern string) ([]string, error) {
	return m.enumerate(dir, pattern, true)
}

func (m *Mem) EnumerateFiles(dir, pattern string) ([]string, error) {
	return m.enumerate(dir, pattern, false)
}

func (m *Mem) enumerate(dir, pattern string, dirs bool) ([]string, error) {
	e, ok := m.entries[Normalize(dir)]
	if !ok || !e.attrs.Has(AttrDirectory) {
		return nil, &fs.PathError{Op: "readdir", Path: dir, Err: fs.ErrNotExist}
	}
	var out []string
	for child := range e.children {
		if m.entries[child].attrs.Has(AttrDirectory) != dirs {
			continue
		}
		if ok, _ := path.Match(pattern, Base(child)); !ok {
			continue
		}
		out = append(out, child)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Mem) Attributes(p string) (Attributes, error) {
	e, ok := m.entries[Normalize(p)]
	if !ok {
		return 0, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
	}
	return e.attrs, nil
}
