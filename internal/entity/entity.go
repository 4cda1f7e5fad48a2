// Package entity defines the files and directories a query yields together
// with their named attributes.
package entity

import (
	"sort"
	"strings"

	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/value"
)

// Source tells where an attribute came from.
type Source int

const (
	// SourceCustom attributes are set by the user and stored in the cache.
	SourceCustom Source = iota
	// SourceMetadata attributes are read from the photo's EXIF block.
	SourceMetadata
	// SourceComputed attributes are derived from the filesystem.
	SourceComputed
)

func (s Source) String() string {
	switch s {
	case SourceCustom:
		return "custom"
	case SourceMetadata:
		return "metadata"
	case SourceComputed:
		return "computed"
	default:
		return "unknown"
	}
}

// ParseSource is the inverse of Source.String.
func ParseSource(s string) (Source, bool) {
	switch strings.ToLower(s) {
	case "custom":
		return SourceCustom, true
	case "metadata":
		return SourceMetadata, true
	case "computed":
		return SourceComputed, true
	}
	return 0, false
}

// Attribute is a named value attached to an entity.
type Attribute struct {
	Name   string
	Value  value.Value
	Source Source
}

// Entity is a file or directory with attributes. Implementations are
// immutable.
type Entity interface {
	// Path is the normalized path that identifies the entity.
	Path() string
	// Attribute looks up an attribute by name.
	Attribute(name string) (Attribute, bool)
	// Attributes returns all attributes sorted by name.
	Attributes() []Attribute
	// IsDirectory reports whether the entity is a directory.
	IsDirectory() bool
}

// File is a photo file entity.
type File struct {
	path  string
	attrs []Attribute
}

// NewFile creates a file entity. When several attributes share a name the
// last one wins.
func NewFile(path string, attrs []Attribute) *File {
	byName := make(map[string]Attribute, len(attrs))
	for _, a := range attrs {
		byName[a.Name] = a
	}
	sorted := make([]Attribute, 0, len(byName))
	for _, a := range byName {
		sorted = append(sorted, a)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &File{path: fsys.Normalize(path), attrs: sorted}
}

func (f *File) Path() string      { return f.path }
func (f *File) IsDirectory() bool { return false }

func (f *File) Attribute(name string) (Attribute, bool) {
	i := sort.Search(len(f.attrs), func(i int) bool { return f.attrs[i].Name >= name })
	if i < len(f.attrs) && f.attrs[i].Name == name {
		return f.attrs[i], true
	}
	return Attribute{}, false
}

func (f *File) Attributes() []Attribute {
	return append([]Attribute(nil), f.attrs...)
}

// Directory is a folder entity. Its only attribute is its name.
type Directory struct {
	path string
}

// NewDirectory creates a directory entity.
func NewDirectory(path string) *Directory {
	return &Directory{path: fsys.Normalize(path)}
}

func (d *Directory) Path() string      { return d.path }
func (d *Directory) IsDirectory() bool { return true }

func (d *Directory) Attribute(name string) (Attribute, bool) {
	if name == AttrFileName {
		return d.Attributes()[0], true
	}
	return Attribute{}, false
}

func (d *Directory) Attributes() []Attribute {
	return []Attribute{{Name: AttrFileName, Value: value.String(fsys.Base(d.path)), Source: SourceComputed}}
}

// ComparePaths orders entities by path. It is the default result order.
func ComparePaths(a, b Entity) int {
	return strings.Compare(a.Path(), b.Path())
}
