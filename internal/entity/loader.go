package entity

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	exiflib "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/logging"
	"github.com/trylock/viewer-sub003/internal/value"
)

// Computed attribute names.
const (
	AttrFileName      = "FileName"
	AttrExtension     = "Extension"
	AttrFileSize      = "FileSize"
	AttrLastWriteTime = "LastWriteTime"
)

// Friendly names for common EXIF values. The raw EXIF field names (Model,
// Make, ISOSpeedRatings, ...) are exposed as well.
const (
	AttrDateTaken = "DateTaken"
	AttrWidth     = "Width"
	AttrHeight    = "Height"
	AttrLatitude  = "Latitude"
	AttrLongitude = "Longitude"
)

// ErrNotAFile is returned when a loader is asked to load a directory.
var ErrNotAFile = errors.New("not a regular file")

// Loader loads the entity stored at a path.
type Loader interface {
	Load(path string) (Entity, error)
}

// CustomSource supplies user-defined attributes of a file.
type CustomSource interface {
	CustomAttributes(path string) ([]Attribute, error)
}

// FileLoader reads computed attributes from the filesystem, metadata from
// the EXIF block and custom attributes from an optional CustomSource.
type FileLoader struct {
	Custom CustomSource
	Log    *zerolog.Logger
}

var _ Loader = (*FileLoader)(nil)

// Load implements Loader.
func (l *FileLoader) Load(path string) (Entity, error) {
	path = fsys.Normalize(path)
	f, err := os.Open(filepath.FromSlash(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotAFile)
	}

	attrs := []Attribute{
		{Name: AttrFileName, Value: value.String(fsys.Base(path)), Source: SourceComputed},
		{Name: AttrExtension, Value: value.String(strings.ToLower(filepath.Ext(path))), Source: SourceComputed},
		{Name: AttrFileSize, Value: value.Int(info.Size()), Source: SourceComputed},
		{Name: AttrLastWriteTime, Value: value.DateTime(info.ModTime()), Source: SourceComputed},
	}
	attrs = append(attrs, l.metadata(path, f)...)

	if l.Custom != nil {
		custom, err := l.Custom.CustomAttributes(path)
		if err != nil {
			return nil, fmt.Errorf("load custom attributes of %s: %w", path, err)
		}
		attrs = append(attrs, custom...)
	}
	return NewFile(path, attrs), nil
}

func (l *FileLoader) logger() zerolog.Logger {
	if l.Log != nil {
		return *l.Log
	}
	return logging.GetLogger()
}

// metadata decodes the EXIF block. Files without one simply have no
// metadata attributes.
func (l *FileLoader) metadata(path string, r io.Reader) []Attribute {
	x, err := exiflib.Decode(r)
	if err != nil && (x == nil || exiflib.IsCriticalError(err)) {
		log := l.logger()
		log.Debug().Err(err).Str("path", path).Msg("no usable EXIF metadata")
		return nil
	}
	return ExtractEXIF(x)
}

// ExtractEXIF converts decoded EXIF fields into metadata attributes.
func ExtractEXIF(x *exiflib.Exif) []Attribute {
	if x == nil {
		return nil
	}
	w := exifWalker{}
	_ = x.Walk(&w)

	if t, err := x.DateTime(); err == nil {
		w.add(AttrDateTaken, value.DateTime(t))
	}
	if lat, long, err := x.LatLong(); err == nil {
		w.add(AttrLatitude, value.Real(lat))
		w.add(AttrLongitude, value.Real(long))
	}
	for name, field := range map[string]exiflib.FieldName{
		AttrWidth:  exiflib.PixelXDimension,
		AttrHeight: exiflib.PixelYDimension,
	} {
		if tag, err := x.Get(field); err == nil {
			if v := tagValue(tag); !v.IsNull() {
				w.add(name, v)
			}
		}
	}
	return w.attrs
}

type exifWalker struct {
	attrs []Attribute
}

func (w *exifWalker) add(name string, v value.Value) {
	w.attrs = append(w.attrs, Attribute{Name: name, Value: v, Source: SourceMetadata})
}

func (w *exifWalker) Walk(name exiflib.FieldName, tag *tiff.Tag) error {
	if v := tagValue(tag); !v.IsNull() {
		w.add(string(name), v)
	}
	return nil
}

// tagValue converts single-valued tags. Arrays and undefined blobs are
// skipped.
func tagValue(tag *tiff.Tag) value.Value {
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return value.Null
		}
		s = strings.TrimRight(s, "\x00 ")
		if s == "" {
			return value.Null
		}
		if t, err := value.ParseDateTime(s); err == nil && strings.Count(s, ":") >= 4 {
			return value.DateTime(t)
		}
		return value.String(s)
	case tiff.IntVal:
		if tag.Count != 1 {
			return value.Null
		}
		n, err := tag.Int64(0)
		if err != nil {
			return value.Null
		}
		return value.Int(n)
	case tiff.RatVal:
		if tag.Count != 1 {
			return value.Null
		}
		num, den, err := tag.Rat2(0)
		if err != nil || den == 0 {
			return value.Null
		}
		return value.Real(float64(num) / float64(den))
	case tiff.FloatVal:
		if tag.Count != 1 {
			return value.Null
		}
		f, err := tag.Float(0)
		if err != nil {
			return value.Null
		}
		return value.Real(f)
	}
	return value.Null
}
