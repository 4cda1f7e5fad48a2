package fsys

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathHelpers(t *testing.T) {
	tests := []struct {
		in, norm, dir, base string
	}{
		{`C:\photos\2023\`, "C:/photos/2023", "C:/photos", "2023"},
		{"C:/", "C:/", "C:/", ""},
		{"/a//b/./c", "/a/b/c", "/a/b", "c"},
		{"a", "a", "", "a"},
		{"", "", "", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.norm {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.norm)
		}
		if got := Dir(tt.in); got != tt.dir {
			t.Errorf("Dir(%q) = %q, want %q", tt.in, got, tt.dir)
		}
		if got := Base(tt.in); got != tt.base {
			t.Errorf("Base(%q) = %q, want %q", tt.in, got, tt.base)
		}
	}

	if got := Join("a/b", "c"); got != "a/b/c" {
		t.Errorf("Join = %q", got)
	}
	if got := Join("", "c"); got != "c" {
		t.Errorf("Join with empty dir = %q", got)
	}
}

func TestParseAttributes(t *testing.T) {
	got := ParseAttributes([]string{" Hidden", "read-only", "bogus"})
	if got != AttrHidden|AttrReadOnly {
		t.Errorf("ParseAttributes = %v", got)
	}
}

func TestOSProbes(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"b", "a", ".cache"} {
		if err := os.Mkdir(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range []string{"x.jpg", "y.txt"} {
		if err := os.WriteFile(filepath.Join(root, f), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	base := filepath.ToSlash(root)
	fs := OS{}

	dirs, err := fs.EnumerateDirectories(base, "*")
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 3 || dirs[0] != base+"/.cache" || dirs[1] != base+"/a" {
		t.Errorf("unexpected directories %v", dirs)
	}

	files, err := fs.EnumerateFiles(base, "*.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != base+"/x.jpg" {
		t.Errorf("unexpected files %v", files)
	}

	attrs, err := fs.Attributes(base + "/.cache")
	if err != nil {
		t.Fatal(err)
	}
	if !attrs.Has(AttrHidden) || !attrs.Has(AttrDirectory) {
		t.Errorf("expected hidden directory, got %v", attrs)
	}

	if ok, err := fs.DirectoryExists(base + "/missing"); ok || err != nil {
		t.Errorf("DirectoryExists(missing) = %v, %v", ok, err)
	}
	if _, err := fs.Attributes(base + "/missing"); !IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
