// Package views stores named queries. A view is referenced from other
// queries by its name, so names are normalized to plain identifiers.
package views

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/BurntSushi/toml"
	goslug "github.com/gosimple/slug"

	"github.com/trylock/viewer-sub003/internal/atomicfile"
	"github.com/trylock/viewer-sub003/internal/expr"
)

var (
	// ErrNotFound indicates there is no view with the given name.
	ErrNotFound = errors.New("view not found")
	// ErrInvalidName indicates a name that cannot be used in a query.
	ErrInvalidName = errors.New("invalid view name")
)

// View is a stored query.
type View struct {
	Name        string    `toml:"-"`
	Query       string    `toml:"query"`
	Description string    `toml:"description,omitempty"`
	Created     time.Time `toml:"created"`
	Modified    time.Time `toml:"modified"`
}

type persistedViews struct {
	Views map[string]View `toml:"views"`
}

// Store is a view repository backed by a TOML file. It is safe for
// concurrent use.
type Store struct {
	mu    sync.RWMutex
	path  string
	views map[string]View
	now   func() time.Time
}

// Load reads the views stored at path. A missing file is an empty store.
func Load(path string) (*Store, error) {
	s := &Store{path: path, views: make(map[string]View), now: time.Now}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read views %s: %w", path, err)
	}

	var stored persistedViews
	if err := toml.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse views %s: %w", path, err)
	}
	for name, v := range stored.Views {
		key, err := NormalizeName(name)
		if err != nil {
			return nil, fmt.Errorf("views %s: %w", path, err)
		}
		v.Name = key
		s.views[key] = v
	}
	return s, nil
}

// NormalizeName turns a display name such as "Best of 2020" into the
// identifier the view is stored and referenced under ("best_of_2020").
func NormalizeName(name string) (string, error) {
	key := strings.ReplaceAll(goslug.Make(name), "-", "_")
	if key == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if r := rune(key[0]); !unicode.IsLetter(r) && r != '_' {
		return "", fmt.Errorf("%w: %q must start with a letter", ErrInvalidName, name)
	}
	if expr.Keywords[key] {
		return "", fmt.Errorf("%w: %q is a keyword", ErrInvalidName, name)
	}
	return key, nil
}

// Path is the backing file.
func (s *Store) Path() string { return s.path }

// Lookup returns the query text of a view. It lets a query compiler
// resolve view references.
func (s *Store) Lookup(name string) (string, bool) {
	v, ok := s.Get(name)
	return v.Query, ok
}

// Get returns a view by name.
func (s *Store) Get(name string) (View, bool) {
	key, err := NormalizeName(name)
	if err != nil {
		return View{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[key]
	return v, ok
}

// List returns all views sorted by name.
func (s *Store) List() []View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]View, 0, len(s.views))
	for _, v := range s.views {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Put adds or replaces a view and saves the store. It returns the stored
// view; its Name is the normalized name.
func (s *Store) Put(name, query, description string) (View, error) {
	key, err := NormalizeName(name)
	if err != nil {
		return View{}, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return View{}, fmt.Errorf("view %s: empty query", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Truncate(time.Second)
	prev, exists := s.views[key]
	v := prev
	if !exists {
		v = View{Name: key, Created: now}
	}
	v.Query = query
	v.Description = description
	v.Modified = now

	s.views[key] = v
	if err := s.saveLocked(); err != nil {
		if exists {
			s.views[key] = prev
		} else {
			delete(s.views, key)
		}
		return View{}, err
	}
	return v, nil
}

// Remove deletes a view and saves the store.
func (s *Store) Remove(name string) error {
	key, err := NormalizeName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.views[key]
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	delete(s.views, key)
	if err := s.saveLocked(); err != nil {
		s.views[key] = prev
		return err
	}
	return nil
}

func (s *Store) saveLocked() error {
	if strings.TrimSpace(s.path) == "" {
		return errors.New("views path is required")
	}
	out := persistedViews{Views: s.views}
	err := atomicfile.Write(s.path, 0, func(w io.Writer) error {
		if err := toml.NewEncoder(w).Encode(out); err != nil {
			return fmt.Errorf("failed to marshal views: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save views %s: %w", s.path, err)
	}
	return nil
}
