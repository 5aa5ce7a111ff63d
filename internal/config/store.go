package config

import (
	"sync/atomic"
)

// Store holds the active settings and the file they were read from.
type Store struct {
	path    string
	current atomic.Pointer[Settings]
}

// NewStore loads path and returns a store seeded with its settings. A load
// failure here is a startup failure: there is no safe default to run with.
func NewStore(path string) (*Store, error) {
	resolved, err := ExpandPath(path, "")
	if err != nil {
		return nil, err
	}
	settings, err := Load(resolved)
	if err != nil {
		return nil, err
	}
	s := &Store{path: resolved}
	s.current.Store(&settings)
	return s, nil
}

// NewStaticStore returns a store that serves settings without a backing file.
// Reload on such a store always fails and keeps settings.
func NewStaticStore(settings Settings) *Store {
	s := &Store{}
	s.current.Store(&settings)
	return s
}

// Path returns the absolute path of the backing configuration file.
func (s *Store) Path() string {
	return s.path
}

// Current returns the active snapshot.
func (s *Store) Current() Settings {
	return *s.current.Load()
}

// Reload re-reads the backing file. On success all three values are replaced
// together; on failure the previous snapshot stays active and the error is
// returned for the caller to log.
func (s *Store) Reload() (Settings, error) {
	if s.path == "" {
		return s.Current(), errNoBackingFile
	}
	settings, err := Load(s.path)
	if err != nil {
		return s.Current(), err
	}
	s.current.Store(&settings)
	return settings, nil
}
