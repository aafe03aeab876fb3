// Package settings persists the last applied bundle versions.
//
// The settings file is a flat TOML document at the root of the launcher's home
// directory. Versions are stored as decimal-integer strings:
//
//	cache_version = "5"
//	client_version = "9"
//
// Keys the launcher does not know about are preserved across writes.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rlegacy/launcher/internal/bundle"
	"github.com/rlegacy/launcher/internal/logging"
)

const FileName = "settings.toml"

// Update holds the keys to overlay on the stored record. Nil fields are left
// untouched.
type Update struct {
	Cache  *int
	Client *int
}

// Set returns u with the version for k replaced by v.
func (u Update) Set(k bundle.Kind, v int) Update {
	if k == bundle.Client {
		u.Client = &v
	} else {
		u.Cache = &v
	}
	return u
}

// Get returns the version staged for k, if any.
func (u Update) Get(k bundle.Kind) (int, bool) {
	p := u.Cache
	if k == bundle.Client {
		p = u.Client
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

func (u Update) empty() bool {
	return u.Cache == nil && u.Client == nil
}

// Store owns every read-modify-write cycle of one settings file.
type Store struct {
	path string
}

// NewStore returns a Store for the settings file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Read returns the stored record. It reports false when the file is missing,
// unreadable, or does not hold an integer for both bundles; a partial record
// is never returned.
func (s *Store) Read() (bundle.VersionRecord, bool) {
	values, err := s.load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Debugf("Verbose: ignoring unreadable settings %s: %v\n", s.path, err)
		}
		return bundle.VersionRecord{}, false
	}

	var rec bundle.VersionRecord
	for _, k := range bundle.Kinds() {
		v, ok := parseVersion(values[k.Key()])
		if !ok {
			logging.Debugf("Verbose: settings %s has no usable %s\n", s.path, k.Key())
			return bundle.VersionRecord{}, false
		}
		rec.Set(k, v)
	}
	return rec, true
}

// Write merges u into the file, creating it when absent.
func (s *Store) Write(u Update) error {
	if u.empty() {
		return nil
	}

	values, err := s.load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Debugf("Verbose: rewriting unreadable settings %s: %v\n", s.path, err)
		}
		values = make(map[string]any)
	}

	if u.Cache != nil {
		values[bundle.Cache.Key()] = strconv.Itoa(*u.Cache)
	}
	if u.Client != nil {
		values[bundle.Client.Key()] = strconv.Itoa(*u.Client)
	}

	if err := s.save(values); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// Reset deletes the settings file. A missing file is not an error.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing settings: %w", err)
	}
	return nil
}

func (s *Store) load() (map[string]any, error) {
	values := make(map[string]any)
	if _, err := toml.DecodeFile(s.path, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *Store) save(values map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	err = toml.NewEncoder(f).Encode(values)
	closeErr := f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func parseVersion(v any) (int, bool) {
	switch val := v.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return n, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}
