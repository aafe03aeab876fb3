package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Profile holds saveable CLI options. All fields are pointers so we can
// distinguish "not set" from zero values.
type Profile struct {
	HomeDir           *string `toml:"home-dir,omitempty"`
	CacheVersionURL   *string `toml:"cache-version-url,omitempty"`
	ClientVersionURL  *string `toml:"client-version-url,omitempty"`
	CacheDownloadURL  *string `toml:"cache-download-url,omitempty"`
	ClientDownloadURL *string `toml:"client-download-url,omitempty"`
	Timeout           *string `toml:"timeout,omitempty"`
	Java              *string `toml:"java,omitempty"`
	KeepArchives      *bool   `toml:"keep-archives,omitempty"`
	Verbose           *bool   `toml:"verbose,omitempty"`
	LogFile           *string `toml:"log-file,omitempty"`
	NoColor           *bool   `toml:"no-color,omitempty"`
}

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName rejects names that cannot be used as a file name inside Dir.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid profile name %q (use letters, digits, '.', '_' or '-')", name)
	}
	return nil
}

// Dir returns the profiles directory, using XDG_CONFIG_HOME with a fallback
// to ~/.config.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "rlegacy-launcher", "profiles")
}

func path(name string) string {
	return filepath.Join(Dir(), name+".toml")
}

// Exists reports whether a profile with the given name is saved.
func Exists(name string) bool {
	_, err := os.Stat(path(name))
	return err == nil
}

// Load reads a named profile from the profiles directory.
func Load(name string) (*Profile, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	var p Profile
	md, err := toml.DecodeFile(path(name), &p)
	if err != nil {
		return nil, fmt.Errorf("loading profile %q: %w", name, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("loading profile %q: unknown keys %s", name, strings.Join(keys, ", "))
	}
	return &p, nil
}

// Save writes a profile to the profiles directory, creating it if needed.
func Save(name string, p *Profile) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating profiles directory: %w", err)
	}
	f, err := os.Create(path(name))
	if err != nil {
		return fmt.Errorf("creating profile file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(p); err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return nil
}

// List returns the names of all saved profiles.
func List() ([]string, error) {
	dir := Dir()

	var names []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if path == dir {
			return nil
		}
		if d.IsDir() {
			return filepath.SkipDir
		}
		if strings.HasSuffix(d.Name(), ".toml") {
			names = append(names, strings.TrimSuffix(d.Name(), ".toml"))
		}
		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return nil, nil
	}
	return names, err
}

// Delete removes a named profile.
func Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(path(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("profile %q does not exist", name)
		}
		return fmt.Errorf("deleting profile %q: %w", name, err)
	}
	return nil
}
