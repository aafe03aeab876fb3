package bundle

import (
	"fmt"
	"strings"
)

// Kind identifies one of the two independently versioned asset sets.
type Kind int

const (
	Cache Kind = iota
	Client
)

// Kinds returns every bundle kind in processing order. Cache always comes first.
func Kinds() []Kind {
	return []Kind{Cache, Client}
}

func (k Kind) String() string {
	switch k {
	case Cache:
		return "cache"
	case Client:
		return "client"
	default:
		return fmt.Sprintf("bundle(%d)", int(k))
	}
}

// Title returns the capitalized name used at the start of log lines.
func (k Kind) Title() string {
	s := k.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// Key returns the settings key holding this bundle's stored version.
func (k Kind) Key() string {
	return k.String() + "_version"
}

// Parse converts a bundle name back to its Kind.
func Parse(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cache":
		return Cache, nil
	case "client":
		return Client, nil
	default:
		return 0, fmt.Errorf("unknown bundle %q (expected cache or client)", s)
	}
}

// Bundle describes where a bundle's version and archive are published and
// where it lives on disk.
type Bundle struct {
	Kind        Kind
	VersionURL  string
	DownloadURL string
	Dir         string
}

// Unknown is the version sentinel for "could not be determined this run".
const Unknown = 0

// VersionRecord maps each bundle to an integer version.
type VersionRecord struct {
	Cache  int
	Client int
}

// Get returns the version recorded for k.
func (r VersionRecord) Get(k Kind) int {
	if k == Client {
		return r.Client
	}
	return r.Cache
}

// Set records v for k.
func (r *VersionRecord) Set(k Kind, v int) {
	if k == Client {
		r.Client = v
		return
	}
	r.Cache = v
}

func (r VersionRecord) String() string {
	return fmt.Sprintf("cache=%d client=%d", r.Cache, r.Client)
}
