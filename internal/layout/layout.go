package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rlegacy/launcher/internal/bundle"
	"github.com/rlegacy/launcher/internal/settings"
)

const (
	DefaultHome = "~/.rlegacy2"

	DefaultCacheVersionURL   = "https://runelegacy.org/version-test/api/1.1/wf/cache_version"
	DefaultClientVersionURL  = "https://runelegacy.org/version-test/api/1.1/wf/client_version"
	DefaultCacheDownloadURL  = "https://www.runelegacy.org/testcache"
	DefaultClientDownloadURL = "https://www.runelegacy.org/testclient"

	ClientJarName  = "client.jar"
	RuntimeJarName = "rt.jar"
)

// Endpoints are the remote locations of both bundles.
type Endpoints struct {
	CacheVersionURL   string
	ClientVersionURL  string
	CacheDownloadURL  string
	ClientDownloadURL string
}

// DefaultEndpoints returns the published production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		CacheVersionURL:   DefaultCacheVersionURL,
		ClientVersionURL:  DefaultClientVersionURL,
		CacheDownloadURL:  DefaultCacheDownloadURL,
		ClientDownloadURL: DefaultClientDownloadURL,
	}
}

// Layout is the on-disk structure under the launcher's output root.
type Layout struct {
	Home string
}

// Resolve expands home (accepting a leading ~) into an absolute Layout.
// An empty home uses DefaultHome.
func Resolve(home string) (Layout, error) {
	if strings.TrimSpace(home) == "" {
		home = DefaultHome
	}
	abs, err := expandPath(home)
	if err != nil {
		return Layout{}, err
	}
	return Layout{Home: abs}, nil
}

func (l Layout) ClientDir() string    { return filepath.Join(l.Home, "client") }
func (l Layout) CacheDir() string     { return filepath.Join(l.Home, "cache") }
func (l Layout) ClientJar() string    { return filepath.Join(l.ClientDir(), ClientJarName) }
func (l Layout) RuntimeJar() string   { return filepath.Join(l.ClientDir(), RuntimeJarName) }
func (l Layout) SettingsPath() string { return filepath.Join(l.Home, settings.FileName) }

// Bundles pairs the layout's directories with the given endpoints, in
// processing order.
func (l Layout) Bundles(ep Endpoints) []bundle.Bundle {
	return []bundle.Bundle{
		{Kind: bundle.Cache, VersionURL: ep.CacheVersionURL, DownloadURL: ep.CacheDownloadURL, Dir: l.CacheDir()},
		{Kind: bundle.Client, VersionURL: ep.ClientVersionURL, DownloadURL: ep.ClientDownloadURL, Dir: l.ClientDir()},
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
