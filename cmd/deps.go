package cmd

import (
	"net"
	"net/http"
	"time"

	"github.com/rlegacy/launcher/internal/downloader"
	"github.com/rlegacy/launcher/internal/layout"
	"github.com/rlegacy/launcher/internal/progress"
	"github.com/rlegacy/launcher/internal/remote"
	"github.com/rlegacy/launcher/internal/settings"
	"github.com/rlegacy/launcher/internal/updater"
)

func userAgent() string {
	return "rlegacy-launcher/" + version
}

func resolveLayout() (layout.Layout, error) {
	return layout.Resolve(homeDir)
}

// newHTTPClients returns the client for version checks, bounded by timeout
// end to end, and the client for archive downloads, where timeout only bounds
// connecting and waiting for response headers. Download bodies are guarded by
// the downloader's idle timeout instead.
func newHTTPClients(timeout time.Duration) (versions, downloads *http.Client) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}, &http.Client{Transport: transport}
}

// newReconciler wires the production collaborators for one command.
func newReconciler(l layout.Layout, sink progress.Sink, opts updater.Options) *updater.Reconciler {
	versionClient, downloadClient := newHTTPClients(timeout)

	opts.Bundles = l.Bundles(endpoints)
	opts.ClientJar = l.ClientJar()
	if opts.ArchiveDir == "" {
		opts.ArchiveDir = l.Home
	}

	return updater.New(updater.Deps{
		Versions: remote.NewSource(versionClient, userAgent()),
		Downloader: downloader.New(downloadClient,
			downloader.WithUserAgent(userAgent()),
			downloader.WithIdleTimeout(timeout),
		),
		Settings: settings.NewStore(l.SettingsPath()),
		Progress: sink,
	}, opts)
}
