package updater

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rlegacy/launcher/internal/bundle"
	"github.com/rlegacy/launcher/internal/diff"
	"github.com/rlegacy/launcher/internal/logging"
	"github.com/rlegacy/launcher/internal/settings"
)

func logRunStart(opts Options) {
	logging.Debugf(
		"Verbose: update start bundles=%d client-jar=%q archive-dir=%q keep-archives=%t force=%t\n",
		len(opts.Bundles),
		opts.ClientJar,
		opts.ArchiveDir,
		opts.KeepArchives,
		opts.Force,
	)
}

// clientInUse is checked once, before anything else. A client that was never
// installed cannot be in use.
func (r *Reconciler) clientInUse() bool {
	if r.opts.ClientJar == "" {
		return false
	}
	if _, err := os.Stat(r.opts.ClientJar); err != nil {
		return false
	}
	return r.deps.Guard.InUse(r.opts.ClientJar)
}

// fetchLiveVersions asks each bundle's endpoint for its version. A failure
// leaves that bundle at the Unknown sentinel and does not stop the others.
func (r *Reconciler) fetchLiveVersions(ctx context.Context) (bundle.VersionRecord, map[bundle.Kind]error) {
	var live bundle.VersionRecord
	errs := make(map[bundle.Kind]error)

	for _, k := range bundle.Kinds() {
		b, ok := r.bundle(k)
		if !ok {
			errs[k] = fmt.Errorf("no %s bundle configured", k)
			continue
		}
		v, err := r.deps.Versions.Live(ctx, b.VersionURL)
		if err != nil {
			errs[k] = err
			logging.Debugf("Verbose: %s version unavailable: %v\n", k, err)
			continue
		}
		live.Set(k, v)
		logging.Debugf("Verbose: live %s version=%d\n", k, v)
	}
	return live, errs
}

func (r *Reconciler) readStoredVersions() *bundle.VersionRecord {
	if r.opts.Force {
		logging.Debugf("Verbose: ignoring stored versions (force)\n")
		return nil
	}
	rec, ok := r.deps.Settings.Read()
	if !ok {
		logging.Debugf("Verbose: no stored versions\n")
		return nil
	}
	logging.Debugf("Verbose: stored versions %s\n", rec)
	return &rec
}

// updateBundle downloads and extracts one bundle. out.Action is Updated only
// when the archive was fetched and every entry landed on disk.
func (r *Reconciler) updateBundle(ctx context.Context, c diff.BundleChange, out *Outcome) {
	b, ok := r.bundle(c.Kind)
	if !ok {
		out.Action = Failed
		out.Err = fmt.Errorf("no %s bundle configured", c.Kind)
		logging.Errorf("%s update failed: %v", c.Kind.Title(), out.Err)
		return
	}

	if c.Type == diff.Initial {
		logging.Infof("Obtaining %s files...\n", c.Kind.Title())
	} else {
		logging.Infof("%s version update in progress (%d → %d). Please wait...\n", c.Kind.Title(), c.OldVersion, c.NewVersion)
	}

	archivePath, err := r.deps.Downloader.Download(ctx, b.DownloadURL, r.opts.ArchiveDir, r.deps.Progress)
	if err != nil {
		out.Action = Failed
		out.Err = fmt.Errorf("downloading %s: %w", c.Kind, err)
		logging.Errorf("%s download failed: %v", c.Kind.Title(), err)
		return
	}
	out.Archive = archivePath
	if !r.opts.KeepArchives {
		defer removeArchive(archivePath)
	}

	extracted, err := r.deps.Extractor.Extract(archivePath, b.Dir)
	if err != nil {
		out.Action = Failed
		out.Err = fmt.Errorf("extracting %s: %w", c.Kind, err)
		logging.Errorf("%s extraction failed: %v", c.Kind.Title(), err)
		return
	}
	out.Extract = extracted

	if !extracted.OK() {
		out.Action = Failed
		out.Err = fmt.Errorf("extracting %s: %d failed and %d skipped of %d entries",
			c.Kind, extracted.Failed(), extracted.Skipped(), len(extracted.Entries))
		logging.Errorf("%s extraction incomplete: %d failed, %d skipped", c.Kind.Title(), extracted.Failed(), extracted.Skipped())
		return
	}

	out.Action = Updated
	logging.Successf("%s updated to version %d (%d entries).", c.Kind.Title(), c.NewVersion, extracted.Extracted())
}

func removeArchive(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Debugf("Verbose: could not remove archive %s: %v\n", path, err)
	}
}

// persistVersions writes each staged key separately, cache before client.
// A failed write is reported and not retried.
func (r *Reconciler) persistVersions(staged settings.Update, res *Result) {
	if res.Stored != nil {
		res.Persisted = *res.Stored
	}
	for _, k := range bundle.Kinds() {
		v, ok := staged.Get(k)
		if !ok {
			continue
		}
		if err := r.deps.Settings.Write(settings.Update{}.Set(k, v)); err != nil {
			res.SettingsErr = append(res.SettingsErr, fmt.Errorf("saving %s: %w", k.Key(), err))
			logging.Errorf("Could not save %s: %v", k.Key(), err)
			continue
		}
		res.Persisted.Set(k, v)
		logging.Debugf("Verbose: saved %s=%d\n", k.Key(), v)
	}
}

func logSummary(res *Result) {
	if !res.Failed() {
		logging.Successf("All files are up to date.")
		return
	}
	verified, updated, unavailable, failed := res.Counts()
	logging.Warnf("Update finished with problems: %d verified, %d updated, %d version unavailable, %d failed.",
		verified, updated, unavailable, failed)
	for _, err := range res.SettingsErr {
		logging.Warnf("  %v", err)
	}
}

func (r *Reconciler) bundle(k bundle.Kind) (bundle.Bundle, bool) {
	for _, b := range r.opts.Bundles {
		if b.Kind == k {
			return b, true
		}
	}
	return bundle.Bundle{}, false
}
