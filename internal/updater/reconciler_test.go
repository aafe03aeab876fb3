package updater

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rlegacy/launcher/internal/archive"
	"github.com/rlegacy/launcher/internal/bundle"
	"github.com/rlegacy/launcher/internal/progress"
	"github.com/rlegacy/launcher/internal/settings"
)

const (
	cacheVersionURL   = "https://versions.test/cache"
	clientVersionURL  = "https://versions.test/client"
	cacheDownloadURL  = "https://files.test/cache"
	clientDownloadURL = "https://files.test/client"
)

type fakeVersions struct {
	versions map[string]int
	errs     map[string]error
	calls    []string
}

func (f *fakeVersions) Live(ctx context.Context, url string) (int, error) {
	f.calls = append(f.calls, url)
	if err := f.errs[url]; err != nil {
		return 0, err
	}
	return f.versions[url], nil
}

type fakeDownloader struct {
	dir   string
	errs  map[string]error
	calls []string
}

func (f *fakeDownloader) Download(ctx context.Context, url, destDir string, sink progress.Sink) (string, error) {
	f.calls = append(f.calls, url)
	sink.Report(progress.Update{Fraction: 0.5, Visible: true})
	sink.Report(progress.Update{Fraction: 1, Visible: true})
	defer sink.Report(progress.Hidden)
	if err := f.errs[url]; err != nil {
		return "", err
	}
	path := filepath.Join(destDir, filepath.Base(url)+".zip")
	if err := os.WriteFile(path, []byte("zip"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type extractCall struct {
	archive string
	dest    string
}

type fakeExtractor struct {
	calls   []extractCall
	results map[string]*archive.Result
	errs    map[string]error
}

func (f *fakeExtractor) Extract(archivePath, destDir string) (*archive.Result, error) {
	f.calls = append(f.calls, extractCall{archive: archivePath, dest: destDir})
	if err := f.errs[destDir]; err != nil {
		return nil, err
	}
	if res, ok := f.results[destDir]; ok {
		return res, nil
	}
	return &archive.Result{
		Archive: archivePath,
		Dest:    destDir,
		Entries: []archive.Entry{{Name: "file", Status: archive.Extracted}},
	}, nil
}

type fakeGuard struct {
	inUse bool
	calls int
}

func (f *fakeGuard) InUse(string) bool {
	f.calls++
	return f.inUse
}

type failingStore struct {
	*settings.Store
	fail bundle.Kind
}

func (s failingStore) Write(u settings.Update) error {
	if _, ok := u.Get(s.fail); ok {
		return errors.New("disk full")
	}
	return s.Store.Write(u)
}

type harness struct {
	home       string
	versions   *fakeVersions
	downloader *fakeDownloader
	extractor  *fakeExtractor
	guard      *fakeGuard
	store      *settings.Store
	progress   []progress.Update
}

func newHarness(t *testing.T, cacheLive, clientLive int) *harness {
	t.Helper()
	home := t.TempDir()
	return &harness{
		home: home,
		versions: &fakeVersions{
			versions: map[string]int{cacheVersionURL: cacheLive, clientVersionURL: clientLive},
			errs:     map[string]error{},
		},
		downloader: &fakeDownloader{dir: home, errs: map[string]error{}},
		extractor:  &fakeExtractor{results: map[string]*archive.Result{}, errs: map[string]error{}},
		guard:      &fakeGuard{},
		store:      settings.NewStore(filepath.Join(home, settings.FileName)),
	}
}

func (h *harness) cacheDir() string  { return filepath.Join(h.home, "cache") }
func (h *harness) clientDir() string { return filepath.Join(h.home, "client") }
func (h *harness) clientJar() string { return filepath.Join(h.clientDir(), "client.jar") }

func (h *harness) reconciler(store SettingsStore, force bool) *Reconciler {
	if store == nil {
		store = h.store
	}
	return New(Deps{
		Versions:   h.versions,
		Downloader: h.downloader,
		Extractor:  h.extractor,
		Settings:   store,
		Guard:      h.guard,
		Progress:   progress.SinkFunc(func(u progress.Update) { h.progress = append(h.progress, u) }),
	}, Options{
		Bundles: []bundle.Bundle{
			{Kind: bundle.Cache, VersionURL: cacheVersionURL, DownloadURL: cacheDownloadURL, Dir: h.cacheDir()},
			{Kind: bundle.Client, VersionURL: clientVersionURL, DownloadURL: clientDownloadURL, Dir: h.clientDir()},
		},
		ClientJar:  h.clientJar(),
		ArchiveDir: h.home,
		Force:      force,
	})
}

func (h *harness) seed(t *testing.T, cache, client int) {
	t.Helper()
	if err := h.store.Write(settings.Update{Cache: &cache, Client: &client}); err != nil {
		t.Fatalf("seeding settings failed: %v", err)
	}
}

func (h *harness) stored(t *testing.T) bundle.VersionRecord {
	t.Helper()
	rec, ok := h.store.Read()
	if !ok {
		t.Fatalf("settings file has no complete record")
	}
	return rec
}

func mustOutcome(t *testing.T, res *Result, k bundle.Kind) Outcome {
	t.Helper()
	o, ok := res.Outcome(k)
	if !ok {
		t.Fatalf("no outcome for %v", k)
	}
	return o
}

func TestRunOnlyUpdatesChangedBundle(t *testing.T) {
	h := newHarness(t, 5, 10)
	h.seed(t, 5, 9)

	res, err := h.reconciler(nil, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(h.downloader.calls) != 1 || h.downloader.calls[0] != clientDownloadURL {
		t.Fatalf("downloads=%v want only client", h.downloader.calls)
	}
	if len(h.extractor.calls) != 1 || h.extractor.calls[0].dest != h.clientDir() {
		t.Fatalf("extractions=%+v want only client dir", h.extractor.calls)
	}
	if got := h.stored(t); got != (bundle.VersionRecord{Cache: 5, Client: 10}) {
		t.Fatalf("stored=%+v want cache=5 client=10", got)
	}
	if o := mustOutcome(t, res, bundle.Cache); o.Action != Verified {
		t.Fatalf("cache action=%v want verified", o.Action)
	}
	if o := mustOutcome(t, res, bundle.Client); o.Action != Updated || o.Stored != 9 || o.Live != 10 {
		t.Fatalf("client outcome=%+v", o)
	}
	if res.Failed() || res.FirstRun {
		t.Fatalf("unexpected result flags: failed=%t first=%t", res.Failed(), res.FirstRun)
	}
	if _, err := os.Stat(filepath.Join(h.home, "client.zip")); !os.IsNotExist(err) {
		t.Fatalf("archive should be removed after extraction: %v", err)
	}
}

func TestRunEverythingCurrentTouchesNothing(t *testing.T) {
	h := newHarness(t, 5, 9)
	h.seed(t, 5, 9)
	before, err := os.ReadFile(h.store.Path())
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	res, err := h.reconciler(nil, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(h.downloader.calls) != 0 || len(h.extractor.calls) != 0 {
		t.Fatalf("unexpected work: downloads=%v extracts=%v", h.downloader.calls, h.extractor.calls)
	}
	after, err := os.ReadFile(h.store.Path())
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("settings rewritten although nothing changed")
	}
	verified, updated, unavailable, failed := res.Counts()
	if verified != 2 || updated != 0 || unavailable != 0 || failed != 0 {
		t.Fatalf("counts=%d/%d/%d/%d", verified, updated, unavailable, failed)
	}
}

func TestRunFirstRunDownloadsBothOnce(t *testing.T) {
	h := newHarness(t, 3, 3)

	res, err := h.reconciler(nil, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.FirstRun {
		t.Fatalf("expected first run")
	}
	want := []string{cacheDownloadURL, clientDownloadURL}
	if len(h.downloader.calls) != 2 || h.downloader.calls[0] != want[0] || h.downloader.calls[1] != want[1] {
		t.Fatalf("downloads=%v want %v", h.downloader.calls, want)
	}
	if len(h.extractor.calls) != 2 {
		t.Fatalf("extractions=%+v want 2", h.extractor.calls)
	}
	if got := h.stored(t); got != (bundle.VersionRecord{Cache: 3, Client: 3}) {
		t.Fatalf("stored=%+v want cache=3 client=3", got)
	}
	if res.Persisted != (bundle.VersionRecord{Cache: 3, Client: 3}) {
		t.Fatalf("Persisted=%+v", res.Persisted)
	}
}

func TestRunFirstRunRecordsUnknownLiveVersion(t *testing.T) {
	h := newHarness(t, 4, 0)
	h.versions.errs[clientVersionURL] = errors.New("HTTP 500")

	res, err := h.reconciler(nil, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(h.downloader.calls) != 2 {
		t.Fatalf("first run should fetch both bundles, got %v", h.downloader.calls)
	}
	if got := h.stored(t); got != (bundle.VersionRecord{Cache: 4, Client: 0}) {
		t.Fatalf("stored=%+v want cache=4 client=0", got)
	}
	if !res.Failed() {
		t.Fatalf("an unavailable live version must be surfaced as a failure")
	}
	if o := mustOutcome(t, res, bundle.Client); o.FetchErr == nil {
		t.Fatalf("client outcome should carry the fetch error")
	}
}

func TestRunVersionUnavailableLeavesBundleAlone(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{name: "fetch error", setup: func(h *harness) { h.versions.errs[cacheVersionURL] = errors.New("timeout") }},
		{name: "zero version", setup: func(h *harness) { h.versions.versions[cacheVersionURL] = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 8, 12)
			tt.setup(h)
			h.seed(t, 7, 11)

			res, err := h.reconciler(nil, false).Run(context.Background())
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if len(h.downloader.calls) != 1 || h.downloader.calls[0] != clientDownloadURL {
				t.Fatalf("downloads=%v want only client", h.downloader.calls)
			}
			if got := h.stored(t); got != (bundle.VersionRecord{Cache: 7, Client: 12}) {
				t.Fatalf("stored=%+v want cache=7 client=12", got)
			}
			if o := mustOutcome(t, res, bundle.Cache); o.Action != VersionUnavailable {
				t.Fatalf("cache action=%v want version-unavailable", o.Action)
			}
			if !res.Failed() {
				t.Fatalf("result should report the unavailable version")
			}
		})
	}
}

func TestRunBothVersionsUnknownIsNotUpToDate(t *testing.T) {
	h := newHarness(t, 0, 0)
	h.seed(t, 0, 0)

	res, err := h.reconciler(nil, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	_, _, unavailable, _ := res.Counts()
	if unavailable != 2 || !res.Failed() {
		t.Fatalf("stored == live == 0 must be reported as unavailable, got %+v", res.Outcomes)
	}
	if len(h.downloader.calls) != 0 {
		t.Fatalf("no download expected, got %v", h.downloader.calls)
	}
}

func TestRunDownloadFailureDoesNotAdvanceVersion(t *testing.T) {
	h := newHarness(t, 6, 10)
	h.seed(t, 5, 9)
	h.downloader.errs[cacheDownloadURL] = errors.New("connection reset")

	res, err := h.reconciler(nil, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := h.stored(t); got != (bundle.VersionRecord{Cache: 5, Client: 10}) {
		t.Fatalf("stored=%+v want cache=5 client=10", got)
	}
	if o := mustOutcome(t, res, bundle.Cache); o.Action != Failed || o.Err == nil {
		t.Fatalf("cache outcome=%+v want failed", o)
	}
	if o := mustOutcome(t, res, bundle.Client); o.Action != Updated {
		t.Fatalf("client outcome=%+v want updated", o)
	}
	if !res.Failed() {
		t.Fatalf("download failure must be surfaced")
	}
}

func TestRunExtractionProblemsDoNotAdvanceVersion(t *testing.T) {
	h := newHarness(t, 6, 10)
	h.seed(t, 5, 9)
	h.extractor.errs[h.cacheDir()] = errors.New("zip: not a valid zip file")
	h.extractor.results[h.clientDir()] = &archive.Result{Entries: []archive.Entry{
		{Name: "client.jar", Status: archive.Extracted},
		{Name: "rt.jar", Status: archive.Failed, Err: errors.New("permission denied")},
	}}

	res, err := h.reconciler(nil, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := h.stored(t); got != (bundle.VersionRecord{Cache: 5, Client: 9}) {
		t.Fatalf("stored=%+v want unchanged cache=5 client=9", got)
	}
	_, _, _, failed := res.Counts()
	if failed != 2 {
		t.Fatalf("failed=%d want 2", failed)
	}
	if o := mustOutcome(t, res, bundle.Client); o.Extract == nil || o.Extract.Failed() != 1 {
		t.Fatalf("client outcome should carry the extraction result: %+v", o)
	}
}

func TestRunFirstRunFailedBundleRecordedAsUnknown(t *testing.T) {
	h := newHarness(t, 3, 4)
	h.downloader.errs[clientDownloadURL] = errors.New("HTTP 404")

	if _, err := h.reconciler(nil, false).Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := h.stored(t); got != (bundle.VersionRecord{Cache: 3, Client: 0}) {
		t.Fatalf("stored=%+v want cache=3 client=0", got)
	}

	// The next run retries only the failed bundle.
	h.downloader.errs = map[string]error{}
	h.downloader.calls = nil
	res, err := h.reconciler(nil, false).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if len(h.downloader.calls) != 1 || h.downloader.calls[0] != clientDownloadURL {
		t.Fatalf("second run downloads=%v want only client", h.downloader.calls)
	}
	if res.Failed() {
		t.Fatalf("second run should succeed: %+v", res.Outcomes)
	}
	if got := h.stored(t); got != (bundle.VersionRecord{Cache: 3, Client: 4}) {
		t.Fatalf("stored=%+v want cache=3 client=4", got)
	}
}

func TestRunAbortsWhenClientInUse(t *testing.T) {
	h := newHarness(t, 6, 10)
	h.seed(t, 5, 9)
	if err := os.MkdirAll(h.clientDir(), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(h.clientJar(), []byte("jar"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	h.guard.inUse = true

	res, err := h.reconciler(nil, false).Run(context.Background())
	if !errors.Is(err, ErrClientInUse) {
		t.Fatalf("Run error=%v want ErrClientInUse", err)
	}
	if len(h.versions.calls) != 0 || len(h.downloader.calls) != 0 {
		t.Fatalf("nothing should run after the usage check: versions=%v downloads=%v", h.versions.calls, h.downloader.calls)
	}
	if last := res.States[len(res.States)-1]; last != AbortedInUse {
		t.Fatalf("final state=%v want aborted-in-use", last)
	}
	if got := h.stored(t); got != (bundle.VersionRecord{Cache: 5, Client: 9}) {
		t.Fatalf("stored=%+v changed", got)
	}
}

func TestRunSkipsUsageCheckWithoutClientJar(t *testing.T) {
	h := newHarness(t, 1, 1)
	h.guard.inUse = true

	if _, err := h.reconciler(nil, false).Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if h.guard.calls != 0 {
		t.Fatalf("guard consulted for a missing client jar")
	}
}

func TestRunSettingsWriteFailureIsReported(t *testing.T) {
	h := newHarness(t, 6, 10)
	h.seed(t, 5, 9)
	store := failingStore{Store: h.store, fail: bundle.Cache}

	res, err := h.reconciler(store, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.SettingsErr) != 1 {
		t.Fatalf("SettingsErr=%v want 1", res.SettingsErr)
	}
	if got := h.stored(t); got != (bundle.VersionRecord{Cache: 5, Client: 10}) {
		t.Fatalf("client write should still land after the cache write failed: %+v", got)
	}
	if !res.Failed() {
		t.Fatalf("settings write failure should be surfaced")
	}
}

func TestRunForceResyncsEverything(t *testing.T) {
	h := newHarness(t, 5, 9)
	h.seed(t, 5, 9)

	res, err := h.reconciler(nil, true).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.FirstRun || len(h.downloader.calls) != 2 {
		t.Fatalf("force should resync both bundles: first=%t downloads=%v", res.FirstRun, h.downloader.calls)
	}
}

func TestRunStateSequence(t *testing.T) {
	h := newHarness(t, 5, 10)
	h.seed(t, 5, 9)

	res, err := h.reconciler(nil, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := []State{CheckingUsage, FetchingVersions, ReadingSettings, HasPriorRecord, UpToDate, Updating, Persisting, Done}
	if len(res.States) != len(want) {
		t.Fatalf("states=%v want %v", res.States, want)
	}
	for i := range want {
		if res.States[i] != want[i] {
			t.Fatalf("states=%v want %v", res.States, want)
		}
	}
}

func TestRunProgressIsMonotonicAndReset(t *testing.T) {
	h := newHarness(t, 2, 2)

	if _, err := h.reconciler(nil, false).Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(h.progress) == 0 {
		t.Fatalf("no progress reported")
	}
	last := 0.0
	for _, u := range h.progress {
		if !u.Visible {
			last = 0
			continue
		}
		if u.Fraction < last {
			t.Fatalf("progress went backwards: %+v", h.progress)
		}
		last = u.Fraction
	}
	if end := h.progress[len(h.progress)-1]; end != progress.Hidden {
		t.Fatalf("progress not hidden at the end: %+v", end)
	}
}

func TestStatusDoesNotTouchFiles(t *testing.T) {
	h := newHarness(t, 5, 10)
	h.seed(t, 5, 9)

	plan, err := h.reconciler(nil, false).Status(context.Background())
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if len(h.downloader.calls) != 0 || len(h.extractor.calls) != 0 {
		t.Fatalf("Status must not download or extract")
	}
	if plan.Stored == nil || *plan.Stored != (bundle.VersionRecord{Cache: 5, Client: 9}) {
		t.Fatalf("plan stored=%v", plan.Stored)
	}
	if len(plan.Changes) != 2 || plan.Changes[0].Type.NeedsDownload() || !plan.Changes[1].Type.NeedsDownload() {
		t.Fatalf("plan changes=%+v", plan.Changes)
	}
}
