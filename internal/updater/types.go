package updater

import (
	"context"
	"errors"

	"github.com/rlegacy/launcher/internal/archive"
	"github.com/rlegacy/launcher/internal/bundle"
	"github.com/rlegacy/launcher/internal/diff"
	"github.com/rlegacy/launcher/internal/progress"
	"github.com/rlegacy/launcher/internal/settings"
	"github.com/rlegacy/launcher/internal/usage"
)

// ErrClientInUse aborts a run before anything is fetched: the client must be
// closed before its files can be replaced.
var ErrClientInUse = errors.New("client is running; close it before checking for updates")

// VersionSource returns the live version published at a URL.
type VersionSource interface {
	Live(ctx context.Context, url string) (int, error)
}

// Downloader streams a bundle archive into destDir.
type Downloader interface {
	Download(ctx context.Context, url, destDir string, sink progress.Sink) (string, error)
}

// Extractor unpacks an archive into a bundle directory.
type Extractor interface {
	Extract(archivePath, destDir string) (*archive.Result, error)
}

// SettingsStore persists the stored version record.
type SettingsStore interface {
	Read() (bundle.VersionRecord, bool)
	Write(settings.Update) error
}

// Deps are the collaborators a Reconciler drives. Each is constructed once by
// the caller and injected.
type Deps struct {
	Versions   VersionSource
	Downloader Downloader
	Extractor  Extractor
	Settings   SettingsStore
	Guard      usage.Guard
	Progress   progress.Sink
}

type Options struct {
	// Bundles in processing order, normally cache then client.
	Bundles []bundle.Bundle
	// ClientJar is the artifact checked for use before anything else runs.
	ClientJar string
	// ArchiveDir receives downloaded archives before extraction.
	ArchiveDir string
	// KeepArchives leaves downloaded archives in ArchiveDir after extraction.
	KeepArchives bool
	// Force ignores the stored record and resyncs both bundles.
	Force bool
}

// State is a step of a reconciliation run.
type State int

const (
	Idle State = iota
	CheckingUsage
	FetchingVersions
	ReadingSettings
	NoPriorRecord
	HasPriorRecord
	UpToDate
	Updating
	Persisting
	Done
	AbortedInUse
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CheckingUsage:
		return "checking-usage"
	case FetchingVersions:
		return "fetching-versions"
	case ReadingSettings:
		return "reading-settings"
	case NoPriorRecord:
		return "no-prior-record"
	case HasPriorRecord:
		return "has-prior-record"
	case UpToDate:
		return "up-to-date"
	case Updating:
		return "updating"
	case Persisting:
		return "persisting"
	case Done:
		return "done"
	case AbortedInUse:
		return "aborted-in-use"
	default:
		return "unknown"
	}
}

// Action is what happened to one bundle.
type Action int

const (
	// Verified: stored and live versions match; nothing was touched.
	Verified Action = iota
	// Updated: the bundle was downloaded and fully extracted.
	Updated
	// VersionUnavailable: the live version could not be fetched or parsed;
	// nothing was touched.
	VersionUnavailable
	// Failed: the download or extraction did not complete; the stored
	// version was not advanced.
	Failed
)

func (a Action) String() string {
	switch a {
	case Verified:
		return "verified"
	case Updated:
		return "updated"
	case VersionUnavailable:
		return "version-unavailable"
	default:
		return "failed"
	}
}

// Outcome is the per-bundle result of a run.
type Outcome struct {
	Kind     bundle.Kind
	Change   diff.ChangeType
	Action   Action
	Stored   int
	Live     int
	FetchErr error
	Err      error
	Archive  string
	Extract  *archive.Result
}

// Result summarizes a reconciliation run.
type Result struct {
	States      []State
	FirstRun    bool
	Stored      *bundle.VersionRecord
	Live        bundle.VersionRecord
	Outcomes    []Outcome
	Persisted   bundle.VersionRecord
	SettingsErr []error
}

func (r *Result) enter(s State) {
	r.States = append(r.States, s)
}

// Outcome returns the outcome for k, if that bundle was processed.
func (r *Result) Outcome(k bundle.Kind) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Kind == k {
			return o, true
		}
	}
	return Outcome{}, false
}

// Failed reports whether any bundle failed to update, any live version could
// not be obtained, or a settings write failed.
func (r *Result) Failed() bool {
	if len(r.SettingsErr) > 0 {
		return true
	}
	for _, o := range r.Outcomes {
		if o.Action == Failed || o.Action == VersionUnavailable || o.FetchErr != nil {
			return true
		}
	}
	return false
}

// Counts returns the number of bundles per action.
func (r *Result) Counts() (verified, updated, unavailable, failed int) {
	for _, o := range r.Outcomes {
		switch o.Action {
		case Verified:
			verified++
		case Updated:
			updated++
		case VersionUnavailable:
			unavailable++
		case Failed:
			failed++
		}
	}
	return
}
