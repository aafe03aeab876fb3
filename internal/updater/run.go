package updater

import (
	"context"
	"os"

	"github.com/rlegacy/launcher/internal/archive"
	"github.com/rlegacy/launcher/internal/bundle"
	"github.com/rlegacy/launcher/internal/diff"
	"github.com/rlegacy/launcher/internal/logging"
	"github.com/rlegacy/launcher/internal/progress"
	"github.com/rlegacy/launcher/internal/settings"
	"github.com/rlegacy/launcher/internal/usage"
)

// Reconciler keeps the local bundles in step with the published versions.
type Reconciler struct {
	deps Deps
	opts Options
}

// New returns a Reconciler. Guard, Extractor and Progress fall back to the
// filesystem guard, the zip extractor and a discarding sink.
func New(deps Deps, opts Options) *Reconciler {
	if deps.Guard == nil {
		deps.Guard = usage.FileGuard{}
	}
	if deps.Extractor == nil {
		deps.Extractor = archive.Extractor{}
	}
	deps.Progress = progress.Monotonic(deps.Progress)
	if opts.ArchiveDir == "" {
		opts.ArchiveDir = os.TempDir()
	}
	return &Reconciler{deps: deps, opts: opts}
}

// Run performs one reconciliation. Bundle-level problems are reported in the
// Result; the only errors returned are ErrClientInUse and context
// cancellation.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	logRunStart(r.opts)
	res := &Result{}

	res.enter(CheckingUsage)
	if r.clientInUse() {
		res.enter(AbortedInUse)
		logging.Warnf("Client open! Please close your client before checking for updates.")
		return res, ErrClientInUse
	}

	res.enter(FetchingVersions)
	live, fetchErrs := r.fetchLiveVersions(ctx)
	res.Live = live

	res.enter(ReadingSettings)
	stored := r.readStoredVersions()
	if stored == nil {
		res.FirstRun = true
		res.enter(NoPriorRecord)
		logging.Infoln("Unable to verify file versions. Updating files...")
	} else {
		res.Stored = stored
		res.enter(HasPriorRecord)
	}

	var staged settings.Update
	for _, c := range diff.Compute(stored, live) {
		out := Outcome{
			Kind:     c.Kind,
			Change:   c.Type,
			Stored:   c.OldVersion,
			Live:     c.NewVersion,
			FetchErr: fetchErrs[c.Kind],
		}

		switch c.Type {
		case diff.Unknown:
			out.Action = VersionUnavailable
			logging.Warnf("Unable to obtain %s version. Please contact an admin.", c.Kind)
		case diff.Unchanged:
			res.enter(UpToDate)
			out.Action = Verified
			logging.Successf("%s verified.", c.Kind.Title())
		default:
			res.enter(Updating)
			r.updateBundle(ctx, c, &out)
			switch {
			case out.Action == Updated:
				staged = staged.Set(c.Kind, c.NewVersion)
			case res.FirstRun:
				// Keep the record complete so the next run retries only this bundle.
				staged = staged.Set(c.Kind, bundle.Unknown)
			}
		}
		res.Outcomes = append(res.Outcomes, out)
	}

	res.enter(Persisting)
	r.persistVersions(staged, res)

	res.enter(Done)
	logSummary(res)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}
