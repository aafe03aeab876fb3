package updater

import (
	"context"

	"github.com/rlegacy/launcher/internal/bundle"
	"github.com/rlegacy/launcher/internal/diff"
	"github.com/rlegacy/launcher/internal/logging"
)

// Plan is what a Run would do, computed without touching any files.
type Plan struct {
	Stored    *bundle.VersionRecord
	Live      bundle.VersionRecord
	FetchErrs map[bundle.Kind]error
	Changes   []diff.BundleChange
}

// Status fetches live versions, reads the stored record and logs the plan.
func (r *Reconciler) Status(ctx context.Context) (*Plan, error) {
	live, fetchErrs := r.fetchLiveVersions(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored := r.readStoredVersions()

	plan := &Plan{
		Stored:    stored,
		Live:      live,
		FetchErrs: fetchErrs,
		Changes:   diff.Compute(stored, live),
	}

	if stored == nil {
		logging.Infoln("Stored:    none (next update downloads everything)")
	} else {
		logging.Infof("Stored:    %s\n", stored)
	}
	logging.Infof("Live:      %s\n", live)

	for _, c := range plan.Changes {
		switch c.Type {
		case diff.Initial:
			logging.Infof("  + %s would be downloaded (live %d)\n", c.Kind, c.NewVersion)
		case diff.Updated:
			logging.Infof("  ~ %s %d → %d\n", c.Kind, c.OldVersion, c.NewVersion)
		case diff.Unchanged:
			logging.Infof("  = %s %d\n", c.Kind, c.OldVersion)
		case diff.Unknown:
			logging.Warnf("  ? %s version unavailable: %v", c.Kind, fetchErrs[c.Kind])
		}
	}

	initial, updated, unchanged, unknown := diff.Summary(plan.Changes)
	if initial == 0 && updated == 0 && unknown == 0 {
		logging.Infof("\nAlready up to date (%d bundles).\n", unchanged)
	}
	return plan, nil
}
