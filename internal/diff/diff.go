package diff

import (
	"github.com/rlegacy/launcher/internal/bundle"
)

type ChangeType int

const (
	// Initial means there is no usable stored record, so the bundle is
	// fetched regardless of versions.
	Initial ChangeType = iota
	Updated
	Unchanged
	// Unknown means the live version could not be determined; the bundle is
	// left alone.
	Unknown
)

func (t ChangeType) String() string {
	switch t {
	case Initial:
		return "initial"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// NeedsDownload reports whether the change requires fetching the bundle.
func (t ChangeType) NeedsDownload() bool {
	return t == Initial || t == Updated
}

type BundleChange struct {
	Kind       bundle.Kind
	Type       ChangeType
	OldVersion int
	NewVersion int
}

// Compute compares the stored record against the live versions, one change
// per bundle in processing order. A nil stored record means first run.
func Compute(stored *bundle.VersionRecord, live bundle.VersionRecord) []BundleChange {
	changes := make([]BundleChange, 0, len(bundle.Kinds()))
	for _, k := range bundle.Kinds() {
		c := BundleChange{Kind: k, NewVersion: live.Get(k)}

		switch {
		case stored == nil:
			c.Type = Initial
		case c.NewVersion == bundle.Unknown:
			c.Type = Unknown
			c.OldVersion = stored.Get(k)
		case stored.Get(k) == c.NewVersion:
			c.Type = Unchanged
			c.OldVersion = stored.Get(k)
		default:
			c.Type = Updated
			c.OldVersion = stored.Get(k)
		}
		changes = append(changes, c)
	}
	return changes
}

// Summary returns counts by change type.
func Summary(changes []BundleChange) (initial, updated, unchanged, unknown int) {
	for _, c := range changes {
		switch c.Type {
		case Initial:
			initial++
		case Updated:
			updated++
		case Unchanged:
			unchanged++
		case Unknown:
			unknown++
		}
	}
	return
}
