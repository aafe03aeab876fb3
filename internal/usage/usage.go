// Package usage detects whether the client artifact is held open by a running
// client. The checks are heuristics: a rename probe, plus an exclusive-lock
// probe where the platform offers one. Neither is a real lock.
package usage

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rlegacy/launcher/internal/logging"
)

// Guard reports whether a file is currently in use.
type Guard interface {
	InUse(path string) bool
}

// FileGuard is the filesystem-backed Guard.
type FileGuard struct{}

func (FileGuard) InUse(path string) bool {
	return InUse(path)
}

// InUse reports whether path appears to be open elsewhere. A missing file is
// never in use.
func InUse(path string) bool {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false
	}
	if renameProbe(path) {
		return true
	}
	return lockProbe(path)
}

// renameProbe moves path to a sibling name and straight back. Either rename
// failing means something holds the file.
func renameProbe(path string) bool {
	probe := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".probe-"+uuid.NewString())

	if err := os.Rename(path, probe); err != nil {
		logging.Debugf("Verbose: rename probe %s: %v\n", path, err)
		return true
	}
	if err := os.Rename(probe, path); err != nil {
		logging.Errorf("Could not restore %s from %s: %v", path, probe, err)
		return true
	}
	return false
}
