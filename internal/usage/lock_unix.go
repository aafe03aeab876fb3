//go:build unix

package usage

import (
	"errors"
	"os"

	"github.com/rlegacy/launcher/internal/logging"
	"golang.org/x/sys/unix"
)

// lockProbe tries a non-blocking exclusive flock. Unix lets a file be renamed
// while open, so this is the probe that catches a client holding a lock.
func lockProbe(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		logging.Debugf("Verbose: lock probe open %s: %v\n", path, err)
		return false
	}
	defer f.Close()

	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return true
		}
		logging.Debugf("Verbose: lock probe flock %s: %v\n", path, err)
		return false
	}
	_ = unix.Flock(fd, unix.LOCK_UN)
	return false
}
