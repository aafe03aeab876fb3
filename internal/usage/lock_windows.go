//go:build windows

package usage

import (
	"errors"

	"github.com/rlegacy/launcher/internal/logging"
	"golang.org/x/sys/windows"
)

// lockProbe opens path with no sharing allowed. A sharing violation means
// another handle is open.
func lockProbe(path string) bool {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	h, err := windows.CreateFile(p, windows.GENERIC_READ, 0, nil, windows.OPEN_EXISTING, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		if errors.Is(err, windows.ERROR_SHARING_VIOLATION) {
			return true
		}
		logging.Debugf("Verbose: lock probe open %s: %v\n", path, err)
		return false
	}
	windows.CloseHandle(h)
	return false
}
