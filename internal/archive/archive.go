// Package archive unpacks downloaded bundle archives into a live directory
// tree. Extraction is best effort: a bad entry is recorded and skipped, and
// only a failure to read the archive itself fails the call.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rlegacy/launcher/internal/logging"
)

// ErrUnsafePath is recorded for entries that would land outside the
// destination directory.
var ErrUnsafePath = errors.New("entry escapes destination")

type EntryStatus int

const (
	Extracted EntryStatus = iota
	Skipped
	Failed
)

func (s EntryStatus) String() string {
	switch s {
	case Extracted:
		return "extracted"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Entry is the outcome for one archive member.
type Entry struct {
	Name   string
	Dir    bool
	Status EntryStatus
	Err    error
}

// Result lists every entry in archive order.
type Result struct {
	Archive string
	Dest    string
	Entries []Entry
}

// Extracted counts entries written to disk.
func (r *Result) Extracted() int { return r.count(Extracted) }

// Skipped counts rejected entries.
func (r *Result) Skipped() int { return r.count(Skipped) }

// Failed counts entries that could not be written.
func (r *Result) Failed() int { return r.count(Failed) }

// OK reports whether every entry was extracted.
func (r *Result) OK() bool {
	return r.Failed() == 0 && r.Skipped() == 0
}

func (r *Result) count(s EntryStatus) int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == s {
			n++
		}
	}
	return n
}

// Extractor is the zip implementation used by the reconciler.
type Extractor struct{}

func (Extractor) Extract(archivePath, destDir string) (*Result, error) {
	return Extract(archivePath, destDir)
}

// Extract unpacks archivePath under destDir, creating directories as needed
// and replacing files that already exist.
func Extract(archivePath, destDir string) (*Result, error) {
	// Insecure names still yield a usable reader; resolve rejects them per entry.
	r, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", destDir, err)
	}

	res := &Result{Archive: archivePath, Dest: destDir, Entries: make([]Entry, 0, len(r.File))}
	for _, f := range r.File {
		entry := Entry{Name: f.Name, Dir: f.FileInfo().IsDir()}

		target, err := resolve(destDir, f.Name)
		if err != nil {
			entry.Status = Skipped
			entry.Err = err
			logging.Warnf("  Skipping %s: %v", f.Name, err)
			res.Entries = append(res.Entries, entry)
			continue
		}

		if entry.Dir {
			err = os.MkdirAll(target, 0o755)
		} else {
			err = writeEntry(f, target)
		}
		if err != nil {
			entry.Status = Failed
			entry.Err = err
			logging.Warnf("  Failed to extract %s: %v", f.Name, err)
		} else {
			logging.Debugf("Verbose: extracted %s\n", target)
		}
		res.Entries = append(res.Entries, entry)
	}

	return res, nil
}

// resolve joins name under destDir, rejecting anything that would escape it.
func resolve(destDir, name string) (string, error) {
	slashed := strings.ReplaceAll(name, "\\", "/")
	if slashed == "" || strings.HasPrefix(slashed, "/") || filepath.VolumeName(name) != "" {
		return "", ErrUnsafePath
	}
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return "", ErrUnsafePath
		}
	}

	cleanDest := filepath.Clean(destDir)
	target := filepath.Join(cleanDest, filepath.FromSlash(slashed))
	if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
		return "", ErrUnsafePath
	}
	return target, nil
}

// writeEntry stages the entry in a sibling temp file and renames it over
// target, so an existing file is replaced even when it is read-only. The
// owner always keeps write permission.
func writeEntry(f *zip.File, target string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	_, err = io.Copy(tmp, rc)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpPath, entryMode(f))
	}
	if err == nil {
		err = replace(tmpPath, target)
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func entryMode(f *zip.File) os.FileMode {
	mode := f.Mode().Perm()
	if mode == 0 {
		return 0o644
	}
	return mode | 0o600
}

// replace renames src over dst. Some platforms refuse to replace a read-only
// file, so dst is made writable and the rename retried once.
func replace(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	info, statErr := os.Stat(dst)
	if statErr != nil || info.Mode().Perm()&0o200 != 0 {
		return err
	}
	if chmodErr := os.Chmod(dst, info.Mode().Perm()|0o200); chmodErr != nil {
		return err
	}
	return os.Rename(src, dst)
}
