package access

import (
	"errors"
	"io/fs"
	"os"

	"github.com/brettbedarf/fileguard"
)

// FileOps is the manager's only view of the filesystem: an existence check
// for read grants and removal for deletions. Callers do their own I/O.
type FileOps interface {
	Exists(path string) bool
	Remove(path string) error
}

// OSFileOps implements [FileOps] against the local filesystem
type OSFileOps struct{}

// Exists reports false only when the path is known not to exist. Other stat
// failures (e.g. permission) are left for the caller's own I/O to report.
func (OSFileOps) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

func (OSFileOps) Remove(path string) error {
	return os.Remove(path)
}

var _ FileOps = OSFileOps{}

// ClassifyRemoveError maps the error of a delete attempt onto an AccessResult:
//
//   - nil: Granted
//   - file absent: FileNotFound (the goal is already achieved)
//   - sharing violation, busy file or permission denied: FileLocked (retryable)
//
// Any other failure is also reported as FileLocked; known is false for those so
// callers can log them.
func ClassifyRemoveError(err error) (result fileguard.AccessResult, known bool) {
	switch {
	case err == nil:
		return fileguard.Granted, true
	case errors.Is(err, fs.ErrNotExist):
		return fileguard.FileNotFound, true
	case errors.Is(err, fs.ErrPermission), isSharingViolation(err):
		return fileguard.FileLocked, true
	default:
		return fileguard.FileLocked, false
	}
}
