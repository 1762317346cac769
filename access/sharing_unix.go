//go:build unix

package access

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isSharingViolation reports errors raised when a file is held by someone else
func isSharingViolation(err error) bool {
	return errors.Is(err, unix.EBUSY) || errors.Is(err, unix.ETXTBSY)
}
