//go:build !unix && !windows

package access

func isSharingViolation(error) bool {
	return false
}
