// Package fileguard contains the caller-facing contract of the file access
// arbiter: the intent, result, category and state enums exchanged with the
// rest of the application plus the [AccessArbiter] interface.
package fileguard

import (
	"fmt"
	"strings"
)

// AccessIntent is what a caller intends to do with a path once access is granted
type AccessIntent int

const (
	IntentRead AccessIntent = iota
	IntentWrite
	IntentDelete
	IntentQuery
)

var intentNames = [...]string{"read", "write", "delete", "query"}

func (i AccessIntent) String() string {
	if i < 0 || int(i) >= len(intentNames) {
		return fmt.Sprintf("AccessIntent(%d)", int(i))
	}
	return intentNames[i]
}

// Valid reports whether i is one of the declared intents
func (i AccessIntent) Valid() bool {
	return i >= IntentRead && i <= IntentQuery
}

func (i AccessIntent) MarshalText() ([]byte, error) {
	if !i.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIntent, int(i))
	}
	return []byte(i.String()), nil
}

func (i *AccessIntent) UnmarshalText(text []byte) error {
	v, err := ParseIntent(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// ParseIntent converts a case-insensitive intent name into an AccessIntent
func ParseIntent(s string) (AccessIntent, error) {
	idx, ok := lookupName(intentNames[:], s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIntent, s)
	}
	return AccessIntent(idx), nil
}

// AccessResult is the outcome of an access or deletion request.
// OS-level errors never escape the arbiter; they are classified into one of these.
type AccessResult int

const (
	// Granted means access was granted or, for deletions, the file was removed
	Granted AccessResult = iota
	// FileDeleted means the path is already recorded as deleted
	FileDeleted
	// FileLocked means the file is in use. For a deletion request it signals the
	// deletion was accepted and deferred (or blocked by the OS and may be retried).
	FileLocked
	// FileNotFound means the file does not exist on disk
	FileNotFound
)

var resultNames = [...]string{"granted", "file_deleted", "file_locked", "file_not_found"}

func (r AccessResult) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return fmt.Sprintf("AccessResult(%d)", int(r))
	}
	return resultNames[r]
}

func (r AccessResult) MarshalText() ([]byte, error) {
	if r < Granted || r > FileNotFound {
		return nil, fmt.Errorf("unknown access result: %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *AccessResult) UnmarshalText(text []byte) error {
	idx, ok := lookupName(resultNames[:], string(text))
	if !ok {
		return fmt.Errorf("unknown access result: %q", string(text))
	}
	*r = AccessResult(idx)
	return nil
}

// Err maps the result onto its sentinel error; nil for Granted
func (r AccessResult) Err() error {
	switch r {
	case Granted:
		return nil
	case FileDeleted:
		return ErrFileDeleted
	case FileLocked:
		return ErrFileLocked
	case FileNotFound:
		return ErrFileNotFound
	default:
		return fmt.Errorf("unknown access result: %d", int(r))
	}
}

// FileCategory is informational only and never affects arbitration
type FileCategory int

const (
	OriginalImage FileCategory = iota
	CacheFile
	TemporaryFile
	ConfigFile
)

var categoryNames = [...]string{"original_image", "cache_file", "temporary_file", "config_file"}

func (c FileCategory) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("FileCategory(%d)", int(c))
	}
	return categoryNames[c]
}

func (c FileCategory) Valid() bool {
	return c >= OriginalImage && c <= ConfigFile
}

func (c FileCategory) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, int(c))
	}
	return []byte(c.String()), nil
}

func (c *FileCategory) UnmarshalText(text []byte) error {
	v, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseCategory converts a case-insensitive category name into a FileCategory
func ParseCategory(s string) (FileCategory, error) {
	idx, ok := lookupName(categoryNames[:], s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return FileCategory(idx), nil
}

// PathState is the lifecycle position of a single path:
//
//	Free -> InUse -> PendingDeletion -> Deleted
//
// Free -> Deleted happens on an immediate deletion. PendingDeletion -> Deleted
// happens when the last grant is released or when the pending request expires.
type PathState int

const (
	StateFree PathState = iota
	StateInUse
	StatePendingDeletion
	StateDeleted
)

var stateNames = [...]string{"free", "in_use", "pending_deletion", "deleted"}

func (s PathState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("PathState(%d)", int(s))
	}
	return stateNames[s]
}

func (s PathState) MarshalText() ([]byte, error) {
	if s < StateFree || s > StateDeleted {
		return nil, fmt.Errorf("unknown path state: %d", int(s))
	}
	return []byte(s.String()), nil
}

func lookupName(names []string, s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return i, true
		}
	}
	return 0, false
}
