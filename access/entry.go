package access

import (
	"time"

	"github.com/brettbedarf/fileguard"
)

// trackingEntry is the per-path record of outstanding grants.
//
// Entries are stored by value in the registry and only ever replaced inside
// registry.Compute, which holds the lock of the key's bucket. That lock is the
// per-entry lock: increment, decrement and removal of one path are linearizable
// and never block paths hashed to other buckets. Snapshots taken with Range
// receive copies and need no further locking.
type trackingEntry struct {
	path       string // path as first granted; used for logging
	deletePath string // path as supplied to the deletion request; set with marked
	category   fileguard.FileCategory
	refs       int
	marked     bool
	createdAt  time.Time
	lastAccess time.Time
}

func newTrackingEntry(path string, category fileguard.FileCategory, now time.Time) trackingEntry {
	return trackingEntry{
		path:       path,
		category:   category,
		createdAt:  now,
		lastAccess: now,
	}
}

// acquire records one more grant
func (e trackingEntry) acquire(now time.Time) trackingEntry {
	e.refs++
	e.lastAccess = now
	return e
}

// release drops one grant. The returned bool reports whether the entry must
// leave the registry.
func (e trackingEntry) release(now time.Time) (trackingEntry, bool) {
	e.refs--
	if e.refs <= 0 {
		e.refs = 0
		return e, true
	}
	e.lastAccess = now
	return e, false
}

// markForDeletion flags the entry so the last release removes the file at path
func (e trackingEntry) markForDeletion(path string) trackingEntry {
	e.marked = true
	e.deletePath = path
	return e
}

// targetPath is the on-disk path a deferred deletion acts on
func (e trackingEntry) targetPath() string {
	if e.deletePath != "" {
		return e.deletePath
	}
	return e.path
}

// InUseFile is a diagnostic snapshot of one tracking entry
type InUseFile struct {
	Path              string                 `json:"path" yaml:"path"`
	RefCount          int                    `json:"ref_count" yaml:"ref_count"`
	Category          fileguard.FileCategory `json:"category" yaml:"category"`
	MarkedForDeletion bool                   `json:"marked_for_deletion" yaml:"marked_for_deletion"`
	CreatedAt         time.Time              `json:"created_at" yaml:"created_at"`
	LastAccessedAt    time.Time              `json:"last_accessed_at" yaml:"last_accessed_at"`
}

func (e trackingEntry) snapshot() InUseFile {
	return InUseFile{
		Path:              e.path,
		RefCount:          e.refs,
		Category:          e.category,
		MarkedForDeletion: e.marked,
		CreatedAt:         e.createdAt,
		LastAccessedAt:    e.lastAccess,
	}
}
