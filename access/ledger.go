package access

import (
	"sort"
	"sync"
	"time"
)

// deletionLedger is the set of paths considered deleted. It only grows until
// cleared. Additions are rare next to reference count churn so one coarse
// lock guards it.
type deletionLedger struct {
	mu    sync.RWMutex
	paths map[string]DeletedFile // keyed by normalized path
}

// DeletedFile is a diagnostic snapshot of one ledger record
type DeletedFile struct {
	Path      string    `json:"path" yaml:"path"`
	DeletedAt time.Time `json:"deleted_at" yaml:"deleted_at"`
}

func newDeletionLedger() *deletionLedger {
	return &deletionLedger{paths: make(map[string]DeletedFile)}
}

// add records key as deleted. The first record wins; returns false if key was already present.
func (l *deletionLedger) add(key, path string, at time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.paths[key]; ok {
		return false
	}
	l.paths[key] = DeletedFile{Path: path, DeletedAt: at}
	return true
}

func (l *deletionLedger) contains(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.paths[key]
	return ok
}

func (l *deletionLedger) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.paths)
}

// clear empties the ledger and returns how many records were dropped
func (l *deletionLedger) clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.paths)
	l.paths = make(map[string]DeletedFile)
	return n
}

// snapshot returns the records sorted by path
func (l *deletionLedger) snapshot() []DeletedFile {
	l.mu.RLock()
	out := make([]DeletedFile, 0, len(l.paths))
	for _, d := range l.paths {
		out = append(out, d)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
