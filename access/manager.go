// Package access arbitrates concurrent access to shared files inside one
// process. It answers "is anyone using this path?" and "can it be deleted?"
// and defers deletions of in-use files until their last grant is released.
package access

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"
	"time"

	"github.com/brettbedarf/fileguard"
	"github.com/brettbedarf/fileguard/config"
	"github.com/brettbedarf/fileguard/internal/util"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"
)

// Manager coordinates the tracking registry, the deletion ledger and the
// pending-deletion queue. All methods are safe for concurrent use and none of
// them waits for another caller's grant to be released.
//
// Lock order is registry bucket -> ledger / pending queue. The ledger and
// queue locks are never held while entering the registry.
type Manager struct {
	cfg      *config.Config
	fs       FileOps
	logger   zerolog.Logger
	now      func() time.Time
	registry *xsync.Map[string, trackingEntry] // normalized path -> entry with refs > 0
	ledger   *deletionLedger
	pending  *pendingQueue

	sweepMu   sync.Mutex // serializes the rate limit check of sweeps
	lastSweep time.Time  // protected by sweepMu

	stats counters

	runMu  sync.Mutex // protects cancel and done
	cancel context.CancelFunc
	done   chan struct{}
}

var _ fileguard.AccessArbiter = (*Manager)(nil)

// NewManager creates a Manager. A nil cfg uses [config.NewDefaultConfig];
// non-positive durations fall back to their defaults.
func NewManager(cfg *config.Config, opts ...Option) *Manager {
	c := config.NewDefaultConfig()
	if cfg != nil {
		c = new(config.Config)
		*c = *cfg
		if c.SweepInterval <= 0 {
			c.SweepInterval = config.DefaultSweepInterval
		}
		if c.PendingTimeout <= 0 {
			c.PendingTimeout = config.DefaultPendingTimeout
		}
	}
	m := &Manager{
		cfg:      c,
		fs:       OSFileOps{},
		logger:   util.GetLogger("AccessManager"),
		now:      time.Now,
		registry: xsync.NewMap[string, trackingEntry](),
		ledger:   newDeletionLedger(),
		pending:  newPendingQueue(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// key normalizes path into a registry key; "" for blank paths
func (m *Manager) key(path string) string {
	return util.NormalizePath(path, m.cfg.FoldCase)
}

func (m *Manager) validKey(path string) (string, error) {
	key := m.key(path)
	if key == "" {
		return "", fmt.Errorf("%w: %q", fileguard.ErrInvalidPath, path)
	}
	return key, nil
}

// TryBeginAccess requests a grant on path. Deleted paths get FileDeleted, a
// missing file on IntentRead gets FileNotFound and IntentDelete is handled as
// [Manager.TrySafeDelete]. Otherwise the reference count is incremented and
// must be matched by one [Manager.EndAccess].
// Invalid arguments return an error and change nothing.
func (m *Manager) TryBeginAccess(path string, intent fileguard.AccessIntent, category fileguard.FileCategory) (fileguard.AccessResult, error) {
	key, err := m.validKey(path)
	if err != nil {
		return 0, err
	}
	if !intent.Valid() {
		return 0, fmt.Errorf("%w: %d", fileguard.ErrInvalidIntent, int(intent))
	}
	if !category.Valid() {
		return 0, fmt.Errorf("%w: %d", fileguard.ErrInvalidCategory, int(category))
	}

	if m.ledger.contains(key) {
		m.logger.Trace().Str("path", path).Str("intent", intent.String()).Msg("Access refused: already deleted")
		return fileguard.FileDeleted, nil
	}
	if intent == fileguard.IntentDelete {
		return m.safeDelete(key, path), nil
	}
	if intent == fileguard.IntentRead && !m.fs.Exists(path) {
		m.logger.Trace().Str("path", path).Msg("Access refused: file not found")
		return fileguard.FileNotFound, nil
	}

	result := fileguard.Granted
	var refs int
	m.registry.Compute(key, func(e trackingEntry, loaded bool) (trackingEntry, xsync.ComputeOp) {
		// last release of a marked entry adds to the ledger under this lock
		if m.ledger.contains(key) {
			result = fileguard.FileDeleted
			return e, xsync.CancelOp
		}
		now := m.now()
		if !loaded {
			e = newTrackingEntry(path, category, now)
		}
		e = e.acquire(now)
		refs = e.refs
		return e, xsync.UpdateOp
	})

	if result != fileguard.Granted {
		m.logger.Trace().Str("path", path).Msg("Access refused: deleted concurrently")
		return result, nil
	}
	m.stats.grants.Add(1)
	m.logger.Trace().
		Str("path", path).
		Str("intent", intent.String()).
		Str("category", category.String()).
		Int("refs", refs).
		Msg("Access granted")
	return fileguard.Granted, nil
}

// EndAccess releases one grant on path. The last release of an entry marked
// for deletion records it in the ledger and removes the file, keeping the
// record even if the removal fails. Unknown paths are a no-op.
func (m *Manager) EndAccess(path string) error {
	key, err := m.validKey(path)
	if err != nil {
		return err
	}

	var (
		found    bool
		removed  bool
		finalize *trackingEntry
		refs     int
	)
	m.registry.Compute(key, func(e trackingEntry, loaded bool) (trackingEntry, xsync.ComputeOp) {
		if !loaded {
			return e, xsync.CancelOp
		}
		found = true
		now := m.now()
		e, removed = e.release(now)
		refs = e.refs
		if !removed {
			return e, xsync.UpdateOp
		}
		if e.marked {
			m.pending.remove(key)
			m.ledger.add(key, e.targetPath(), now)
			finalize = &e
		}
		return e, xsync.DeleteOp
	})

	if !found {
		m.logger.Trace().Str("path", path).Msg("EndAccess on untracked path ignored")
		return nil
	}
	m.stats.releases.Add(1)
	m.logger.Trace().Str("path", path).Int("refs", refs).Bool("removed", removed).Msg("Access released")

	if finalize != nil {
		m.completeDeferred("last release", finalize.targetPath(), finalize.path)
	}
	return nil
}

// TrySafeDelete deletes path if nobody holds a grant on it.
//
//   - in use: the entry is marked, the request queued and FileLocked returned
//     (accepted and deferred, not failed)
//   - removed: Granted; already absent: FileNotFound. Both are ledgered.
//   - blocked by the OS: FileLocked without a ledger record; may be retried
func (m *Manager) TrySafeDelete(path string) (fileguard.AccessResult, error) {
	key, err := m.validKey(path)
	if err != nil {
		return 0, err
	}
	if m.ledger.contains(key) {
		return fileguard.FileDeleted, nil
	}
	return m.safeDelete(key, path), nil
}

func (m *Manager) safeDelete(key, path string) fileguard.AccessResult {
	var (
		result   fileguard.AccessResult
		deferred bool
		refs     int
	)
	m.registry.Compute(key, func(e trackingEntry, loaded bool) (trackingEntry, xsync.ComputeOp) {
		if m.ledger.contains(key) {
			result = fileguard.FileDeleted
			return e, xsync.CancelOp
		}
		if loaded && e.refs > 0 {
			e = e.markForDeletion(path)
			m.pending.upsert(key, path, m.now())
			deferred = true
			refs = e.refs
			result = fileguard.FileLocked
			return e, xsync.UpdateOp
		}
		// no grant can be handed out while the bucket is held
		result = m.removeNow(key, path)
		return e, xsync.CancelOp
	})

	if deferred {
		m.logger.Debug().Str("path", path).Int("refs", refs).Msg("Deletion deferred until file is released")
	}
	return result
}

func (m *Manager) removeNow(key, path string) fileguard.AccessResult {
	err := m.fs.Remove(path)
	result, known := ClassifyRemoveError(err)
	switch result {
	case fileguard.Granted:
		m.ledger.add(key, path, m.now())
		m.stats.immediateDeletes.Add(1)
		m.logger.Info().Str("path", path).Msg("File deleted")
	case fileguard.FileNotFound:
		m.ledger.add(key, path, m.now())
		m.logger.Debug().Str("path", path).Msg("File already absent; recorded as deleted")
	default:
		ev := m.logger.Debug()
		if !known {
			ev = m.logger.Warn()
		}
		ev.Err(err).Str("path", path).Msg("File deletion blocked; may be retried")
	}
	return result
}

// completeDeferred removes a file whose deletion was deferred. The ledger
// already records it. Later paths are tried when an earlier one does not
// exist, so a request made through a path variant still reaches the file.
func (m *Manager) completeDeferred(reason string, paths ...string) {
	m.stats.deferredDeletes.Add(1)
	var (
		path string
		err  error
	)
	for i, p := range paths {
		if i > 0 && p == path {
			continue
		}
		path = p
		if err = m.fs.Remove(path); !errors.Is(err, fs.ErrNotExist) {
			break
		}
	}

	result, known := ClassifyRemoveError(err)
	switch {
	case result == fileguard.Granted:
		m.logger.Info().Str("path", path).Str("reason", reason).Msg("Deferred deletion completed")
	case result == fileguard.FileNotFound:
		m.logger.Debug().Str("path", path).Str("reason", reason).Msg("Deferred deletion found file already absent")
	case known:
		m.logger.Warn().Err(err).Str("path", path).Str("reason", reason).Msg("Deferred deletion blocked by the OS; file left on disk")
	default:
		m.logger.Error().Err(err).Str("path", path).Str("reason", reason).Msg("Deferred deletion failed")
	}
}

// IsFileInUse reports whether any grant is outstanding on path
func (m *Manager) IsFileInUse(path string) bool {
	key := m.key(path)
	if key == "" {
		return false
	}
	e, ok := m.registry.Load(key)
	return ok && e.refs > 0
}

// IsFileMarkedDeleted reports whether path is recorded in the deletion ledger
func (m *Manager) IsFileMarkedDeleted(path string) bool {
	key := m.key(path)
	if key == "" {
		return false
	}
	return m.ledger.contains(key)
}

// RefCount returns the number of outstanding grants on path
func (m *Manager) RefCount(path string) int {
	key := m.key(path)
	if key == "" {
		return 0
	}
	e, _ := m.registry.Load(key)
	return e.refs
}

// State derives the lifecycle state of path; a ledger record wins over a live entry
func (m *Manager) State(path string) fileguard.PathState {
	key := m.key(path)
	if key == "" {
		return fileguard.StateFree
	}
	if m.ledger.contains(key) {
		return fileguard.StateDeleted
	}
	e, ok := m.registry.Load(key)
	switch {
	case !ok:
		return fileguard.StateFree
	case e.marked:
		return fileguard.StatePendingDeletion
	default:
		return fileguard.StateInUse
	}
}

// GetInUseFiles returns a snapshot of all tracked paths sorted by path
func (m *Manager) GetInUseFiles() []InUseFile {
	out := make([]InUseFile, 0, m.registry.Size())
	m.registry.Range(func(_ string, e trackingEntry) bool {
		out = append(out, e.snapshot())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// GetPendingDeletions returns the queued deletion requests, oldest first
func (m *Manager) GetPendingDeletions() []PendingDeletion {
	items := m.pending.list()
	out := make([]PendingDeletion, 0, len(items))
	for _, p := range items {
		out = append(out, PendingDeletion{Path: p.path, RequestedAt: p.requestedAt})
	}
	return out
}

// GetDeletedFiles returns the ledger records sorted by path
func (m *Manager) GetDeletedFiles() []DeletedFile {
	return m.ledger.snapshot()
}

// ClearDeletedRecords empties the deletion ledger and returns the number of
// dropped records. Tracking entries and pending requests are untouched.
func (m *Manager) ClearDeletedRecords() int {
	n := m.ledger.clear()
	m.logger.Debug().Int("cleared", n).Msg("Deletion ledger cleared")
	return n
}
