package access

import "sync/atomic"

type counters struct {
	grants           atomic.Int64
	releases         atomic.Int64
	immediateDeletes atomic.Int64
	deferredDeletes  atomic.Int64
	forcedExpiries   atomic.Int64
	sweeps           atomic.Int64
}

// Stats is a point-in-time view of the manager for diagnostics.
// Gauges are read one structure at a time, so they are not a consistent cut
// under concurrent use.
type Stats struct {
	TrackedFiles     int   `json:"tracked_files" yaml:"tracked_files"`
	OutstandingRefs  int   `json:"outstanding_refs" yaml:"outstanding_refs"`
	PendingDeletions int   `json:"pending_deletions" yaml:"pending_deletions"`
	DeletedFiles     int   `json:"deleted_files" yaml:"deleted_files"`
	Grants           int64 `json:"grants" yaml:"grants"`
	Releases         int64 `json:"releases" yaml:"releases"`
	ImmediateDeletes int64 `json:"immediate_deletes" yaml:"immediate_deletes"`
	DeferredDeletes  int64 `json:"deferred_deletes" yaml:"deferred_deletes"`
	ForcedExpiries   int64 `json:"forced_expiries" yaml:"forced_expiries"`
	Sweeps           int64 `json:"sweeps" yaml:"sweeps"`
}

// Stats returns current gauges and lifetime counters
func (m *Manager) Stats() Stats {
	s := Stats{
		PendingDeletions: m.pending.len(),
		DeletedFiles:     m.ledger.len(),
		Grants:           m.stats.grants.Load(),
		Releases:         m.stats.releases.Load(),
		ImmediateDeletes: m.stats.immediateDeletes.Load(),
		DeferredDeletes:  m.stats.deferredDeletes.Load(),
		ForcedExpiries:   m.stats.forcedExpiries.Load(),
		Sweeps:           m.stats.sweeps.Load(),
	}
	m.registry.Range(func(_ string, e trackingEntry) bool {
		s.TrackedFiles++
		s.OutstandingRefs += e.refs
		return true
	})
	return s
}
