package access

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// SweepReport summarizes one pass over the pending-deletion queue
type SweepReport struct {
	Skipped   bool `json:"skipped" yaml:"skipped"`     // rate limited, nothing examined
	Completed int  `json:"completed" yaml:"completed"` // no longer in use; deletion executed
	Expired   int  `json:"expired" yaml:"expired"`     // forced into the ledger while still in use
	Waiting   int  `json:"waiting" yaml:"waiting"`     // still in use, left queued
}

type sweepAction int

const (
	sweepWait sweepAction = iota
	sweepGone             // resolved concurrently
	sweepComplete
	sweepExpire
)

// ProcessPendingDeletions resolves queued deletions, at most once per sweep
// interval; calls inside the interval return a Skipped report.
//
// Requests no longer in use are executed. Requests still in use after the
// pending timeout enter the ledger and leave the queue although grants are
// outstanding; the file is removed once its last grant is released.
func (m *Manager) ProcessPendingDeletions() SweepReport {
	m.sweepMu.Lock()
	now := m.now()
	if !m.lastSweep.IsZero() && now.Sub(m.lastSweep) < m.cfg.SweepInterval {
		m.sweepMu.Unlock()
		return SweepReport{Skipped: true}
	}
	m.lastSweep = now
	m.sweepMu.Unlock()

	return m.sweep(now)
}

// ForceProcessPendingDeletions is [Manager.ProcessPendingDeletions] without the rate limit
func (m *Manager) ForceProcessPendingDeletions() SweepReport {
	m.sweepMu.Lock()
	now := m.now()
	m.lastSweep = now
	m.sweepMu.Unlock()

	return m.sweep(now)
}

func (m *Manager) sweep(now time.Time) SweepReport {
	var report SweepReport
	m.stats.sweeps.Add(1)

	for _, p := range m.pending.list() {
		action, refs := m.resolvePending(p, now)
		switch action {
		case sweepComplete:
			report.Completed++
			m.completeDeferred("sweep", p.path)
		case sweepExpire:
			report.Expired++
			m.stats.forcedExpiries.Add(1)
			m.logger.Warn().
				Str("path", p.path).
				Int("refs", refs).
				Dur("pending", now.Sub(p.requestedAt)).
				Msg("Pending deletion expired; recorded as deleted while still in use")
		case sweepWait:
			report.Waiting++
		}
	}

	if report.Completed+report.Expired > 0 {
		m.logger.Debug().
			Int("completed", report.Completed).
			Int("expired", report.Expired).
			Int("waiting", report.Waiting).
			Msg("Pending deletions processed")
	}
	return report
}

// resolvePending decides the fate of one queued request under the key's registry lock
func (m *Manager) resolvePending(p pendingDeletion, now time.Time) (action sweepAction, refs int) {
	m.registry.Compute(p.key, func(e trackingEntry, loaded bool) (trackingEntry, xsync.ComputeOp) {
		if _, queued := m.pending.get(p.key); !queued {
			action = sweepGone
			return e, xsync.CancelOp
		}
		if !loaded || e.refs <= 0 {
			m.pending.remove(p.key)
			m.ledger.add(p.key, p.path, now)
			action = sweepComplete
			if loaded {
				return e, xsync.DeleteOp
			}
			return e, xsync.CancelOp
		}
		refs = e.refs
		if now.Sub(p.requestedAt) >= m.cfg.PendingTimeout {
			m.pending.remove(p.key)
			m.ledger.add(p.key, p.path, now)
			action = sweepExpire
			return e, xsync.CancelOp
		}
		action = sweepWait
		return e, xsync.CancelOp
	})
	return action, refs
}

// Start launches the background sweeper, which sweeps every sweep interval
// until ctx is done or [Manager.Close] is called. No-op if AutoSweep is
// disabled or the sweeper already runs.
func (m *Manager) Start(ctx context.Context) {
	if !m.cfg.AutoSweep {
		return
	}
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	ticker := time.NewTicker(m.cfg.SweepInterval)
	done := make(chan struct{})
	m.cancel, m.done = cancel, done
	go func() {
		defer ticker.Stop()
		m.runSweeper(ctx, ticker.C, done)
	}()
	m.logger.Debug().Dur("interval", m.cfg.SweepInterval).Msg("Pending deletion sweeper started")
}

// runSweeper sweeps on every tick; the ticker already spaces the sweeps
func (m *Manager) runSweeper(ctx context.Context, tick <-chan time.Time, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			m.ForceProcessPendingDeletions()
		}
	}
}

// Close stops the background sweeper, waits for it to exit and runs one last
// sweep. Safe to call more than once and without a prior Start.
func (m *Manager) Close() error {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		m.logger.Debug().Msg("Pending deletion sweeper stopped")
	}
	m.ForceProcessPendingDeletions()
	return nil
}
