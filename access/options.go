package access

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a [Manager]
type Option func(*Manager)

// WithFileOps replaces the filesystem used for existence checks and removal
func WithFileOps(ops FileOps) Option {
	return func(m *Manager) {
		m.fs = ops
	}
}

// WithLogger sets the logger used by the manager
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock replaces time.Now, mainly so tests can drive sweeps and expiry
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}
