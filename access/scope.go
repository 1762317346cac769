package access

import (
	"errors"
	"fmt"
	"sync"

	"github.com/brettbedarf/fileguard"
	"github.com/google/uuid"
)

// AccessScope is bound to one [Manager.TryBeginAccess] call. Close releases a
// granted scope exactly once, after closing resources added with AddClose;
// only the first call does anything.
//
// Example:
//
//	scope, err := mgr.CreateAccessScope(path, fileguard.IntentRead, fileguard.CacheFile)
//	if err != nil {
//		return err
//	}
//	defer scope.Close()
//	if !scope.IsGranted() {
//		return scope.Err()
//	}
type AccessScope struct {
	id     uuid.UUID
	path   string
	intent fileguard.AccessIntent
	result fileguard.AccessResult

	mu       sync.Mutex
	closeFns []func() error
	released bool
}

var _ fileguard.Scope = (*AccessScope)(nil)

// CreateAccessScope calls [Manager.TryBeginAccess] and wraps the outcome.
// An error is returned only for invalid arguments, never for a denied access.
func (m *Manager) CreateAccessScope(path string, intent fileguard.AccessIntent, category fileguard.FileCategory) (*AccessScope, error) {
	result, err := m.TryBeginAccess(path, intent, category)
	if err != nil {
		return nil, err
	}

	s := &AccessScope{
		id:     uuid.New(),
		path:   path,
		intent: intent,
		result: result,
	}
	// a granted delete holds no reference, so there is nothing to release
	if result == fileguard.Granted && intent != fileguard.IntentDelete {
		s.AddClose(func() error { return m.EndAccess(path) })
	}
	m.logger.Trace().
		Str("scope", s.id.String()).
		Str("path", path).
		Str("result", result.String()).
		Msg("Access scope created")
	return s, nil
}

// WithAccess runs fn inside a granted scope and releases it however fn exits,
// including by panic. If access is not granted fn is not called and the
// scope's error is returned.
func (m *Manager) WithAccess(path string, intent fileguard.AccessIntent, category fileguard.FileCategory, fn func(*AccessScope) error) (err error) {
	scope, err := m.CreateAccessScope(path, intent, category)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := scope.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if !scope.IsGranted() {
		return scope.Err()
	}
	return fn(scope)
}

// ID identifies the scope in logs
func (s *AccessScope) ID() uuid.UUID {
	return s.id
}

func (s *AccessScope) Path() string {
	return s.path
}

func (s *AccessScope) Intent() fileguard.AccessIntent {
	return s.intent
}

func (s *AccessScope) Result() fileguard.AccessResult {
	return s.result
}

func (s *AccessScope) IsGranted() bool {
	return s.result == fileguard.Granted
}

// Err wraps the outcome's sentinel error (e.g. [fileguard.ErrFileLocked]); nil when granted
func (s *AccessScope) Err() error {
	if err := s.result.Err(); err != nil {
		return fmt.Errorf("%s %s: %w", s.intent, s.path, err)
	}
	return nil
}

// ErrorMessage is the human readable reason the scope was not granted:
// "already deleted", "in use" or "missing". Empty when granted.
func (s *AccessScope) ErrorMessage() string {
	if err := s.result.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// IsReleased reports whether Close has run
func (s *AccessScope) IsReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// AddClose pushes a cleanup callback onto the end of the stack.
// Callbacks added after Close are run immediately.
func (s *AccessScope) AddClose(fn func() error) {
	s.mu.Lock()
	if !s.released {
		s.closeFns = append(s.closeFns, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	_ = fn()
}

// Close unwinds all cleanup callbacks in reverse order, the grant release
// being the last. Safe on a nil scope.
func (s *AccessScope) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	fns := s.closeFns
	s.closeFns = nil
	s.mu.Unlock()

	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
