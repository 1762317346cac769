package fileguard

import "errors"

// Contract violations by the caller. Calls failing with these perform no state change.
var (
	ErrInvalidPath     = errors.New("invalid path")
	ErrInvalidIntent   = errors.New("invalid access intent")
	ErrInvalidCategory = errors.New("invalid file category")
)

// Outcome errors carried by scopes that were not granted. See [AccessResult.Err].
var (
	ErrFileDeleted  = errors.New("already deleted")
	ErrFileLocked   = errors.New("in use")
	ErrFileNotFound = errors.New("missing")
)
