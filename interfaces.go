package fileguard

// AccessArbiter defines the operations consumers (loaders, caches, exporters,
// cleanup routines) need to coordinate on shared files.
// Implementations must be safe for concurrent use.
type AccessArbiter interface {
	// TryBeginAccess requests a grant for path. A Granted result must be
	// matched by exactly one EndAccess call.
	TryBeginAccess(path string, intent AccessIntent, category FileCategory) (AccessResult, error)

	// EndAccess releases one grant. Unknown paths are a no-op.
	EndAccess(path string) error

	// TrySafeDelete deletes path now or, if it is in use, defers the deletion
	// until the last grant is released and returns FileLocked.
	TrySafeDelete(path string) (AccessResult, error)

	IsFileInUse(path string) bool
	IsFileMarkedDeleted(path string) bool
}

// Scope is a handle bound to one access request. Close releases the grant
// exactly once and is safe to call any number of times.
type Scope interface {
	Path() string
	Result() AccessResult
	IsGranted() bool
	// Err describes why the scope was not granted; nil when granted
	Err() error
	Close() error
}
