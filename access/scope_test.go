package access

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/brettbedarf/fileguard"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccessScope_Granted(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	path := createTestFile(t, t.TempDir(), "s.png")

	scope, err := m.CreateAccessScope(path, fileguard.IntentRead, fileguard.CacheFile)
	require.NoError(t, err)
	require.NotNil(t, scope)

	assert.True(t, scope.IsGranted())
	assert.Equal(t, fileguard.Granted, scope.Result())
	assert.Equal(t, path, scope.Path())
	assert.Equal(t, fileguard.IntentRead, scope.Intent())
	assert.NoError(t, scope.Err())
	assert.Empty(t, scope.ErrorMessage())
	assert.NotEqual(t, uuid.Nil, scope.ID())
	assert.Equal(t, 1, m.RefCount(path))

	require.NoError(t, scope.Close())
	assert.True(t, scope.IsReleased())
	assert.Equal(t, 0, m.RefCount(path))

	// a second release must not steal another holder's grant
	require.Equal(t, fileguard.Granted, beginRead(t, m, path))
	require.NoError(t, scope.Close())
	assert.Equal(t, 1, m.RefCount(path))
}

func TestCreateAccessScope_Denied(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	dir := t.TempDir()
	missing := filepath.Join(dir, "c.png")
	held := createTestFile(t, dir, "held.png")
	deleted := createTestFile(t, dir, "deleted.png")

	require.Equal(t, fileguard.Granted, beginRead(t, m, held))
	_, err := m.TrySafeDelete(deleted)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		intent  fileguard.AccessIntent
		result  fileguard.AccessResult
		message string
		wantErr error
	}{
		{"missing", missing, fileguard.IntentRead, fileguard.FileNotFound, "missing", fileguard.ErrFileNotFound},
		{"deleted", deleted, fileguard.IntentWrite, fileguard.FileDeleted, "already deleted", fileguard.ErrFileDeleted},
		{"in use", held, fileguard.IntentDelete, fileguard.FileLocked, "in use", fileguard.ErrFileLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := m.CreateAccessScope(tt.path, tt.intent, fileguard.CacheFile)
			require.NoError(t, err)

			assert.False(t, scope.IsGranted())
			assert.Equal(t, tt.result, scope.Result())
			assert.Equal(t, tt.message, scope.ErrorMessage())
			assert.ErrorIs(t, scope.Err(), tt.wantErr)
			assert.Contains(t, scope.Err().Error(), tt.path)
		})
	}

	before := m.GetInUseFiles()
	scope, err := m.CreateAccessScope(missing, fileguard.IntentRead, fileguard.CacheFile)
	require.NoError(t, err)
	for range 3 {
		require.NoError(t, scope.Close())
	}
	assert.Equal(t, before, m.GetInUseFiles(), "releasing a denied scope mutates nothing")
	assert.Equal(t, 1, m.RefCount(held))
}

func TestCreateAccessScope_DeleteIntentHoldsNoGrant(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	path := createTestFile(t, t.TempDir(), "del.png")

	scope, err := m.CreateAccessScope(path, fileguard.IntentDelete, fileguard.TemporaryFile)
	require.NoError(t, err)

	assert.True(t, scope.IsGranted())
	assert.True(t, m.IsFileMarkedDeleted(path))
	require.NoError(t, scope.Close())
	assert.Equal(t, int64(0), m.Stats().Releases)
}

func TestAccessScope_CloseUnwindsInReverse(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	path := createTestFile(t, t.TempDir(), "o.png")

	scope, err := m.CreateAccessScope(path, fileguard.IntentRead, fileguard.CacheFile)
	require.NoError(t, err)

	var order []string
	scope.AddClose(func() error {
		order = append(order, "first")
		assert.True(t, m.IsFileInUse(path), "grant released only after callbacks")
		return nil
	})
	scope.AddClose(func() error {
		order = append(order, "second")
		return errors.New("close handle")
	})

	err = scope.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close handle")
	assert.Equal(t, []string{"second", "first"}, order)
	assert.False(t, m.IsFileInUse(path))

	// callbacks added after release run immediately
	ran := false
	scope.AddClose(func() error { ran = true; return nil })
	assert.True(t, ran)
}

func TestAccessScope_NilClose(t *testing.T) {
	t.Parallel()

	var scope *AccessScope
	assert.NoError(t, scope.Close())
}

func TestAccessScope_ConcurrentCloseReleasesOnce(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	path := createTestFile(t, t.TempDir(), "cc.png")

	require.Equal(t, fileguard.Granted, beginRead(t, m, path))
	scope, err := m.CreateAccessScope(path, fileguard.IntentRead, fileguard.CacheFile)
	require.NoError(t, err)
	require.Equal(t, 2, m.RefCount(path))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = scope.Close()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, m.RefCount(path))
}

func TestWithAccess(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	dir := t.TempDir()
	path := createTestFile(t, dir, "w.png")

	t.Run("releases after fn", func(t *testing.T) {
		called := false
		err := m.WithAccess(path, fileguard.IntentRead, fileguard.CacheFile, func(s *AccessScope) error {
			called = true
			assert.Equal(t, 1, m.RefCount(path))
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, 0, m.RefCount(path))
	})

	t.Run("returns fn error", func(t *testing.T) {
		boom := errors.New("boom")
		err := m.WithAccess(path, fileguard.IntentRead, fileguard.CacheFile, func(*AccessScope) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, m.RefCount(path))
	})

	t.Run("releases on panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = m.WithAccess(path, fileguard.IntentRead, fileguard.CacheFile, func(*AccessScope) error {
				panic("decoder exploded")
			})
		})
		assert.Equal(t, 0, m.RefCount(path))
	})

	t.Run("denied skips fn", func(t *testing.T) {
		err := m.WithAccess(filepath.Join(dir, "nope.png"), fileguard.IntentRead, fileguard.CacheFile, func(*AccessScope) error {
			t.Fatal("fn must not run")
			return nil
		})
		assert.ErrorIs(t, err, fileguard.ErrFileNotFound)
	})

	t.Run("invalid input", func(t *testing.T) {
		err := m.WithAccess("", fileguard.IntentRead, fileguard.CacheFile, func(*AccessScope) error { return nil })
		assert.ErrorIs(t, err, fileguard.ErrInvalidPath)
	})
}
