package daemon

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceLock_SecondAcquireFails(t *testing.T) {
	// Given: a vault whose lock is held
	vault := t.TempDir()
	first := NewInstanceLock(vault)
	require.NoError(t, first.Acquire())
	t.Cleanup(func() { _ = first.Release() })

	assert.Equal(t, filepath.Join(vault, ".qmdsync", "serve.lock"), first.Path())
	assert.True(t, first.IsLocked())

	// When: a second serve tries the same vault
	second := NewInstanceLock(vault)
	err := second.Acquire()

	// Then: it fails fast
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.False(t, second.IsLocked())
}

func TestInstanceLock_ReleaseAllowsReacquire(t *testing.T) {
	vault := t.TempDir()
	first := NewInstanceLock(vault)
	require.NoError(t, first.Acquire())
	require.NoError(t, first.Release())
	assert.NoError(t, first.Release(), "double release is safe")

	second := NewInstanceLock(vault)
	require.NoError(t, second.Acquire())
	assert.NoError(t, second.Release())
}
