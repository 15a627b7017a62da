package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	key := "contract" + time.Now().Format("20060102150405")
	ttl := time.Minute

	t.Run("Save and Load", func(t *testing.T) {
		payload := domain.Payload{"foo": "bar", "count": 42.0}

		err := store.Save(ctx, key, payload, ttl, false)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "bar", loaded["foo"])
		assert.Equal(t, 42.0, loaded["count"])

		exists, err := store.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing"+key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		exists, err := store.Exists(ctx, "missing"+key)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, domain.Payload{"v": "1"}, ttl, false))
		require.NoError(t, store.Save(ctx, key, domain.Payload{"v": "2"}, ttl, false))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "2", loaded["v"])
	})

	t.Run("MustCreate", func(t *testing.T) {
		fresh := "fresh" + key
		defer func() { _ = store.Delete(ctx, fresh) }()

		require.NoError(t, store.Save(ctx, fresh, domain.Payload{"v": "first"}, ttl, true))

		err := store.Save(ctx, fresh, domain.Payload{"v": "second"}, ttl, true)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)

		loaded, err := store.Load(ctx, fresh)
		require.NoError(t, err)
		assert.Equal(t, "first", loaded["v"], "forced creation must not overwrite")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, domain.Payload{}, ttl, false))

		err := store.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, key), "deleting twice is fine")
	})
}

// RunMigrationStateStoreContract verifies a MigrationStateStore implementation.
func RunMigrationStateStoreContract(t *testing.T, store MigrationStateStore) {
	ctx := context.Background()

	_, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found, "fresh store has no state")

	first := domain.NewMigrationState("default", "alternative")
	first.Generation = 1
	ok, err := store.CompareAndSwap(ctx, 0, first)
	require.NoError(t, err)
	assert.True(t, ok)

	loaded, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, first, loaded)

	// A writer holding a stale generation loses.
	stale := first.Swapped()
	stale.Generation = 1
	ok, err = store.CompareAndSwap(ctx, 0, stale)
	require.NoError(t, err)
	assert.False(t, ok)

	next := first.Swapped()
	next.Generation = 2
	ok, err = store.CompareAndSwap(ctx, 1, next)
	require.NoError(t, err)
	assert.True(t, ok)

	loaded, _, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alternative", loaded.Current)
	assert.Equal(t, uint64(2), loaded.Generation)
}
