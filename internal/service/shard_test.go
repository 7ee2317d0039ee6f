package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealdrop/sealdrop/internal/crypto"
)

func TestShardStoreReconstructDestroy(t *testing.T) {
	env := newTestEnv(t)
	ownerID := env.createOwner(t, "owner@example.com")
	fileID := env.upload(t, ownerID, []byte("doc"), SettingsInput{})

	// Upload already split and stored a key; it must come back whole.
	key, err := env.shards.ReconstructKey(fileID)
	require.NoError(t, err)
	require.Len(t, key, crypto.KeySize)

	deleted, err := env.shards.DestroyKey(fileID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	_, err = env.shards.ReconstructKey(fileID)
	assert.ErrorIs(t, err, crypto.ErrKeyMissing)

	// Storing a fresh key works after erasure.
	fresh, err := crypto.NewKey()
	require.NoError(t, err)
	require.NoError(t, env.shards.StoreKey(fileID, fresh))

	got, err := env.shards.ReconstructKey(fileID)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
}

func TestReconstructFailsOnPartialShards(t *testing.T) {
	env := newTestEnv(t)
	ownerID := env.createOwner(t, "owner@example.com")
	fileID := env.upload(t, ownerID, []byte("doc"), SettingsInput{})

	shards, err := env.shardRepo.ByFile(fileID)
	require.NoError(t, err)
	require.Len(t, shards, 3)

	// Losing a single shard must make the key unrecoverable, not
	// partially recoverable.
	_, err = env.shardRepo.DeleteByFile(fileID)
	require.NoError(t, err)
	require.NoError(t, env.shardRepo.Store(shards[:2]))

	_, err = env.shards.ReconstructKey(fileID)
	assert.ErrorIs(t, err, crypto.ErrKeyMissing)
}
