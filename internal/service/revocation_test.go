package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealdrop/sealdrop/internal/crypto"
	"github.com/sealdrop/sealdrop/internal/repository"
)

func TestKillFileIsIrrecoverable(t *testing.T) {
	env := newTestEnv(t)
	ownerID := env.createOwner(t, "owner@example.com")
	fileID := env.upload(t, ownerID, []byte("burn after reading"), SettingsInput{
		AllowedEmails: []string{"viewer@example.com"},
	})

	session, err := env.sessions.Create(fileID, Viewer{Email: "viewer@example.com"})
	require.NoError(t, err)

	result, err := env.revocation.KillFile(context.Background(), fileID, ownerID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.ShardsDeleted)
	assert.EqualValues(t, 1, result.SessionsRevoked)

	// The key is gone.
	_, err = env.shards.ReconstructKey(fileID)
	assert.ErrorIs(t, err, crypto.ErrKeyMissing)

	// The session is dead.
	hb, err := env.sessions.Heartbeat(session.ID)
	require.NoError(t, err)
	assert.False(t, hb.Valid)

	// Any further decrypt denies as destroyed.
	_, err = env.files.Decrypt(context.Background(), fileID, Viewer{Email: "viewer@example.com"})
	denial, ok := AsDenial(err)
	require.True(t, ok)
	assert.Equal(t, DenyDestroyed, denial.Decision.Reason)
}

func TestKillFileSurvivesBlobDeleteFailure(t *testing.T) {
	env := newTestEnv(t)
	ownerID := env.createOwner(t, "owner@example.com")
	fileID := env.upload(t, ownerID, []byte("stuck blob"), SettingsInput{})

	file, err := env.fileRepo.ByID(fileID)
	require.NoError(t, err)

	env.store.failDelete = true
	result, err := env.revocation.KillFile(context.Background(), fileID, ownerID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.ShardsDeleted)

	// The ciphertext is orphaned but the key is gone, so the file is
	// unreadable regardless.
	assert.True(t, env.store.has(file.StoragePath))
	_, err = env.shards.ReconstructKey(fileID)
	assert.ErrorIs(t, err, crypto.ErrKeyMissing)

	destroyed, err := env.fileRepo.ByID(fileID)
	require.NoError(t, err)
	assert.True(t, destroyed.IsDestroyed)
}

func TestKillFileIdempotentAndOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ownerID := env.createOwner(t, "owner@example.com")
	otherID := env.createOwner(t, "other@example.com")
	fileID := env.upload(t, ownerID, []byte("doc"), SettingsInput{})

	_, err := env.revocation.KillFile(context.Background(), fileID, otherID)
	assert.ErrorIs(t, err, ErrNotOwner)

	first, err := env.revocation.KillFile(context.Background(), fileID, ownerID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, first.ShardsDeleted)

	second, err := env.revocation.KillFile(context.Background(), fileID, ownerID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, second.ShardsDeleted)
	assert.EqualValues(t, 0, second.SessionsRevoked)
}

func TestChainKillRequiresExactConfirmation(t *testing.T) {
	env := newTestEnv(t)
	ownerID := env.createOwner(t, "owner@example.com")
	fileID := env.upload(t, ownerID, []byte("doc"), SettingsInput{})

	for _, phrase := range []string{"", "destroy all", "DESTROY  ALL", "Destroy All"} {
		_, err := env.revocation.ChainKill(context.Background(), ownerID, phrase)
		assert.ErrorIs(t, err, ErrBadConfirmation, "phrase %q", phrase)
	}

	// Nothing was touched.
	file, err := env.fileRepo.ByID(fileID)
	require.NoError(t, err)
	assert.False(t, file.IsDestroyed)
}

func TestChainKillDestroysEverything(t *testing.T) {
	env := newTestEnv(t)
	ownerID := env.createOwner(t, "owner@example.com")
	otherID := env.createOwner(t, "other@example.com")

	var mine []string
	for i := 0; i < 3; i++ {
		mine = append(mine, env.upload(t, ownerID, []byte{byte(i)}, SettingsInput{RequireApproval: true}))
	}
	theirs := env.upload(t, otherID, []byte("untouched"), SettingsInput{})

	// An already-destroyed file does not count again, and a destroyed
	// file can no longer gain sessions.
	_, err := env.revocation.KillFile(context.Background(), mine[0], ownerID)
	require.NoError(t, err)
	_, err = env.sessions.Create(mine[0], Viewer{Email: "late@example.com"})
	assert.ErrorIs(t, err, ErrFileDestroyed)

	// A pending request that must be purged with the batch.
	_, err = env.requests.Create(mine[1], Viewer{Email: "asker@example.com", Name: "Asker"})
	require.NoError(t, err)

	session, err := env.sessions.Create(mine[2], Viewer{Email: "viewer@example.com"})
	require.NoError(t, err)

	result, err := env.revocation.ChainKill(context.Background(), ownerID, KillConfirmPhrase)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesDestroyed)
	assert.EqualValues(t, 1, result.SessionsRevoked)
	assert.EqualValues(t, 1, result.RequestsPurged)

	for _, id := range mine {
		file, err := env.fileRepo.ByID(id)
		require.NoError(t, err)
		assert.True(t, file.IsDestroyed)
		_, err = env.shards.ReconstructKey(id)
		assert.ErrorIs(t, err, crypto.ErrKeyMissing)
	}

	hb, err := env.sessions.Heartbeat(session.ID)
	require.NoError(t, err)
	assert.False(t, hb.Valid)

	// The other owner's file is untouched.
	file, err := env.fileRepo.ByID(theirs)
	require.NoError(t, err)
	assert.False(t, file.IsDestroyed)

	_, err = env.requestRepo.ByFileAndEmail(mine[1], "asker@example.com")
	assert.ErrorIs(t, err, repository.ErrRequestNotFound)
}
