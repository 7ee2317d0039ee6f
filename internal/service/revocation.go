package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/repository"
	"github.com/sealdrop/sealdrop/internal/storage"
)

// KillConfirmPhrase must be sent verbatim to chain kill. A boolean would be
// one accidental request away from destroying an account's every file.
const KillConfirmPhrase = "DESTROY ALL"

// KillResult reports what a kill actually tore down.
type KillResult struct {
	SessionsRevoked int64
	ShardsDeleted   int64
}

// ChainKillResult reports the scope of a chain kill.
type ChainKillResult struct {
	FilesDestroyed  int
	SessionsRevoked int64
	RequestsPurged  int64
}

// RevocationService owns the destructive paths. Kill sub-steps are
// independent and best effort: shard deletion, blob deletion, and session
// revocation each proceed regardless of the others failing, because the
// safety property (undecryptable + sessions dead) only needs shards and
// sessions. An orphaned ciphertext blob is lag, not a leak.
type RevocationService struct {
	fileRepo    repository.FileRepository
	requestRepo repository.AccessRequestRepository
	shards      *ShardService
	sessions    *SessionService
	store       storage.Store
	audit       *AuditService
	email       *EmailService
	userRepo    repository.UserRepository
}

func NewRevocationService(
	fileRepo repository.FileRepository,
	requestRepo repository.AccessRequestRepository,
	userRepo repository.UserRepository,
	shards *ShardService,
	sessions *SessionService,
	store storage.Store,
	audit *AuditService,
	email *EmailService,
) *RevocationService {
	return &RevocationService{
		fileRepo:    fileRepo,
		requestRepo: requestRepo,
		userRepo:    userRepo,
		shards:      shards,
		sessions:    sessions,
		store:       store,
		audit:       audit,
		email:       email,
	}
}

// KillFile destroys one file: mark destroyed, delete shards (cryptographic
// erasure), delete the ciphertext blob, revoke all sessions, audit, notify.
// Idempotent: killing an already-destroyed file is a no-op success.
func (s *RevocationService) KillFile(ctx context.Context, fileID, ownerID string) (*KillResult, error) {
	file, err := s.fileRepo.ByID(fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	if file.IsDestroyed {
		return &KillResult{}, nil
	}

	err = s.fileRepo.MarkDestroyed(fileID, time.Now())
	if err != nil {
		return nil, err
	}

	result := s.teardown(ctx, file, "killed by owner")

	s.audit.Record(Entry{
		FileID: fileID,
		Actor:  ownerID,
		Action: model.ActionKilled,
	})

	go s.notifyKill(file, result.SessionsRevoked)

	return result, nil
}

// teardown runs the three independent destruction sub-steps concurrently.
// Failures are logged, never propagated: one failing step must not block
// the others.
func (s *RevocationService) teardown(ctx context.Context, file *model.File, reason string) *KillResult {
	result := &KillResult{}
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		n, err := s.shards.DestroyKey(file.ID)
		if err != nil {
			slog.Error("kill: shard deletion failed", "file_id", file.ID, "error", err)
			return
		}
		result.ShardsDeleted = n
	}()

	go func() {
		defer wg.Done()
		err := s.store.Delete(ctx, file.StoragePath)
		if err != nil {
			// Orphaned ciphertext without a key is undecryptable anyway.
			slog.Error("kill: blob deletion failed", "file_id", file.ID, "path", file.StoragePath, "error", err)
		}
	}()

	go func() {
		defer wg.Done()
		n, err := s.sessions.RevokeAllForFile(file.ID, reason)
		if err != nil {
			slog.Error("kill: session revocation failed", "file_id", file.ID, "error", err)
			return
		}
		result.SessionsRevoked = n
	}()

	wg.Wait()
	return result
}

// ChainKill applies kill semantics to every file the owner has, plus bulk
// access-request deletion. The confirmation must match KillConfirmPhrase
// exactly; anything else destroys nothing. One chain_kill audit row covers
// the whole batch.
func (s *RevocationService) ChainKill(ctx context.Context, ownerID, confirmation string) (*ChainKillResult, error) {
	if confirmation != KillConfirmPhrase {
		return nil, ErrBadConfirmation
	}

	ids, err := s.fileRepo.ActiveIDsByOwner(ownerID)
	if err != nil {
		return nil, err
	}

	result := &ChainKillResult{}
	now := time.Now()

	for _, id := range ids {
		file, err := s.fileRepo.ByID(id)
		if err != nil {
			if errors.Is(err, repository.ErrFileNotFound) {
				continue
			}
			return result, err
		}

		err = s.fileRepo.MarkDestroyed(id, now)
		if err != nil {
			slog.Error("chain kill: failed to mark file destroyed", "file_id", id, "error", err)
			continue
		}

		sub := s.teardown(ctx, file, "chain kill")
		result.FilesDestroyed++
		result.SessionsRevoked += sub.SessionsRevoked
	}

	// Final sweep for sessions the per-file teardown did not cover, such
	// as ones registered against files destroyed in earlier kills.
	extra, err := s.sessions.RevokeAllForOwner(ownerID, "chain kill")
	if err != nil {
		slog.Error("chain kill: owner-wide session sweep failed", "owner_id", ownerID, "error", err)
	}
	result.SessionsRevoked += extra

	purged, err := s.requestRepo.DeleteByOwner(ownerID)
	if err != nil {
		slog.Error("chain kill: failed to purge access requests", "owner_id", ownerID, "error", err)
	}
	result.RequestsPurged = purged

	s.audit.Record(Entry{
		Actor:  ownerID,
		Action: model.ActionChainKill,
		Detail: chainKillDetail(result),
	})

	go s.notifyChainKill(ownerID, result.FilesDestroyed)

	return result, nil
}

func chainKillDetail(r *ChainKillResult) string {
	return fmt.Sprintf("destroyed %d files, revoked %d sessions", r.FilesDestroyed, r.SessionsRevoked)
}

func (s *RevocationService) notifyKill(file *model.File, revoked int64) {
	owner, err := s.userRepo.ByID(file.OwnerID)
	if err != nil {
		slog.Error("kill notification: owner lookup failed", "owner_id", file.OwnerID, "error", err)
		return
	}
	s.email.SendKillNotification(owner.Email, file.OriginalName, revoked)
}

func (s *RevocationService) notifyChainKill(ownerID string, destroyed int) {
	owner, err := s.userRepo.ByID(ownerID)
	if err != nil {
		slog.Error("chain kill notification: owner lookup failed", "owner_id", ownerID, "error", err)
		return
	}
	s.email.SendChainKillNotification(owner.Email, destroyed)
}
