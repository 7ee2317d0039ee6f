package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sealdrop/sealdrop/internal/crypto"
	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/repository"
	"github.com/sealdrop/sealdrop/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// FileService runs the two pipelines at the core of the system: upload
// (encrypt once, split the key, store ciphertext and shards separately) and
// decrypt (authorize, reconstruct, decrypt, open a session).
type FileService struct {
	fileRepo repository.FileRepository
	userRepo repository.UserRepository
	shards   *ShardService
	store    storage.Store
	policy   *PolicyService
	sessions *SessionService
	audit    *AuditService
}

func NewFileService(
	fileRepo repository.FileRepository,
	userRepo repository.UserRepository,
	shards *ShardService,
	store storage.Store,
	policy *PolicyService,
	sessions *SessionService,
	audit *AuditService,
) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		userRepo: userRepo,
		shards:   shards,
		store:    store,
		policy:   policy,
		sessions: sessions,
		audit:    audit,
	}
}

// SettingsInput is the owner-supplied policy for a file. Password is the
// plaintext viewer password; it is hashed before it touches the database.
type SettingsInput struct {
	ExpiresAt        *time.Time
	MaxViews         *int
	Password         string
	ClearPassword    bool
	AllowedEmails    []string
	BlockedCountries []string
	RequireApproval  bool
}

// Upload encrypts data under a fresh key, splits the key into shards, puts
// the ciphertext in the blob store and the metadata in the database. The
// whole key exists in memory only between encryption and the shard split.
func (s *FileService) Upload(ctx context.Context, ownerID, name, mimeType string, data []byte, settings SettingsInput) (*model.File, error) {
	key, err := crypto.NewKey()
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(key)

	sealed, err := crypto.Encrypt(data, key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt file: %w", err)
	}

	hash := sha256.Sum256(data)

	file := &model.File{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		OriginalName: name,
		MimeType:     mimeType,
		Size:         int64(len(data)),
		ContentHash:  hex.EncodeToString(hash[:]),
		IV:           sealed.IV,
		AuthTag:      sealed.AuthTag,
		CreatedAt:    time.Now(),
	}
	file.StoragePath = "files/" + file.ID

	err = s.applySettings(&file.FileSettings, settings)
	if err != nil {
		return nil, err
	}

	err = s.store.Save(ctx, file.StoragePath, sealed.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to store ciphertext: %w", err)
	}

	err = s.shards.StoreKey(file.ID, key)
	if err != nil {
		// Without shards the blob is garbage; best effort cleanup.
		delErr := s.store.Delete(ctx, file.StoragePath)
		if delErr != nil {
			slog.Error("failed to clean up blob after shard failure", "path", file.StoragePath, "error", delErr)
		}
		return nil, err
	}

	err = s.fileRepo.Create(file)
	if err != nil {
		delErr := s.store.Delete(ctx, file.StoragePath)
		if delErr != nil {
			slog.Error("failed to clean up blob after insert failure", "path", file.StoragePath, "error", delErr)
		}
		if _, shardErr := s.shards.DestroyKey(file.ID); shardErr != nil {
			slog.Error("failed to clean up shards after insert failure", "file_id", file.ID, "error", shardErr)
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	s.audit.Record(Entry{
		FileID: file.ID,
		Actor:  ownerID,
		Action: model.ActionUpload,
		Detail: fmt.Sprintf("%s (%d bytes)", name, len(data)),
	})

	return file, nil
}

// DecryptResult is the outcome of one authorized decrypt: the plaintext
// plus the session that now tracks the viewing.
type DecryptResult struct {
	File    *model.File
	Session *model.Session
	Data    []byte
}

// Decrypt is the full read path: authorize against current policy,
// reconstruct the key from shards, fetch and open the ciphertext, then
// register the viewing session. Denials are audited before returning.
func (s *FileService) Decrypt(ctx context.Context, fileID string, viewer Viewer) (*DecryptResult, error) {
	file, err := s.fileRepo.ByID(fileID)
	if err != nil {
		return nil, err
	}

	owner, err := s.userRepo.ByID(file.OwnerID)
	if err != nil {
		return nil, err
	}

	decision := s.policy.Authorize(file, owner, viewer)
	if !decision.Allowed {
		s.audit.Record(Entry{
			FileID:    file.ID,
			Actor:     viewer.Email,
			Action:    model.ActionBlocked,
			IPAddress: viewer.IPAddress,
			Country:   viewer.Country,
			Detail:    decision.Reason,
		})
		return nil, &DenialError{Decision: decision}
	}

	total, err := s.fileRepo.IncrementViews(file.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count view: %w", err)
	}
	if file.MaxViews != nil && total >= *file.MaxViews {
		// The view that crosses the limit is still served; only later
		// attempts are denied.
		slog.Info("file reached view limit", "file_id", file.ID, "total_views", total)
	}

	key, err := s.shards.ReconstructKey(file.ID)
	if err != nil {
		if errors.Is(err, crypto.ErrKeyMissing) {
			// Corruption or a race with an in-flight kill. Distinct
			// from destroyed in the logs even though both deny.
			slog.Error("key reconstruction failed", "file_id", file.ID, "error", err)
		}
		return nil, err
	}
	defer crypto.Zero(key)

	ciphertext, err := s.store.Load(ctx, file.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load ciphertext: %w", err)
	}

	plaintext, err := crypto.Decrypt(ciphertext, key, file.IV, file.AuthTag)
	if err != nil {
		if errors.Is(err, crypto.ErrAuthenticationFailed) {
			slog.Error("ciphertext failed authentication, possible tampering", "file_id", file.ID)
		}
		return nil, err
	}

	session, err := s.sessions.Create(file.ID, viewer)
	if err != nil {
		return nil, err
	}

	s.audit.Record(Entry{
		FileID:    file.ID,
		Actor:     viewer.Email,
		Action:    model.ActionView,
		IPAddress: viewer.IPAddress,
		Country:   viewer.Country,
	})

	return &DecryptResult{File: file, Session: session, Data: plaintext}, nil
}

// ByID returns a file after checking ownership.
func (s *FileService) ByID(fileID, ownerID string) (*model.File, error) {
	file, err := s.fileRepo.ByID(fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return file, nil
}

func (s *FileService) ByOwner(ownerID string) ([]*model.File, error) {
	return s.fileRepo.ByOwner(ownerID)
}

// UpdateSettings replaces a file's policy. Owner only; destroyed files are
// terminal and reject the update.
func (s *FileService) UpdateSettings(fileID, ownerID string, input SettingsInput) (*model.File, error) {
	file, err := s.ByID(fileID, ownerID)
	if err != nil {
		return nil, err
	}

	settings := file.FileSettings
	err = s.applySettings(&settings, input)
	if err != nil {
		return nil, err
	}

	err = s.fileRepo.UpdateSettings(fileID, &settings)
	if err != nil {
		return nil, err
	}

	s.audit.Record(Entry{
		FileID: fileID,
		Actor:  ownerID,
		Action: model.ActionSettingsUpdate,
	})

	file.FileSettings = settings
	return file, nil
}

func (s *FileService) applySettings(settings *model.FileSettings, input SettingsInput) error {
	settings.ExpiresAt = input.ExpiresAt
	settings.MaxViews = input.MaxViews
	settings.AllowedEmails = model.StringList(input.AllowedEmails)
	settings.BlockedCountries = normalizeCountries(input.BlockedCountries)
	settings.RequireApproval = input.RequireApproval

	if input.ClearPassword {
		settings.PasswordHash = nil
	}
	if input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		hash := string(hashed)
		settings.PasswordHash = &hash
	}

	return nil
}
