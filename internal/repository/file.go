package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sealdrop/sealdrop/internal/model"
)

var (
	ErrFileNotFound = errors.New("file not found")
)

type FileRepository interface {
	Create(file *model.File) error
	ByID(id string) (*model.File, error)
	ByOwner(ownerID string) ([]*model.File, error)
	ActiveIDsByOwner(ownerID string) ([]string, error)
	UpdateSettings(id string, settings *model.FileSettings) error
	IncrementViews(id string) (int, error)
	MarkDestroyed(id string, at time.Time) error
}

type fileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *fileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(file *model.File) error {
	query := `INSERT INTO files (id, owner_id, original_name, mime_type, size, content_hash, iv, auth_tag, storage_path,
	                             is_destroyed, created_at, expires_at, max_views, total_views, password_hash,
	                             allowed_emails, blocked_countries, require_approval)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.Exec(query,
		file.ID,
		file.OwnerID,
		file.OriginalName,
		file.MimeType,
		file.Size,
		file.ContentHash,
		file.IV,
		file.AuthTag,
		file.StoragePath,
		file.IsDestroyed,
		file.CreatedAt,
		file.ExpiresAt,
		file.MaxViews,
		file.TotalViews,
		file.PasswordHash,
		file.AllowedEmails,
		file.BlockedCountries,
		file.RequireApproval,
	)

	return err
}

func (r *fileRepository) ByID(id string) (*model.File, error) {
	file := &model.File{}
	query := `SELECT * FROM files WHERE id = $1`

	err := r.db.Get(file, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrFileNotFound
	}

	return file, err
}

func (r *fileRepository) ByOwner(ownerID string) ([]*model.File, error) {
	var files []*model.File
	query := `SELECT * FROM files WHERE owner_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&files, query, ownerID)
	if err != nil {
		return nil, err
	}

	return files, nil
}

// ActiveIDsByOwner returns ids of the owner's files that have not been
// destroyed yet. Used by chain kill to build its batch.
func (r *fileRepository) ActiveIDsByOwner(ownerID string) ([]string, error) {
	var ids []string
	query := `SELECT id FROM files WHERE owner_id = $1 AND is_destroyed = false`

	err := r.db.Select(&ids, query, ownerID)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *fileRepository) UpdateSettings(id string, settings *model.FileSettings) error {
	query := `UPDATE files
	          SET expires_at = $1, max_views = $2, password_hash = $3, allowed_emails = $4,
	              blocked_countries = $5, require_approval = $6
	          WHERE id = $7 AND is_destroyed = false`

	res, err := r.db.Exec(query,
		settings.ExpiresAt,
		settings.MaxViews,
		settings.PasswordHash,
		settings.AllowedEmails,
		settings.BlockedCountries,
		settings.RequireApproval,
		id,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFileNotFound
	}
	return nil
}

// IncrementViews bumps total_views atomically and returns the new count.
// Concurrent viewers never lose updates: the read-modify-write happens
// inside the database, not in application code.
func (r *fileRepository) IncrementViews(id string) (int, error) {
	var total int
	query := `UPDATE files SET total_views = total_views + 1 WHERE id = $1 RETURNING total_views`

	err := r.db.Get(&total, query, id)
	if err == sql.ErrNoRows {
		return 0, ErrFileNotFound
	}

	return total, err
}

// MarkDestroyed flips the terminal destroyed flag. Idempotent: a second call
// for the same file is a no-op, not an error.
func (r *fileRepository) MarkDestroyed(id string, at time.Time) error {
	query := `UPDATE files SET is_destroyed = true, destroyed_at = $1 WHERE id = $2 AND is_destroyed = false`
	_, err := r.db.Exec(query, at, id)
	return err
}
