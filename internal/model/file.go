package model

import (
	"time"
)

// File is one protected upload. The plaintext is never stored: the blob at
// StoragePath holds AES-GCM ciphertext and the key only exists split across
// key_shards rows. Destroyed files are terminal.
type File struct {
	ID           string     `db:"id"`
	OwnerID      string     `db:"owner_id"`
	OriginalName string     `db:"original_name"`
	MimeType     string     `db:"mime_type"`
	Size         int64      `db:"size"`
	ContentHash  string     `db:"content_hash"` // sha-256 of the plaintext, hex
	IV           []byte     `db:"iv"`
	AuthTag      []byte     `db:"auth_tag"`
	StoragePath  string     `db:"storage_path"`
	IsDestroyed  bool       `db:"is_destroyed"`
	DestroyedAt  *time.Time `db:"destroyed_at"`
	CreatedAt    time.Time  `db:"created_at"`

	FileSettings
}

// FileSettings is the owner-mutated access policy, read on every access
// attempt. Stored inline on the files row so view counting is a single
// atomic UPDATE.
type FileSettings struct {
	ExpiresAt        *time.Time `db:"expires_at"`
	MaxViews         *int       `db:"max_views"`
	TotalViews       int        `db:"total_views"`
	PasswordHash     *string    `db:"password_hash"`
	AllowedEmails    StringList `db:"allowed_emails"`
	BlockedCountries StringList `db:"blocked_countries"`
	RequireApproval  bool       `db:"require_approval"`
}

func (f *File) Expired(now time.Time) bool {
	return f.ExpiresAt != nil && now.After(*f.ExpiresAt)
}

func (s *FileSettings) RequirePassword() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}

// ViewLimitReached reports whether the running counter has hit max_views.
// The view that crosses the limit is still served; the limit only gates
// later attempts.
func (s *FileSettings) ViewLimitReached() bool {
	return s.MaxViews != nil && s.TotalViews >= *s.MaxViews
}
