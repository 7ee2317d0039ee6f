package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sealdrop/sealdrop/internal/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

type SessionRepository interface {
	Create(session *model.Session) error
	ByID(id string) (*model.Session, error)
	ByFile(fileID string) ([]*model.Session, error)
	Heartbeat(id string, at time.Time) error
	End(id string, at time.Time) error
	Revoke(id, reason string, at time.Time) error
	RevokeAllForFile(fileID, reason string, at time.Time) (int64, error)
	RevokeAllForOwner(ownerID, reason string, at time.Time) (int64, error)
	MarkStale(olderThan time.Time) (int64, error)
}

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session *model.Session) error {
	query := `INSERT INTO sessions (id, file_id, viewer_email, viewer_name, fingerprint, ip_address, user_agent,
	                                country, is_active, is_revoked, started_at, last_heartbeat)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(query,
		session.ID,
		session.FileID,
		session.ViewerEmail,
		session.ViewerName,
		session.Fingerprint,
		session.IPAddress,
		session.UserAgent,
		session.Country,
		session.IsActive,
		session.IsRevoked,
		session.StartedAt,
		session.LastHeartbeat,
	)

	return err
}

func (r *sessionRepository) ByID(id string) (*model.Session, error) {
	session := &model.Session{}
	query := `SELECT * FROM sessions WHERE id = $1`

	err := r.db.Get(session, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}

	return session, err
}

func (r *sessionRepository) ByFile(fileID string) ([]*model.Session, error) {
	var sessions []*model.Session
	query := `SELECT * FROM sessions WHERE file_id = $1 ORDER BY started_at DESC`

	err := r.db.Select(&sessions, query, fileID)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

// Heartbeat renews liveness for an active, non-revoked session. A session
// that was revoked or ended concurrently is not touched, so a heartbeat
// racing a kill observes either fully-pre-kill or fully-post-kill state.
func (r *sessionRepository) Heartbeat(id string, at time.Time) error {
	query := `UPDATE sessions SET last_heartbeat = $1 WHERE id = $2 AND is_active = true AND is_revoked = false`

	res, err := r.db.Exec(query, at, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepository) End(id string, at time.Time) error {
	query := `UPDATE sessions SET is_active = false, ended_at = $1 WHERE id = $2 AND is_active = true`

	res, err := r.db.Exec(query, at, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepository) Revoke(id, reason string, at time.Time) error {
	query := `UPDATE sessions SET is_revoked = true, is_active = false, revoke_reason = $1, ended_at = $2
	          WHERE id = $3 AND is_revoked = false`

	res, err := r.db.Exec(query, reason, at, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RevokeAllForFile flips every active session of the file in one statement.
// All rows change in one logical operation; partial revocation cannot happen.
func (r *sessionRepository) RevokeAllForFile(fileID, reason string, at time.Time) (int64, error) {
	query := `UPDATE sessions SET is_revoked = true, is_active = false, revoke_reason = $1, ended_at = $2
	          WHERE file_id = $3 AND is_active = true`

	res, err := r.db.Exec(query, reason, at, fileID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeAllForOwner is the chain-kill variant: one statement across every
// session of every file the owner has.
func (r *sessionRepository) RevokeAllForOwner(ownerID, reason string, at time.Time) (int64, error) {
	query := `UPDATE sessions SET is_revoked = true, is_active = false, revoke_reason = $1, ended_at = $2
	          WHERE is_active = true AND file_id IN (SELECT id FROM files WHERE owner_id = $3)`

	res, err := r.db.Exec(query, reason, at, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkStale ends sessions whose last heartbeat is older than the cutoff.
// Their final duration is counted up to the last heartbeat, not to now.
func (r *sessionRepository) MarkStale(olderThan time.Time) (int64, error) {
	query := `UPDATE sessions SET is_active = false, ended_at = last_heartbeat
	          WHERE is_active = true AND last_heartbeat < $1`

	res, err := r.db.Exec(query, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
