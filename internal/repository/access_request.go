package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sealdrop/sealdrop/internal/model"
)

var (
	ErrRequestNotFound = errors.New("access request not found")
	ErrRequestDecided  = errors.New("access request already decided")
)

type AccessRequestRepository interface {
	Create(request *model.AccessRequest) error
	ByID(id string) (*model.AccessRequest, error)
	ByFile(fileID string) ([]*model.AccessRequest, error)
	ByFileAndEmail(fileID, email string) (*model.AccessRequest, error)
	Decide(id, status string, at time.Time) error
	Delete(id string) error
	DeleteByOwner(ownerID string) (int64, error)
}

type accessRequestRepository struct {
	db *sqlx.DB
}

func NewAccessRequestRepository(db *sqlx.DB) *accessRequestRepository {
	return &accessRequestRepository{db: db}
}

func (r *accessRequestRepository) Create(request *model.AccessRequest) error {
	query := `INSERT INTO access_requests (id, file_id, email, name, status, fingerprint, ip_address, country, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(query,
		request.ID,
		request.FileID,
		request.Email,
		request.Name,
		request.Status,
		request.Fingerprint,
		request.IPAddress,
		request.Country,
		request.CreatedAt,
	)

	return err
}

func (r *accessRequestRepository) ByID(id string) (*model.AccessRequest, error) {
	request := &model.AccessRequest{}
	query := `SELECT * FROM access_requests WHERE id = $1`

	err := r.db.Get(request, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrRequestNotFound
	}

	return request, err
}

func (r *accessRequestRepository) ByFile(fileID string) ([]*model.AccessRequest, error) {
	var requests []*model.AccessRequest
	query := `SELECT * FROM access_requests WHERE file_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&requests, query, fileID)
	if err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *accessRequestRepository) ByFileAndEmail(fileID, email string) (*model.AccessRequest, error) {
	request := &model.AccessRequest{}
	query := `SELECT * FROM access_requests WHERE file_id = $1 AND email = $2`

	err := r.db.Get(request, query, fileID, email)
	if err == sql.ErrNoRows {
		return nil, ErrRequestNotFound
	}

	return request, err
}

// Decide moves a pending request to approved or denied. The WHERE guard
// makes the transition exactly-once: a request that was already decided
// stays as it is and the caller gets ErrRequestDecided.
func (r *accessRequestRepository) Decide(id, status string, at time.Time) error {
	query := `UPDATE access_requests SET status = $1, decided_at = $2 WHERE id = $3 AND status = $4`

	res, err := r.db.Exec(query, status, at, id, model.RequestPending)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		_, getErr := r.ByID(id)
		if getErr != nil {
			return getErr
		}
		return ErrRequestDecided
	}
	return nil
}

func (r *accessRequestRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM access_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// DeleteByOwner purges every request against the owner's files. Part of the
// chain-kill batch.
func (r *accessRequestRepository) DeleteByOwner(ownerID string) (int64, error) {
	query := `DELETE FROM access_requests WHERE file_id IN (SELECT id FROM files WHERE owner_id = $1)`

	res, err := r.db.Exec(query, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
