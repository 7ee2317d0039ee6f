package repository

import (
	"github.com/jmoiron/sqlx"
	"github.com/sealdrop/sealdrop/internal/model"
)

type AccessLogRepository interface {
	Append(entry *model.AccessLog) error
	ByFile(fileID string) ([]*model.AccessLog, error)
	DeleteByRequest(requestID string) (int64, error)
}

type accessLogRepository struct {
	db *sqlx.DB
}

func NewAccessLogRepository(db *sqlx.DB) *accessLogRepository {
	return &accessLogRepository{db: db}
}

// Append writes one audit row. The table is append-only: there is no update
// method and the only delete is the access-request purge cascade.
func (r *accessLogRepository) Append(entry *model.AccessLog) error {
	query := `INSERT INTO access_logs (id, file_id, request_id, actor, action, ip_address, country, detail, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(query,
		entry.ID,
		entry.FileID,
		entry.RequestID,
		entry.Actor,
		entry.Action,
		entry.IPAddress,
		entry.Country,
		entry.Detail,
		entry.CreatedAt,
	)

	return err
}

func (r *accessLogRepository) ByFile(fileID string) ([]*model.AccessLog, error) {
	var entries []*model.AccessLog
	query := `SELECT * FROM access_logs WHERE file_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&entries, query, fileID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *accessLogRepository) DeleteByRequest(requestID string) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM access_logs WHERE request_id = $1`, requestID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
