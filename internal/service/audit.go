package service

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/repository"
)

// AuditService appends to the access log. Callers record denials and
// destructive actions before writing their response, so the record survives
// even if the response write fails.
type AuditService struct {
	logRepo repository.AccessLogRepository
}

func NewAuditService(logRepo repository.AccessLogRepository) *AuditService {
	return &AuditService{logRepo: logRepo}
}

// Entry carries the variable parts of one audit row.
type Entry struct {
	FileID    string
	RequestID string
	Actor     string
	Action    string
	IPAddress string
	Country   string
	Detail    string
}

func (s *AuditService) Record(e Entry) {
	row := &model.AccessLog{
		ID:        uuid.New().String(),
		Actor:     e.Actor,
		Action:    e.Action,
		IPAddress: e.IPAddress,
		Country:   e.Country,
		Detail:    e.Detail,
		CreatedAt: time.Now(),
	}
	if e.FileID != "" {
		row.FileID = &e.FileID
	}
	if e.RequestID != "" {
		row.RequestID = &e.RequestID
	}

	err := s.logRepo.Append(row)
	if err != nil {
		// The audit trail must not take the request down with it.
		slog.Error("failed to append access log", "action", e.Action, "file_id", e.FileID, "error", err)
	}
}

func (s *AuditService) ByFile(fileID string) ([]*model.AccessLog, error) {
	return s.logRepo.ByFile(fileID)
}

// PurgeForRequest removes the audit rows tied to a deleted access request.
// This is the single cascading cleanup the append-only log allows.
func (s *AuditService) PurgeForRequest(requestID string) {
	_, err := s.logRepo.DeleteByRequest(requestID)
	if err != nil {
		slog.Error("failed to purge access logs for request", "request_id", requestID, "error", err)
	}
}
