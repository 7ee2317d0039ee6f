package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/repository"
)

// Heartbeat invalidity reasons surfaced to the viewer client.
const (
	HeartbeatRevoked       = "revoked"
	HeartbeatEnded         = "ended"
	HeartbeatFileDestroyed = "file_destroyed"
	HeartbeatFileExpired   = "file_expired"
)

// SessionService is the registry of live viewing sessions. Its heartbeat
// check is the sole enforcement point for revocation: there is no server
// push, so a revoked viewer finds out within one heartbeat interval.
type SessionService struct {
	sessionRepo repository.SessionRepository
	fileRepo    repository.FileRepository
	audit       *AuditService
	interval    time.Duration
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	fileRepo repository.FileRepository,
	audit *AuditService,
	interval time.Duration,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		fileRepo:    fileRepo,
		audit:       audit,
		interval:    interval,
	}
}

// Interval is the recommended heartbeat period handed to viewer clients.
func (s *SessionService) Interval() time.Duration {
	return s.interval
}

// StaleTimeout is how long a session may go silent before it counts as
// abandoned: three missed heartbeats.
func (s *SessionService) StaleTimeout() time.Duration {
	return 3 * s.interval
}

// Create registers a viewing session. Authorization of the underlying view
// has already happened by the time this is called, but the file itself is
// re-checked: destroyed files are terminal and must never gain new
// sessions, and a missing file is a caller error, not an FK violation.
func (s *SessionService) Create(fileID string, viewer Viewer) (*model.Session, error) {
	file, err := s.fileRepo.ByID(fileID)
	if err != nil {
		return nil, err
	}
	if file.IsDestroyed {
		return nil, ErrFileDestroyed
	}

	now := time.Now()
	session := &model.Session{
		ID:            uuid.New().String(),
		FileID:        fileID,
		ViewerEmail:   viewer.Email,
		ViewerName:    viewer.Name,
		Fingerprint:   viewer.Fingerprint,
		IPAddress:     viewer.IPAddress,
		UserAgent:     viewer.UserAgent,
		Country:       viewer.Country,
		IsActive:      true,
		StartedAt:     now,
		LastHeartbeat: now,
	}

	err = s.sessionRepo.Create(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.audit.Record(Entry{
		FileID:    fileID,
		Actor:     viewer.Email,
		Action:    model.ActionSessionStart,
		IPAddress: viewer.IPAddress,
		Country:   viewer.Country,
		Detail:    "session " + session.ID,
	})

	return session, nil
}

// HeartbeatResult tells the viewer client whether to keep rendering.
type HeartbeatResult struct {
	Valid  bool
	Reason string
}

// Heartbeat re-validates a session: it must exist, not be revoked, still be
// active, and its file must be neither destroyed nor expired. On any failure
// the client must stop rendering on receipt.
func (s *SessionService) Heartbeat(sessionID string) (HeartbeatResult, error) {
	session, err := s.sessionRepo.ByID(sessionID)
	if err != nil {
		return HeartbeatResult{}, err
	}

	if session.IsRevoked {
		reason := HeartbeatRevoked
		if session.RevokeReason != nil && *session.RevokeReason != "" {
			reason = *session.RevokeReason
		}
		return HeartbeatResult{Valid: false, Reason: reason}, nil
	}

	if !session.IsActive {
		return HeartbeatResult{Valid: false, Reason: HeartbeatEnded}, nil
	}

	file, err := s.fileRepo.ByID(session.FileID)
	if err != nil {
		return HeartbeatResult{}, err
	}

	if file.IsDestroyed {
		return HeartbeatResult{Valid: false, Reason: HeartbeatFileDestroyed}, nil
	}

	if file.Expired(time.Now()) {
		return HeartbeatResult{Valid: false, Reason: HeartbeatFileExpired}, nil
	}

	err = s.sessionRepo.Heartbeat(sessionID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// Revoked between our read and the renewal. The next call
			// reports the stored reason; this one already fails closed.
			return HeartbeatResult{Valid: false, Reason: HeartbeatRevoked}, nil
		}
		return HeartbeatResult{}, err
	}

	return HeartbeatResult{Valid: true}, nil
}

// End closes a session normally and records its final duration.
func (s *SessionService) End(sessionID string) error {
	session, err := s.sessionRepo.ByID(sessionID)
	if err != nil {
		return err
	}

	now := time.Now()
	endAt := now
	if now.Sub(session.LastHeartbeat) > s.StaleTimeout() {
		// The viewer went silent long ago; count the viewing up to the
		// last heartbeat, the same accounting MarkStale uses.
		endAt = session.LastHeartbeat
	}

	err = s.sessionRepo.End(sessionID, endAt)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil // already ended or revoked
		}
		return err
	}

	s.audit.Record(Entry{
		FileID:    session.FileID,
		Actor:     session.ViewerEmail,
		Action:    model.ActionSessionEnd,
		IPAddress: session.IPAddress,
		Country:   session.Country,
		Detail:    fmt.Sprintf("duration %s", endAt.Sub(session.StartedAt).Round(time.Second)),
	})

	return nil
}

// RevokeOne revokes a single session. Owner-initiated.
func (s *SessionService) RevokeOne(sessionID, reason, actor string) error {
	session, err := s.sessionRepo.ByID(sessionID)
	if err != nil {
		return err
	}

	err = s.sessionRepo.Revoke(sessionID, reason, time.Now())
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return err
	}

	s.audit.Record(Entry{
		FileID: session.FileID,
		Actor:  actor,
		Action: model.ActionRevoked,
		Detail: fmt.Sprintf("session %s: %s", sessionID, reason),
	})

	return nil
}

// RevokeAllForFile flips every active session of the file in one atomic
// update and returns how many were revoked.
func (s *SessionService) RevokeAllForFile(fileID, reason string) (int64, error) {
	return s.sessionRepo.RevokeAllForFile(fileID, reason, time.Now())
}

// RevokeAllForOwner revokes every active session across all of the owner's
// files in one statement.
func (s *SessionService) RevokeAllForOwner(ownerID, reason string) (int64, error) {
	return s.sessionRepo.RevokeAllForOwner(ownerID, reason, time.Now())
}

func (s *SessionService) ByID(sessionID string) (*model.Session, error) {
	return s.sessionRepo.ByID(sessionID)
}

// ByFile lists sessions for the owner's dashboard of a file.
func (s *SessionService) ByFile(fileID string) ([]*model.Session, error) {
	return s.sessionRepo.ByFile(fileID)
}

// MarkStale lazily ends sessions that stopped heartbeating. Called by the
// optional reconciliation ticker; never from the request path.
func (s *SessionService) MarkStale(timeout time.Duration) {
	n, err := s.sessionRepo.MarkStale(time.Now().Add(-timeout))
	if err != nil {
		slog.Error("failed to mark stale sessions", "error", err)
		return
	}
	if n > 0 {
		slog.Info("marked stale sessions ended", "count", n)
	}
}
