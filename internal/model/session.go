package model

import (
	"time"
)

// Session is one live viewing interaction. The viewer client keeps it alive
// with periodic heartbeats; the heartbeat check is where revocation is
// enforced, so revocation latency equals one heartbeat interval plus a round
// trip. There is no server push.
type Session struct {
	ID            string     `db:"id"`
	FileID        string     `db:"file_id"`
	ViewerEmail   string     `db:"viewer_email"`
	ViewerName    string     `db:"viewer_name"`
	Fingerprint   string     `db:"fingerprint"`
	IPAddress     string     `db:"ip_address"`
	UserAgent     string     `db:"user_agent"`
	Country       string     `db:"country"`
	IsActive      bool       `db:"is_active"`
	IsRevoked     bool       `db:"is_revoked"`
	RevokeReason  *string    `db:"revoke_reason"`
	StartedAt     time.Time  `db:"started_at"`
	LastHeartbeat time.Time  `db:"last_heartbeat"`
	EndedAt       *time.Time `db:"ended_at"`
}

// Duration is the viewing time so far, or the final duration once ended.
func (s *Session) Duration(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}
