package model

import (
	"time"
)

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestDenied   = "denied"
)

// AccessRequest is created when a viewer who is not on a file's allow list
// asks for access. It transitions pending -> approved/denied exactly once by
// the owner and is immutable after that; the owner may delete it for record
// cleanup, which also purges its audit rows.
type AccessRequest struct {
	ID          string     `db:"id"`
	FileID      string     `db:"file_id"`
	Email       string     `db:"email"`
	Name        string     `db:"name"`
	Status      string     `db:"status"`
	Fingerprint string     `db:"fingerprint"`
	IPAddress   string     `db:"ip_address"`
	Country     string     `db:"country"`
	CreatedAt   time.Time  `db:"created_at"`
	DecidedAt   *time.Time `db:"decided_at"`
}
