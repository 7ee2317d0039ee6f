package model

import (
	"time"
)

// Audit actions. Every denial and every destructive operation appends one of
// these before the response is written.
const (
	ActionUpload          = "upload"
	ActionView            = "view"
	ActionBlocked         = "blocked"
	ActionSessionStart    = "session_start"
	ActionSessionEnd      = "session_end"
	ActionRevoked         = "revoked"
	ActionKilled          = "killed"
	ActionChainKill       = "chain_kill"
	ActionSettingsUpdate  = "settings_update"
	ActionRequestCreated  = "request_created"
	ActionRequestApproved = "request_approved"
	ActionRequestDenied   = "request_denied"
)

// AccessLog is an append-only audit record. Rows are never updated; the only
// delete path is the cascade when an AccessRequest is purged.
type AccessLog struct {
	ID        string    `db:"id"`
	FileID    *string   `db:"file_id"` // nil for owner-level entries like chain_kill
	RequestID *string   `db:"request_id"`
	Actor     string    `db:"actor"`
	Action    string    `db:"action"`
	IPAddress string    `db:"ip_address"`
	Country   string    `db:"country"`
	Detail    string    `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}
