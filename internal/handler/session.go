package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sealdrop/sealdrop/internal/ctxkeys"
	"github.com/sealdrop/sealdrop/internal/geo"
	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/service"
)

type SessionHandler struct {
	sessions *service.SessionService
	files    *service.FileService
	geo      geo.Resolver
}

func NewSessionHandler(sessions *service.SessionService, files *service.FileService, resolver geo.Resolver) *SessionHandler {
	return &SessionHandler{sessions: sessions, files: files, geo: resolver}
}

type createSessionRequest struct {
	FileID string `json:"file_id"`
	viewerIdentity
}

// Create registers a standalone viewing session, for clients that hold the
// plaintext already (the decrypt endpoint opens one implicitly).
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FileID == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}

	viewer := buildViewer(r, h.geo, req.viewerIdentity)

	session, err := h.sessions.Create(req.FileID, viewer)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":                    session.ID,
		"heartbeat_interval_ms": h.sessions.Interval().Milliseconds(),
	})
}

// Heartbeat re-validates a session. An invalid result is still HTTP 200;
// the body carries the verdict and the client stops rendering on it.
func (h *SessionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessions.Heartbeat(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := map[string]any{
		"valid":             result.Valid,
		"next_heartbeat_ms": h.sessions.Interval().Milliseconds(),
	}
	if !result.Valid {
		resp["reason"] = result.Reason
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.End(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Revoke cuts one session. Owner-only; the next heartbeat from that viewer
// comes back invalid.
func (h *SessionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	sessionID := r.PathValue("id")

	session, err := h.sessions.ByID(sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if _, err := h.files.ByID(session.FileID, user.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	err = h.sessions.RevokeOne(sessionID, service.HeartbeatRevoked, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type sessionResponse struct {
	ID            string     `json:"id"`
	ViewerEmail   string     `json:"viewer_email"`
	ViewerName    string     `json:"viewer_name"`
	Fingerprint   string     `json:"fingerprint"`
	IPAddress     string     `json:"ip_address"`
	Country       string     `json:"country"`
	IsActive      bool       `json:"is_active"`
	IsRevoked     bool       `json:"is_revoked"`
	StartedAt     time.Time  `json:"started_at"`
	LastHeartbeat time.Time  `json:"last_heartbeat"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	DurationMs    int64      `json:"duration_ms"`
}

func toSessionResponse(s *model.Session, now time.Time) sessionResponse {
	return sessionResponse{
		ID:            s.ID,
		ViewerEmail:   s.ViewerEmail,
		ViewerName:    s.ViewerName,
		Fingerprint:   s.Fingerprint,
		IPAddress:     s.IPAddress,
		Country:       s.Country,
		IsActive:      s.IsActive,
		IsRevoked:     s.IsRevoked,
		StartedAt:     s.StartedAt,
		LastHeartbeat: s.LastHeartbeat,
		EndedAt:       s.EndedAt,
		DurationMs:    s.Duration(now).Milliseconds(),
	}
}

// ListForFile is the owner's live view of who is watching a file.
func (h *SessionHandler) ListForFile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	fileID := r.PathValue("id")

	if _, err := h.files.ByID(fileID, user.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	sessions, err := h.sessions.ByFile(fileID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := time.Now()
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s, now))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}
