package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sealdrop/sealdrop/internal/ctxkeys"
	"github.com/sealdrop/sealdrop/internal/service"
)

type RevokeHandler struct {
	revocation *service.RevocationService
}

func NewRevokeHandler(revocation *service.RevocationService) *RevokeHandler {
	return &RevokeHandler{revocation: revocation}
}

// Kill triggers the per-file kill switch. Destruction is permanent; a
// repeat call on a dead file reports zero revoked sessions.
func (h *RevokeHandler) Kill(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	result, err := h.revocation.KillFile(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"destroyed":        true,
		"sessions_revoked": result.SessionsRevoked,
	})
}

type chainKillRequest struct {
	Confirm string `json:"confirm"`
}

// ChainKill destroys every active file of the owner. The confirmation
// phrase must match exactly, including case.
func (h *RevokeHandler) ChainKill(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req chainKillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.revocation.ChainKill(r.Context(), user.ID, req.Confirm)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files_destroyed":  result.FilesDestroyed,
		"sessions_revoked": result.SessionsRevoked,
	})
}
