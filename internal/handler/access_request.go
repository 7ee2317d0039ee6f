package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sealdrop/sealdrop/internal/ctxkeys"
	"github.com/sealdrop/sealdrop/internal/geo"
	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/service"
	"github.com/sealdrop/sealdrop/internal/validation"
)

type AccessRequestHandler struct {
	requests *service.AccessRequestService
	geo      geo.Resolver
}

func NewAccessRequestHandler(requests *service.AccessRequestService, resolver geo.Resolver) *AccessRequestHandler {
	return &AccessRequestHandler{requests: requests, geo: resolver}
}

type accessRequestResponse struct {
	ID        string     `json:"id"`
	FileID    string     `json:"file_id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	Country   string     `json:"country"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

func toRequestResponse(req *model.AccessRequest) accessRequestResponse {
	return accessRequestResponse{
		ID:        req.ID,
		FileID:    req.FileID,
		Email:     req.Email,
		Name:      req.Name,
		Status:    req.Status,
		Country:   req.Country,
		CreatedAt: req.CreatedAt,
		DecidedAt: req.DecidedAt,
	}
}

// Create is the viewer-facing ask. Unauthenticated; identity is the
// supplied email plus request metadata.
func (h *AccessRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var id viewerIdentity
	if err := json.NewDecoder(r.Body).Decode(&id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validation.ValidateEmail(id.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateName(id.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	viewer := buildViewer(r, h.geo, id)

	request, err := h.requests.Create(r.PathValue("id"), viewer)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestResponse(request))
}

// ListForFile shows a file's requests to its owner.
func (h *AccessRequestHandler) ListForFile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	requests, err := h.requests.ByFile(r.PathValue("id"), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]accessRequestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, toRequestResponse(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": out})
}

func (h *AccessRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.requests.Approve(r.PathValue("id"), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": model.RequestApproved})
}

func (h *AccessRequestHandler) Deny(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.requests.Deny(r.PathValue("id"), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": model.RequestDenied})
}

// Delete removes a request and its audit rows, the one cascading delete in
// the system.
func (h *AccessRequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.requests.Delete(r.PathValue("id"), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
