package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sealdrop/sealdrop/internal/ctxkeys"
	"github.com/sealdrop/sealdrop/internal/geo"
	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/service"
	"github.com/sealdrop/sealdrop/internal/validation"
)

type FileHandler struct {
	files    *service.FileService
	sessions *service.SessionService
	audit    *service.AuditService
	geo      geo.Resolver
}

func NewFileHandler(files *service.FileService, sessions *service.SessionService, audit *service.AuditService, resolver geo.Resolver) *FileHandler {
	return &FileHandler{files: files, sessions: sessions, audit: audit, geo: resolver}
}

type fileSettingsResponse struct {
	ExpiresAt        *time.Time `json:"expires_at"`
	MaxViews         *int       `json:"max_views"`
	TotalViews       int        `json:"total_views"`
	HasPassword      bool       `json:"has_password"`
	AllowedEmails    []string   `json:"allowed_emails"`
	BlockedCountries []string   `json:"blocked_countries"`
	RequireApproval  bool       `json:"require_approval"`
}

type fileResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	MimeType    string               `json:"mime_type"`
	Size        int64                `json:"size"`
	ContentHash string               `json:"content_hash"`
	IsDestroyed bool                 `json:"is_destroyed"`
	DestroyedAt *time.Time           `json:"destroyed_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	Settings    fileSettingsResponse `json:"settings"`
}

func toFileResponse(f *model.File) fileResponse {
	return fileResponse{
		ID:          f.ID,
		Name:        f.OriginalName,
		MimeType:    f.MimeType,
		Size:        f.Size,
		ContentHash: f.ContentHash,
		IsDestroyed: f.IsDestroyed,
		DestroyedAt: f.DestroyedAt,
		CreatedAt:   f.CreatedAt,
		Settings: fileSettingsResponse{
			ExpiresAt:        f.ExpiresAt,
			MaxViews:         f.MaxViews,
			TotalViews:       f.TotalViews,
			HasPassword:      f.RequirePassword(),
			AllowedEmails:    f.AllowedEmails,
			BlockedCountries: f.BlockedCountries,
			RequireApproval:  f.RequireApproval,
		},
	}
}

// settingsRequest is the JSON shape for upload settings and PATCH
// /files/{id}/settings. A null max_views or expires_at clears the limit.
type settingsRequest struct {
	ExpiresAt        *time.Time `json:"expires_at"`
	MaxViews         *int       `json:"max_views"`
	Password         string     `json:"password"`
	ClearPassword    bool       `json:"clear_password"`
	AllowedEmails    []string   `json:"allowed_emails"`
	BlockedCountries []string   `json:"blocked_countries"`
	RequireApproval  bool       `json:"require_approval"`
}

func (req settingsRequest) toInput() service.SettingsInput {
	return service.SettingsInput{
		ExpiresAt:        req.ExpiresAt,
		MaxViews:         req.MaxViews,
		Password:         req.Password,
		ClearPassword:    req.ClearPassword,
		AllowedEmails:    req.AllowedEmails,
		BlockedCountries: req.BlockedCountries,
		RequireApproval:  req.RequireApproval,
	}
}

// Upload takes a multipart form with a "file" part and an optional
// "settings" part holding the same JSON as the settings PATCH.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := r.ParseMultipartForm(validation.MaxUploadSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	if err := validation.ValidateUpload(header); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, validation.MaxUploadSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if int64(len(data)) > validation.MaxUploadSize {
		writeError(w, http.StatusBadRequest, "file too large")
		return
	}

	settings := settingsRequest{}
	if raw := r.FormValue("settings"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			writeError(w, http.StatusBadRequest, "invalid settings JSON")
			return
		}
	}

	mimeType := validation.DetectContentType(data, header.Header.Get("Content-Type"))

	created, err := h.files.Upload(r.Context(), user.ID, header.Filename, mimeType, data, settings.toInput())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFileResponse(created))
}

// Content is the viewer-facing decrypt endpoint. Identity travels in query
// parameters so the content URL stays a plain link, but the password rides
// in a header: query strings end up in proxy and access logs. The response
// streams the plaintext with the session id and heartbeat cadence in
// headers.
func (h *FileHandler) Content(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")

	viewer := buildViewer(r, h.geo, viewerIdentity{
		Email:       r.URL.Query().Get("email"),
		Name:        r.URL.Query().Get("name"),
		Password:    r.Header.Get("X-View-Password"),
		Fingerprint: r.URL.Query().Get("fingerprint"),
	})

	result, err := h.files.Decrypt(r.Context(), fileID, viewer)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", result.File.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.File.OriginalName))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set("X-Session-Id", result.Session.ID)
	w.Header().Set("X-Heartbeat-Interval-Ms", strconv.FormatInt(h.sessions.Interval().Milliseconds(), 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		// Client went away mid-stream; the session still exists and will
		// go stale without heartbeats.
		return
	}
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	files, err := h.files.ByOwner(user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": out})
}

func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	file, err := h.files.ByID(r.PathValue("id"), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFileResponse(file))
}

func (h *FileHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	file, err := h.files.UpdateSettings(r.PathValue("id"), user.ID, req.toInput())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFileResponse(file))
}

type logEntryResponse struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	IPAddress string    `json:"ip_address"`
	Country   string    `json:"country"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Logs returns the owner's audit trail for one file, newest first. Admins
// may inspect any file's trail; the role comes from the request context,
// resolved once by the auth middleware.
func (h *FileHandler) Logs(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	// Ownership gate before touching the log table.
	if ctxkeys.Role(r.Context()) != model.RoleAdmin {
		if _, err := h.files.ByID(r.PathValue("id"), user.ID); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	logs, err := h.audit.ByFile(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]logEntryResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, logEntryResponse{
			ID:        l.ID,
			Actor:     l.Actor,
			Action:    l.Action,
			IPAddress: l.IPAddress,
			Country:   l.Country,
			Detail:    l.Detail,
			CreatedAt: l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": out})
}
