package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sealdrop/sealdrop/internal/ctxkeys"
	"github.com/sealdrop/sealdrop/internal/service"
	"github.com/sealdrop/sealdrop/internal/validation"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Token string `json:"token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.auth.Register(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyExists) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeServiceError(w, err)
		return
	}

	token, err := h.auth.GenerateJWT(user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.auth.SetJWTCookie(w, token, time.Now().Add(h.auth.JWTExpiry()))

	writeJSON(w, http.StatusCreated, authResponse{ID: user.ID, Email: user.Email, Token: token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeServiceError(w, err)
		return
	}

	token, err := h.auth.GenerateJWT(user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.auth.SetJWTCookie(w, token, time.Now().Add(h.auth.JWTExpiry()))

	writeJSON(w, http.StatusOK, authResponse{ID: user.ID, Email: user.Email, Token: token})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.ClearJWTCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type blockedCountriesRequest struct {
	Countries []string `json:"countries"`
}

// UpdateBlockedCountries sets the owner's global geoblock list. At access
// time it is unioned with the per-file list.
func (h *AuthHandler) UpdateBlockedCountries(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req blockedCountriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	countries, err := h.auth.UpdateBlockedCountries(user.ID, req.Countries)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"blocked_countries": countries})
}
