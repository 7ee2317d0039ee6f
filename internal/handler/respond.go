package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sealdrop/sealdrop/internal/crypto"
	"github.com/sealdrop/sealdrop/internal/repository"
	"github.com/sealdrop/sealdrop/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service and repository errors onto the HTTP
// taxonomy. Policy denials keep their reason code but nothing more; the
// audit log holds the detail.
func writeServiceError(w http.ResponseWriter, err error) {
	if denial, ok := service.AsDenial(err); ok {
		writeJSON(w, denial.Decision.Status, map[string]string{
			"error":  "access denied",
			"reason": denial.Decision.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrFileNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrRequestNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrFileDestroyed):
		writeError(w, http.StatusGone, "file has been destroyed")
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrBadConfirmation):
		writeError(w, http.StatusBadRequest, "confirmation phrase does not match")
	case errors.Is(err, service.ErrApprovalDisabled):
		writeError(w, http.StatusForbidden, "file does not accept access requests")
	case errors.Is(err, repository.ErrRequestDecided):
		writeError(w, http.StatusConflict, "request already decided")
	case errors.Is(err, crypto.ErrKeyMissing):
		// Corruption or a racing kill; fatal and non-retryable, distinct
		// from a destroyed file.
		slog.Error("key material missing", "error", err)
		writeError(w, http.StatusInternalServerError, "decryption key unavailable")
	case errors.Is(err, crypto.ErrAuthenticationFailed):
		slog.Error("ciphertext authentication failed", "error", err)
		writeError(w, http.StatusInternalServerError, "decryption failed")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
