package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealdrop/sealdrop/internal/crypto"
	"github.com/sealdrop/sealdrop/internal/repository"
	"github.com/sealdrop/sealdrop/internal/service"
)

func TestWriteServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"file not found", repository.ErrFileNotFound, http.StatusNotFound},
		{"session not found", repository.ErrSessionNotFound, http.StatusNotFound},
		{"file destroyed", service.ErrFileDestroyed, http.StatusGone},
		{"not owner", service.ErrNotOwner, http.StatusForbidden},
		{"bad confirmation", service.ErrBadConfirmation, http.StatusBadRequest},
		{"approval disabled", service.ErrApprovalDisabled, http.StatusForbidden},
		{"request decided", repository.ErrRequestDecided, http.StatusConflict},
		{"key missing", crypto.ErrKeyMissing, http.StatusInternalServerError},
		{"auth failed", crypto.ErrAuthenticationFailed, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWriteServiceErrorDenialCarriesReasonOnly(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, &service.DenialError{
		Decision: service.Decision{Reason: service.DenyGeoUnknown, Status: http.StatusForbidden},
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, service.DenyGeoUnknown, body["reason"])
	// No detail beyond the reason code leaks to the viewer.
	assert.Len(t, body, 2)
}
