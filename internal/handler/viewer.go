package handler

import (
	"net/http"

	"github.com/sealdrop/sealdrop/internal/geo"
	"github.com/sealdrop/sealdrop/internal/middleware"
	"github.com/sealdrop/sealdrop/internal/service"
)

// viewerIdentity is the recipient-supplied identity on access attempts.
// Viewers are anonymous to the auth layer; policy works off these fields.
type viewerIdentity struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Password    string `json:"password"`
	Fingerprint string `json:"fingerprint"`
}

// buildViewer fills in the request-derived fields: client IP, user agent
// and resolved country. Resolution failure leaves Country empty, which the
// policy layer treats as unknown origin.
func buildViewer(r *http.Request, resolver geo.Resolver, id viewerIdentity) service.Viewer {
	ip := middleware.ClientIP(r)
	return service.Viewer{
		Email:       id.Email,
		Name:        id.Name,
		Password:    id.Password,
		Fingerprint: id.Fingerprint,
		IPAddress:   ip,
		UserAgent:   r.UserAgent(),
		Country:     resolver.Country(r.Context(), ip),
	}
}
