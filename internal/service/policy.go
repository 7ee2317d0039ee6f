package service

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Denial reasons, in evaluation order. The order is part of the contract:
// the first failing check wins, so denial reasons stay consistent across
// attempts and auditable.
const (
	DenyDestroyed   = "destroyed"
	DenyExpired     = "expired"
	DenyViewLimit   = "view_limit_reached"
	DenyGeoUnknown  = "geo_unknown"
	DenyGeoblocked  = "geoblocked"
	DenyBadPassword = "bad_password"
	DenyNotApproved = "not_approved"
)

// Decision is the outcome of one authorization pass.
type Decision struct {
	Allowed bool
	Reason  string
	Status  int // HTTP status for the denial
}

func allow() Decision {
	return Decision{Allowed: true, Status: http.StatusOK}
}

func deny(reason string, status int) Decision {
	return Decision{Reason: reason, Status: status}
}

// Viewer is the requesting side of an access attempt: identity, supplied
// credentials, and resolved location. Country is empty when resolution
// failed; under an active block list that denies (fail closed).
type Viewer struct {
	Email       string
	Name        string
	Password    string
	Fingerprint string
	IPAddress   string
	UserAgent   string
	Country     string
}

// normalizeCountries uppercases and dedupes ISO country codes before they
// are stored, so evaluation can compare them directly.
func normalizeCountries(codes []string) model.StringList {
	seen := make(map[string]bool, len(codes))
	var out model.StringList
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

// PolicyService decides whether a decrypt may proceed. It has no side
// effects; the view counter increment happens in the decrypt pipeline after
// an Allow.
type PolicyService struct {
	requestRepo repository.AccessRequestRepository
}

func NewPolicyService(requestRepo repository.AccessRequestRepository) *PolicyService {
	return &PolicyService{requestRepo: requestRepo}
}

// Authorize runs the policy checks in their fixed order: destroyed, expired,
// view limit, geofence, password, allow list, approved request. A correct
// password short-circuits the allow-list and approval checks.
func (s *PolicyService) Authorize(file *model.File, owner *model.User, viewer Viewer) Decision {
	if file.IsDestroyed {
		return deny(DenyDestroyed, http.StatusGone)
	}

	if file.Expired(time.Now()) {
		return deny(DenyExpired, http.StatusGone)
	}

	if file.ViewLimitReached() {
		return deny(DenyViewLimit, http.StatusGone)
	}

	// Geofence: the file list and the owner's global list both apply.
	blocked := append(model.StringList{}, owner.BlockedCountries...)
	blocked = append(blocked, file.BlockedCountries...)
	if len(blocked) > 0 {
		if viewer.Country == "" {
			// Absence of information under an active policy never
			// defaults to allow.
			return deny(DenyGeoUnknown, http.StatusForbidden)
		}
		if blocked.Contains(viewer.Country) {
			return deny(DenyGeoblocked, http.StatusForbidden)
		}
	}

	if file.RequirePassword() {
		err := bcrypt.CompareHashAndPassword([]byte(*file.PasswordHash), []byte(viewer.Password))
		if err != nil {
			return deny(DenyBadPassword, http.StatusForbidden)
		}
		return allow()
	}

	if file.AllowedEmails.Contains(viewer.Email) {
		return allow()
	}

	request, err := s.requestRepo.ByFileAndEmail(file.ID, viewer.Email)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return deny(DenyNotApproved, http.StatusForbidden)
		}
		// Repository failure resolves to the more restrictive branch.
		return deny(DenyNotApproved, http.StatusForbidden)
	}
	if request.Status != model.RequestApproved {
		return deny(DenyNotApproved, http.StatusForbidden)
	}

	return allow()
}
