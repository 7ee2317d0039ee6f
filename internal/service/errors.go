package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotOwner           = errors.New("caller does not own this resource")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrBadConfirmation    = errors.New("confirmation phrase does not match")
	ErrApprovalDisabled   = errors.New("file does not accept access requests")

	// ErrFileDestroyed distinguishes a killed file (gone, permanently)
	// from one that never existed.
	ErrFileDestroyed = errors.New("file has been destroyed")
)

// DenialError carries a policy decision through the error return so handlers
// can map it to the right status while only ever exposing the reason code,
// not the evaluation detail.
type DenialError struct {
	Decision Decision
}

func (e *DenialError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Decision.Reason)
}

// AsDenial unwraps a DenialError if err is one.
func AsDenial(err error) (*DenialError, bool) {
	var denial *DenialError
	if errors.As(err, &denial) {
		return denial, true
	}
	return nil, false
}
