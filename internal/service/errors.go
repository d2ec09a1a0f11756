package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken is returned by TokenCodec.Verify for every malformed,
	// forged, expired or wrongly signed token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrEmptySecret is returned when a codec is built without a signing key.
	ErrEmptySecret = errors.New("token signing secret is empty")

	// ErrUnauthenticated matches every authentication rejection. The
	// concrete error is a *Rejection carrying the internal reason.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrForbidden is returned when an authenticated admin's role lacks the
	// required permission.
	ErrForbidden = errors.New("forbidden")

	// ErrAccountUnavailable covers both an unknown admin id and a
	// deactivated account. Callers must not distinguish the two.
	ErrAccountUnavailable = errors.New("account not found or inactive")

	// ErrDirectoryUnavailable marks transient failures of the directory or
	// the revocation store. It is neither an authentication nor an
	// authorization decision; callers may retry.
	ErrDirectoryUnavailable = errors.New("directory unavailable")

	// ErrInvalidLogin is the single error for every failed login.
	ErrInvalidLogin = errors.New("invalid email or password")
)

// Reason is the internal cause of an authentication rejection. It is
// logged and counted but never sent to the client.
type Reason string

const (
	ReasonMissingCredential  Reason = "missing_credential"
	ReasonBadCredential      Reason = "bad_credential"
	ReasonRevoked            Reason = "revoked"
	ReasonAccountUnavailable Reason = "account_unavailable"
)

// Rejection is the error returned by the authentication gate. It matches
// ErrUnauthenticated with errors.Is and unwraps to its cause.
type Rejection struct {
	Reason Reason
	Cause  error
}

func (r *Rejection) Error() string {
	if r.Cause != nil {
		return fmt.Sprintf("not authenticated (%s): %v", r.Reason, r.Cause)
	}
	return fmt.Sprintf("not authenticated (%s)", r.Reason)
}

func (r *Rejection) Unwrap() error { return r.Cause }

// Is reports whether target is ErrUnauthenticated.
func (r *Rejection) Is(target error) bool { return target == ErrUnauthenticated }

// RejectionReason extracts the reason from an authentication error. ok is
// false when err is not a rejection.
func RejectionReason(err error) (Reason, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason, true
	}
	return "", false
}
