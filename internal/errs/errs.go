// Package errs contains the error taxonomy shared by repositories, services and transports.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport-level mapping.
type Kind uint8

const (
	// KindInternal covers storage and infrastructure failures.
	KindInternal Kind = iota
	// KindUnauthenticated means a missing, invalid or expired credential.
	KindUnauthenticated
	// KindForbidden means a valid credential that may not perform the operation.
	KindForbidden
	// KindNotFound means the resource is absent or deliberately hidden.
	KindNotFound
	// KindConflict means a uniqueness or last-admin style violation.
	KindConflict
	// KindSessionInvalid means the refresh session is revoked, expired or unknown.
	KindSessionInvalid
	// KindRateLimited means login is temporarily blocked.
	KindRateLimited
	// KindInvalidArgument means the request payload failed validation.
	KindInvalidArgument
)

var kindNames = [...]string{
	KindInternal:        "internal",
	KindUnauthenticated: "unauthenticated",
	KindForbidden:       "forbidden",
	KindNotFound:        "not_found",
	KindConflict:        "conflict",
	KindSessionInvalid:  "session_invalid",
	KindRateLimited:     "rate_limited",
	KindInvalidArgument: "invalid_argument",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is a classified error. Sentinels below are compared with errors.Is.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Sentinels used across layers. Messages are safe to show to callers.
var (
	// ErrUnauthenticated is returned for any credential failure, including bad passwords.
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Msg: "unauthenticated"}

	// ErrInvalidToken is returned by the token service; the reason is never exposed.
	ErrInvalidToken = &Error{Kind: KindUnauthenticated, Msg: "invalid token"}

	// ErrForbidden is returned for principal-kind, enrolment and ownership failures alike.
	ErrForbidden = &Error{Kind: KindForbidden, Msg: "forbidden"}

	// ErrNotFound indicates the requested entity does not exist (or is not visible).
	ErrNotFound = &Error{Kind: KindNotFound, Msg: "not found"}

	// ErrConflict indicates a unique constraint violation or a protected last admin.
	ErrConflict = &Error{Kind: KindConflict, Msg: "conflict"}

	// ErrSessionInvalid indicates the refresh session can no longer be used.
	ErrSessionInvalid = &Error{Kind: KindSessionInvalid, Msg: "session invalid"}

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = &Error{Kind: KindRateLimited, Msg: "rate limited"}
)

// KindOf reports the kind of err; unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return KindInvalidArgument
	}
	return KindInternal
}

// ValidationError wraps a payload validation failure.
type ValidationError struct{ Err error }

func (v *ValidationError) Error() string { return "validation: " + v.Err.Error() }
func (v *ValidationError) Unwrap() error { return v.Err }

// Invalid wraps err as an InvalidArgument error; nil stays nil.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}
