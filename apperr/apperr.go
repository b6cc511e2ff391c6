// Package apperr defines the error taxonomy shared by services and HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTimeout
)

// Error is a domain error with a stable machine-readable Code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so that sentinels compare equal to errors built from them.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Withf returns a copy of e with a formatted message, keeping kind and code.
func (e *Error) Withf(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e that carries cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func Validation(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Code: "validation_failed", Message: message, Details: details}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: "not_found", Message: what + " not found"}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "forbidden", Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: "unauthorized", Message: message}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: "internal server error", Err: cause}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Domain errors.
var (
	ErrEmptyGroup          = New(KindValidation, "empty_group", "group has no participants")
	ErrParticipantNotFound = New(KindNotFound, "participant_not_found", "one or more participants do not exist")
	ErrNotPending          = New(KindConflict, "not_pending", "user has no pending join request")
	ErrConflict            = New(KindConflict, "version_conflict", "resource was modified concurrently, retry")
	ErrInvalidAmount       = New(KindValidation, "invalid_amount", "amount must be positive, at most 1000000000000 and have at most 2 decimal places")
	ErrSelfTransfer        = New(KindValidation, "self_transfer", "sender and receiver must differ")
	ErrInsufficientFunds   = New(KindConflict, "insufficient_funds", "balance too low for this transfer")
	ErrAlreadySettled      = New(KindConflict, "already_settled", "share is already settled")
	ErrAlreadyMember       = New(KindConflict, "already_member", "user is already a member")
	ErrAlreadyPending      = New(KindConflict, "already_pending", "join request is already pending")
	ErrAlreadyRegistered   = New(KindConflict, "already_registered", "user is already registered for this event")
	ErrEventFull           = New(KindConflict, "event_full", "event has reached capacity")
	ErrIdempotencyMismatch = New(KindConflict, "idempotency_mismatch", "idempotency key was used with different parameters")
	ErrEmailTaken          = New(KindConflict, "email_taken", "email is already registered")
	ErrClubNameTaken       = New(KindConflict, "club_name_taken", "club name is already taken")
	ErrInvalidCredentials  = New(KindUnauthorized, "invalid_credentials", "invalid email or password")
	ErrTimeout             = New(KindTimeout, "timeout", "request timed out")
)
