// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindAlreadySwiped   Kind = "ALREADY_SWIPED"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindUpstream        Kind = "UPSTREAM"
	KindTimeout         Kind = "TIMEOUT"
	KindCanceled        Kind = "CANCELED"
	KindInternal        Kind = "INTERNAL"
)

// Error is the typed error every service returns across its boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, svcErr.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind && t.Message == "" && t.Err == nil
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrAlreadySwiped   = &Error{Kind: KindAlreadySwiped}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrUpstream        = &Error{Kind: KindUpstream}
	ErrInternal        = &Error{Kind: KindInternal}
)

// Map converts repo/infra errors into typed service errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	switch {
	case errors.As(err, &typed):
		return err

	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Message: "record not found", Err: err}

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindConflict, Message: "record already exists", Err: err}

	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &Error{Kind: KindInvalidArgument, Message: "referenced record does not exist", Err: err}

	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}

	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCanceled, Message: "request was canceled", Err: err}

	default:
		return &Error{Kind: KindInternal, Message: "internal error", Err: err}
	}
}

// KindOf returns the kind of err after mapping.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(Map(err), &typed) {
		return typed.Kind
	}
	return KindInternal
}

// HTTPStatus returns the response status for err.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindAlreadySwiped, KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to show a client. Internal causes are hidden.
func PublicMessage(err error) string {
	var typed *Error
	if !errors.As(Map(err), &typed) {
		return "internal error"
	}
	if typed.Kind == KindInternal {
		return "internal error"
	}
	if typed.Message == "" {
		return string(typed.Kind)
	}
	return typed.Message
}

// InvalidArgument creates an InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

// Unauthenticated is returned when no valid session is present.
func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Forbidden is returned when the session lacks the role a route needs.
func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// AlreadySwiped marks a repeated decision on the same pair.
func AlreadySwiped() error {
	return &Error{Kind: KindAlreadySwiped, Message: "already swiped"}
}

// NotFound covers both missing rows and rows owned by someone else.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict creates a Conflict error.
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Upstream wraps a failure of an external collaborator.
func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}
