// Package apperr defines the error taxonomy shared by the ticket, OTP and
// payment services. Every failure that reaches an HTTP handler carries a
// stable Kind and a message that is safe to show to the caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable category of a failure.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindInvalidInput       Kind = "invalid_input"
	KindOTPInvalid         Kind = "otp_invalid"
	KindPreconditionFailed Kind = "precondition_failed"
	KindInvalidState       Kind = "invalid_state"
	KindRateLimited        Kind = "rate_limited"
	KindDeliveryFailed     Kind = "delivery_failed"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindInternal           Kind = "internal"
)

// Error is a categorized failure. Err holds the underlying cause and is never
// rendered to clients.
type Error struct {
	Kind    Kind
	Message string
	// WaitSeconds is set for KindRateLimited.
	WaitSeconds int
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NotFound(message string) *Error           { return New(KindNotFound, message) }
func Conflict(message string) *Error           { return New(KindConflict, message) }
func InvalidInput(message string) *Error       { return New(KindInvalidInput, message) }
func OTPInvalid(message string) *Error         { return New(KindOTPInvalid, message) }
func PreconditionFailed(message string) *Error { return New(KindPreconditionFailed, message) }
func InvalidState(message string) *Error       { return New(KindInvalidState, message) }
func Unauthorized(message string) *Error       { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error          { return New(KindForbidden, message) }

// RateLimited reports how many seconds the caller has to wait.
func RateLimited(message string, waitSeconds int) *Error {
	return &Error{Kind: KindRateLimited, Message: message, WaitSeconds: waitSeconds}
}

// DeliveryFailed wraps a notification gateway failure.
func DeliveryFailed(err error) *Error {
	return &Error{Kind: KindDeliveryFailed, Message: "Failed to send OTP. Please try again.", Err: err}
}

// Internal hides err behind a generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// KindOf returns the Kind of err, or KindInternal for uncategorized errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// From converts any error into an *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// HTTPStatus maps a Kind to the status code handlers respond with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvalidState:
		return http.StatusConflict
	case KindInvalidInput, KindOTPInvalid, KindPreconditionFailed:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindDeliveryFailed:
		return http.StatusBadGateway
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
