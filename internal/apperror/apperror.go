// Package apperror defines the stable error kinds surfaced by the API and
// the job pipeline. Handlers translate kinds into HTTP statuses; callers
// inside the core match on kinds with KindOf.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation           Kind = "ValidationError"
	KindUnauthenticated      Kind = "Unauthenticated"
	KindInvalidCredential    Kind = "InvalidCredential"
	KindExpiredCredential    Kind = "ExpiredCredential"
	KindUserNotFound         Kind = "UserNotFound"
	KindFeatureNotAvailable  Kind = "FeatureNotAvailable"
	KindAccountInactive      Kind = "AccountInactive"
	KindAgentUnavailable     Kind = "AgentUnavailable"
	KindAgentNotFound        Kind = "AgentNotFound"
	KindProviderNotSupported Kind = "ProviderNotSupported"
	KindUnknownProvider      Kind = "UnknownProvider"
	KindNoFallbackAvailable  Kind = "NoFallbackAvailable"
	KindAllProvidersFailed   Kind = "AllProvidersFailed"
	KindSpendingLimit        Kind = "SpendingLimitExceeded"
	KindJobNotFound          Kind = "JobNotFound"
	KindUploadNotFound       Kind = "UploadNotFound"
	KindInvalidTransition    Kind = "InvalidTransition"
	KindStoreUnavailable     Kind = "StoreUnavailable"
	KindInternal             Kind = "InternalServerError"
)

// Error carries a stable kind plus a human-readable message. The wrapped
// cause, if any, is for logs and diagnostics only and never leaves the
// process boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error
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

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, or KindInternal if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the user-facing message for err. Errors without a kind
// map to a generic message so that internals do not leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindInvalidTransition, KindProviderNotSupported:
		return http.StatusBadRequest
	case KindUnauthenticated, KindInvalidCredential, KindExpiredCredential:
		return http.StatusUnauthorized
	case KindSpendingLimit:
		return http.StatusPaymentRequired
	case KindFeatureNotAvailable, KindAccountInactive:
		return http.StatusForbidden
	case KindUserNotFound, KindAgentUnavailable, KindAgentNotFound,
		KindJobNotFound, KindUploadNotFound:
		return http.StatusNotFound
	case KindUnknownProvider, KindNoFallbackAvailable, KindAllProvidersFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
