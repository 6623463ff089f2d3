// Package gwerrors defines the gateway's error kinds (spec.md §7) and their
// mapping onto downstream HTTP status codes. It is grounded on the
// teacher's kind-tagged rich-error pattern
// (pkg/providers/common/errors/rich_error.go) and its AuthError shape
// (pkg/auth/*.go), simplified to the fixed set of kinds spec.md names
// instead of a general context/snapshot chain.
package gwerrors

import (
	"fmt"
	"net/http"
)

// Kind is one of the error kinds enumerated in spec.md §7. It is a kind,
// not a type hierarchy: callers switch on Kind rather than type-asserting.
type Kind string

const (
	BadRequest         Kind = "bad_request"
	Unauthorized       Kind = "unauthorized"
	Forbidden          Kind = "forbidden"
	NoTokenAvailable   Kind = "no_token_available"
	AuthRejected       Kind = "auth_rejected"
	UpstreamTransient  Kind = "upstream_transient"
	CredentialMissing  Kind = "credential_missing"
	ProtocolViolation  Kind = "protocol_violation"
	DownstreamCanceled Kind = "downstream_cancelled"
)

// Error is the gateway's error value: a Kind plus a human message plus an
// optional wrapped cause and HTTP status carried over from upstream.
type Error struct {
	Kind Kind
	// Msg is the human-readable message. When the underlying upstream
	// response carried a "reason" field (spec.md §7), it is folded in
	// here by the caller before constructing the Error.
	Msg string
	// Status is the upstream (or refresh-endpoint) HTTP status, when
	// meaningful to preserve (401/403/404/429); zero otherwise.
	Status int
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds an *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// WithStatus attaches an upstream HTTP status to the error.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// Of extracts the Kind of err if it is (or wraps) a *Error, and reports ok.
func Of(err error) (Kind, bool) {
	var e *Error
	if asError(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// HTTPStatus maps a Kind (and, for streaming exhaustion, a streaming flag)
// onto the downstream status code spec.md §7 and §6.1 prescribe.
// streaming only matters for UpstreamTransient exhaustion: 504 for
// streaming, 502 for non-streaming.
func HTTPStatus(kind Kind, streaming bool) int {
	switch kind {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NoTokenAvailable:
		return http.StatusServiceUnavailable
	case AuthRejected:
		return http.StatusBadGateway
	case UpstreamTransient:
		if streaming {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case CredentialMissing:
		return http.StatusServiceUnavailable
	case ProtocolViolation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
