package faults

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by how the caller may recover from it.
type Kind string

const (
	// KindValidation marks malformed input detected before any server call.
	KindValidation Kind = "validation"
	// KindTransient marks network/5xx failures, retryable with the same input.
	KindTransient Kind = "transient"
	// KindAuth marks rejected credentials (wrong OTP, mismatched token),
	// retryable only with corrected input.
	KindAuth Kind = "auth"
	// KindNotFound marks unknown referenced entities (date, ticket).
	KindNotFound Kind = "not_found"
	// KindConflict marks seats/dates no longer available; the caller must
	// re-select, not resubmit the same payload.
	KindConflict Kind = "conflict"
)

// Fault is the failure type shared by the workflow core and the HTTP layer.
type Fault struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// New creates a fault of the given kind.
func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// Wrap creates a fault of the given kind around an underlying error.
func Wrap(kind Kind, message string, err error) *Fault {
	return &Fault{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Fault { return New(KindValidation, message) }
func Transient(message string) *Fault  { return New(KindTransient, message) }
func Auth(message string) *Fault       { return New(KindAuth, message) }
func NotFound(message string) *Fault   { return New(KindNotFound, message) }
func Conflict(message string) *Fault   { return New(KindConflict, message) }

// KindOf extracts the failure kind from an error chain. Unclassified errors
// are treated as transient so callers are always offered a retry path.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindTransient
}

// MessageOf extracts the human-readable message from an error chain.
func MessageOf(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a failure kind to the HTTP status code served for it.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

// FromHTTPStatus maps an HTTP status code back to a failure kind. It is the
// inverse used by the outbound client so both sides agree on retryability.
func FromHTTPStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindTransient
	}
}
