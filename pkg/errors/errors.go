// Package errors carries the typed error model shared by services and the
// HTTP layer. A Code decides the response status and public message.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is rendered to API callers.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// catalog is ordered: when two codes share a status, the earlier one wins
// in CodeForStatus.
var catalog = []struct {
	code Code
	meta Metadata
}{
	{CodeValidation, Metadata{http.StatusBadRequest, false, "validation failed", true}},
	{CodeUnauthorized, Metadata{http.StatusUnauthorized, false, "authentication required", false}},
	{CodeForbidden, Metadata{http.StatusForbidden, false, "access denied", false}},
	{CodeNotFound, Metadata{http.StatusNotFound, false, "resource not found", false}},
	{CodeConflict, Metadata{http.StatusConflict, true, "conflict detected", true}},
	{CodeStateConflict, Metadata{http.StatusUnprocessableEntity, false, "state transition disallowed", true}},
	{CodeIdempotency, Metadata{http.StatusConflict, false, "idempotency key reused", true}},
	{CodeRateLimit, Metadata{http.StatusTooManyRequests, false, "rate limit exceeded", false}},
	{CodeInternal, Metadata{http.StatusInternalServerError, true, "internal server error", false}},
	{CodeDependency, Metadata{http.StatusServiceUnavailable, true, "dependency unavailable", true}},
}

var (
	byCode   = make(map[Code]Metadata, len(catalog))
	byStatus = map[int]Code{
		http.StatusBadGateway:     CodeDependency,
		http.StatusGatewayTimeout: CodeDependency,
	}
)

func init() {
	for _, entry := range catalog {
		byCode[entry.code] = entry.meta
		if _, taken := byStatus[entry.meta.HTTPStatus]; !taken {
			byStatus[entry.meta.HTTPStatus] = entry.code
		}
	}
}

// MetadataFor falls back to the internal error entry for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := byCode[code]; ok {
		return meta
	}
	return byCode[CodeInternal]
}

// CodeForStatus maps an HTTP status back to the closest code. The API
// client uses it to rebuild typed errors from error envelopes.
func CodeForStatus(status int) Code {
	if code, ok := byStatus[status]; ok {
		return code
	}
	return CodeInternal
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches err as the cause. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	e := New(code, message)
	e.cause = err
	return e
}

// WithDetails sets the payload rendered under "details" when the code
// allows it.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) Retryable() bool { return MetadataFor(e.Code()).Retryable }

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf treats untyped errors as internal.
func CodeOf(err error) Code { return As(err).Code() }

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
