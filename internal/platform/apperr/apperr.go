// Package apperr define la taxonomía de errores de la API y su mapeo a HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind uint8

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidArgument
	KindUnauthenticated
	KindForbidden
	KindInvalidState
	KindConflict
	KindUnavailable
	KindTooManyRequests
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// HTTPStatus traduce un Kind a status HTTP.
func HTTPStatus(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidArgument, KindInvalidState:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FieldError es un error de validación asociado a un campo del payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	kind   Kind
	msg    string
	fields []FieldError
	cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Message() string { return e.msg }

func (e *Error) Fields() []FieldError { return e.fields }

// Is permite comparar contra sentinels del mismo kind y mensaje.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == t.kind && e.msg == t.msg
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{kind: kind, msg: msg, cause: cause}
}

func NotFound(msg string) *Error        { return New(KindNotFound, msg) }
func Unauthenticated(msg string) *Error { return New(KindUnauthenticated, msg) }
func Forbidden(msg string) *Error       { return New(KindForbidden, msg) }
func InvalidState(msg string) *Error    { return New(KindInvalidState, msg) }
func Conflict(msg string) *Error        { return New(KindConflict, msg) }
func TooManyRequests(msg string) *Error { return New(KindTooManyRequests, msg) }

func InvalidArgument(msg string, fields ...FieldError) *Error {
	return &Error{kind: KindInvalidArgument, msg: msg, fields: fields}
}

func Unavailable(cause error) *Error {
	return Wrap(KindUnavailable, "service unavailable", cause)
}

func Internal(cause error) *Error {
	return Wrap(KindInternal, "internal error", cause)
}

// KindOf devuelve el Kind del primer *Error en la cadena; KindInternal si no hay.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// Is reporta si err (o alguno envuelto) es del kind indicado.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// IsServerFault indica si el error debe loguearse como falla del servidor.
func IsServerFault(err error) bool {
	switch KindOf(err) {
	case KindInternal, KindUnavailable:
		return true
	default:
		return false
	}
}
