// Package errors reifies the six-member result taxonomy used throughout the
// pipe/transport/codec stack (Ok, Fatal, InvalidSettings, NotImplemented,
// SendError, Timeout) as typed Go errors that compose with errors.Is/As.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// Code is one of the six outcomes a pipe or transport operation can report.
type Code int

const (
	// Ok indicates success. A successful operation returns a nil error, not
	// a Code value of Ok; Code is only meaningful on the failure path and
	// via CodeOf for callers that want the legacy enum-style result.
	Ok Code = iota
	Fatal
	InvalidSettings
	NotImplemented
	SendError
	Timeout
)

func (c Code) String() string {
	switch c {
	case Ok:
		return "ok"
	case Fatal:
		return "fatal"
	case InvalidSettings:
		return "invalid_settings"
	case NotImplemented:
		return "not_implemented"
	case SendError:
		return "send_error"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// codeMarker is implemented by every error type in this package so CodeOf
// can recover the taxonomy code through errors.As without a type switch per
// constructor.
type codeMarker interface {
	error
	code() Code
}

// Error is a generic pipe/transport-layer error carrying the failing
// operation name and an optional wrapped cause.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}
func (e *Error) Unwrap() error { return e.Err }
func (e *Error) code() Code    { return e.Code }

// New constructs an *Error for the given code, operation, and cause (cause
// may be nil).
func New(code Code, op string, cause error) error {
	return &Error{Code: code, Op: op, Err: cause}
}

// Constructors (encourage contextual wrapping with %w when used by callers).
func NewFatal(op string, cause error) error           { return New(Fatal, op, cause) }
func NewInvalidSettings(op string, cause error) error { return New(InvalidSettings, op, cause) }
func NewNotImplemented(op string) error               { return New(NotImplemented, op, nil) }
func NewSendError(op string, cause error) error       { return New(SendError, op, cause) }
func NewTimeout(op string) error                      { return New(Timeout, op, nil) }

// CodeOf recovers the taxonomy Code carried by err (directly, or via any
// errors.As-reachable cause). A nil err yields Ok; an opaque foreign error
// that carries no Code yields Fatal, matching the "unexpected thing"
// definition of Fatal in spec.md §7.
func CodeOf(err error) Code {
	if err == nil {
		return Ok
	}
	var cm codeMarker
	if stdErrors.As(err, &cm) {
		return cm.code()
	}
	return Fatal
}

// IsTimeout reports whether err is (or wraps) a Timeout-coded error.
func IsTimeout(err error) bool { return CodeOf(err) == Timeout }

// IsSendError reports whether err is (or wraps) a SendError-coded error.
func IsSendError(err error) bool { return CodeOf(err) == SendError }

// IsInvalidSettings reports whether err is (or wraps) an InvalidSettings error.
func IsInvalidSettings(err error) bool { return CodeOf(err) == InvalidSettings }

// IsNotImplemented reports whether err is (or wraps) a NotImplemented error.
func IsNotImplemented(err error) bool { return CodeOf(err) == NotImplemented }
