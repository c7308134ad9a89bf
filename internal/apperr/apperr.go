// Package apperr defines the error taxonomy shared by the domain packages.
// Handlers translate these into HTTP statuses; the domain never maps to
// status codes itself.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindValidation
	KindConflict
	KindForbidden
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) error   { return &Error{Kind: KindNotFound, Msg: msg} }
func Validation(msg string) error { return &Error{Kind: KindValidation, Msg: msg} }
func Conflict(msg string) error   { return &Error{Kind: KindConflict, Msg: msg} }
func Forbidden(msg string) error  { return &Error{Kind: KindForbidden, Msg: msg} }

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsNotFound(err error) bool   { return Is(err, KindNotFound) }
func IsValidation(err error) bool { return Is(err, KindValidation) }
func IsConflict(err error) bool   { return Is(err, KindConflict) }
func IsForbidden(err error) bool  { return Is(err, KindForbidden) }
