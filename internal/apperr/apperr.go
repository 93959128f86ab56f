package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindInvalidCredential
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_failed"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidCredential:
		return "invalid_credential"
	}
	return "unexpected"
}

// Operational 可以把 Msg 原样返回给调用方
func (k Kind) Operational() bool { return k != KindUnexpected }

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 统一错误对象：Kind 决定 HTTP 状态，Msg 面向调用方，Err 只进日志
type Error struct {
	Kind   Kind
	Msg    string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string, fields ...FieldError) error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: fields}
}
func Unauthenticated(msg string) error   { return &Error{Kind: KindUnauthenticated, Msg: msg} }
func Forbidden(msg string) error         { return &Error{Kind: KindForbidden, Msg: msg} }
func NotFound(msg string) error          { return &Error{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) error          { return &Error{Kind: KindConflict, Msg: msg} }
func InvalidCredential(msg string) error { return &Error{Kind: KindInvalidCredential, Msg: msg} }
func Internal(msg string, err error) error {
	return &Error{Kind: KindUnexpected, Msg: msg, Err: err}
}

// KindOf 未分类的错误一律视为 Unexpected
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

func Is(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// PublicMessage 返回可以给调用方看的文案
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind.Operational() && e.Msg != "" {
		return e.Msg
	}
	return "something went wrong"
}

func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
