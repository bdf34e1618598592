// Package apperrors defines the error taxonomy shared by the planning core.
// Services return these so handlers can map them onto HTTP statuses without
// string matching.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindTransaction Kind = "transaction"
	KindDispatch    Kind = "dispatch"
	KindInternal    Kind = "internal"
)

// Error is a classified error. Err, when set, is the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Transaction wraps a store failure that the caller may retry.
func Transaction(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) == KindTransaction {
		return err
	}
	return &Error{Kind: KindTransaction, Message: "transaction failed", Err: err}
}

// Dispatch wraps an alert delivery failure.
func Dispatch(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) == KindDispatch {
		return err
	}
	return &Error{Kind: KindDispatch, Message: "alert dispatch failed", Err: err}
}

// KindOf returns the kind of the first classified error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

// HTTPStatus maps an error onto the status code handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTransaction:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
