// Package apperrors classifies failures so handlers can map them to responses.
package apperrors

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error class.
type Code string

const (
	CodeValidation Code = "VALIDATION"
	CodeNotFound   Code = "NOT_FOUND"
	CodeForbidden  Code = "FORBIDDEN"
	CodeBackend    Code = "BACKEND"
)

// Error carries a code, a user-facing message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Validation(message string) *Error { return New(CodeValidation, message) }
func NotFound(message string) *Error   { return New(CodeNotFound, message) }
func Forbidden(message string) *Error  { return New(CodeForbidden, message) }

// Backend wraps a store or storage failure; the cause's message is kept.
func Backend(message string, err error) *Error { return Wrap(CodeBackend, message, err) }

// CodeOf returns the code of the first *Error in err's chain, or CodeBackend.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeBackend
}

// HTTPStatus maps a code to a response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
