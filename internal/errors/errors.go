package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeNotFound              ErrorType = "NOT_FOUND"
	ErrorTypeValidation            ErrorType = "VALIDATION"
	ErrorTypeInternal              ErrorType = "INTERNAL"
	ErrorTypeIO                    ErrorType = "IO"
	ErrorTypeNotUTF8               ErrorType = "NOT_UTF8"
	ErrorTypeRepositoryUnavailable ErrorType = "REPOSITORY_UNAVAILABLE"
	ErrorTypeOutOfRange            ErrorType = "OUT_OF_RANGE"
	ErrorTypeInvalidRange          ErrorType = "INVALID_RANGE"
)

// Sentinels for errors.Is; an *Error matches the sentinel of its Type.
var (
	ErrNotFound              = &Error{Type: ErrorTypeNotFound}
	ErrValidation            = &Error{Type: ErrorTypeValidation}
	ErrInternal              = &Error{Type: ErrorTypeInternal}
	ErrIO                    = &Error{Type: ErrorTypeIO}
	ErrNotUTF8               = &Error{Type: ErrorTypeNotUTF8}
	ErrRepositoryUnavailable = &Error{Type: ErrorTypeRepositoryUnavailable}
	ErrOutOfRange            = &Error{Type: ErrorTypeOutOfRange}
	ErrInvalidRange          = &Error{Type: ErrorTypeInvalidRange}
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Path    string    `json:"path,omitempty"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithPath returns a copy of e bound to path.
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// TypeOf returns the type of the first *Error in err's chain, or
// ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// StatusCode maps err to an HTTP status.
func StatusCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

func Internal(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
		Err:     err,
	}
}

// IO wraps a read, write or permission failure.
func IO(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Message: message,
		Code:    http.StatusInternalServerError,
		Err:     err,
	}
}

func NotUTF8(path string) *Error {
	return &Error{
		Type:    ErrorTypeNotUTF8,
		Message: "content is not valid UTF-8 text",
		Code:    http.StatusUnprocessableEntity,
		Path:    path,
	}
}

func RepositoryUnavailable(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeRepositoryUnavailable,
		Message: message,
		Code:    http.StatusConflict,
		Err:     err,
	}
}

func OutOfRange(index, count int) *Error {
	return &Error{
		Type:    ErrorTypeOutOfRange,
		Message: fmt.Sprintf("hunk index %d out of range (diff has %d hunks)", index, count),
		Code:    http.StatusBadRequest,
		Details: map[string]int{"index": index, "count": count},
	}
}

func InvalidRange(start, end int) *Error {
	return &Error{
		Type:    ErrorTypeInvalidRange,
		Message: fmt.Sprintf("invalid line range %d-%d", start, end),
		Code:    http.StatusBadRequest,
		Details: map[string]int{"start": start, "end": end},
	}
}
