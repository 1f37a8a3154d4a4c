package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeInvalidState   ErrorCode = "INVALID_STATE"
	CodeConflict       ErrorCode = "CONFLICT"
	CodeNoAvailability ErrorCode = "NO_AVAILABILITY"
	CodePrecondition   ErrorCode = "PRECONDITION_FAILED"
	CodeProvider       ErrorCode = "PROVIDER_ERROR"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its code.
var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrConflict       = errors.New("conflict")
	ErrNoAvailability = errors.New("no availability")
	ErrPrecondition   = errors.New("precondition failed")
	ErrProvider       = errors.New("lock provider error")
)

var sentinels = map[ErrorCode]error{
	CodeValidation:     ErrValidation,
	CodeNotFound:       ErrNotFound,
	CodeInvalidState:   ErrInvalidState,
	CodeConflict:       ErrConflict,
	CodeNoAvailability: ErrNoAvailability,
	CodePrecondition:   ErrPrecondition,
	CodeProvider:       ErrProvider,
}

// Error is the application error carried across service boundaries.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return sentinels[e.Code] == target
}

func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Validation(format string, args ...any) error {
	return NewError(CodeValidation, fmt.Sprintf(format, args...), nil)
}

func NotFound(format string, args ...any) error {
	return NewError(CodeNotFound, fmt.Sprintf(format, args...), nil)
}

func InvalidState(format string, args ...any) error {
	return NewError(CodeInvalidState, fmt.Sprintf(format, args...), nil)
}

func Conflict(format string, args ...any) error {
	return NewError(CodeConflict, fmt.Sprintf(format, args...), nil)
}

func NoAvailability(format string, args ...any) error {
	return NewError(CodeNoAvailability, fmt.Sprintf(format, args...), nil)
}

func Precondition(format string, args ...any) error {
	return NewError(CodePrecondition, fmt.Sprintf(format, args...), nil)
}

// Provider wraps a smart-lock failure; the cause keeps the provider message for diagnostics.
func Provider(message string, cause error) error {
	return NewError(CodeProvider, message, cause)
}

// CodeOf returns the code of the first *Error in the chain, or "" when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
