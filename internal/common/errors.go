package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents different types of errors in the system
type ErrorCode int

const (
	// General errors
	ErrInternal ErrorCode = iota + 1000
	ErrInvalidInput
	ErrNotFound
	ErrAlreadyExists
	ErrUnavailable

	// Authentication errors
	ErrUnauthorized ErrorCode = iota + 2000
	ErrForbidden
)

// AppError is an error carrying a code that the HTTP layer maps to a status
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewError creates a new AppError
func NewError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewErrorWithCause creates a new AppError with an underlying cause
func NewErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	e.Context[key] = value
	return e
}

// CodeOf returns the code of the first AppError in the chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatus maps an error to the status code returned to API clients.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrAlreadyExists:
		return http.StatusConflict
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors
func ErrInternalError(message string) *AppError {
	return NewError(ErrInternal, message)
}

func ErrInvalidInputError(message string) *AppError {
	return NewError(ErrInvalidInput, message)
}

func ErrInvalidInputf(format string, args ...interface{}) *AppError {
	return NewError(ErrInvalidInput, fmt.Sprintf(format, args...))
}

func ErrNotFoundError(message string) *AppError {
	return NewError(ErrNotFound, message)
}

func ErrAlreadyExistsError(message string) *AppError {
	return NewError(ErrAlreadyExists, message)
}

func ErrUnauthorizedError(message string) *AppError {
	return NewError(ErrUnauthorized, message)
}

func ErrForbiddenError(message string) *AppError {
	return NewError(ErrForbidden, message)
}

// RequireFields returns an invalid-input error naming the first empty field.
// Pairs are given as name, value.
func RequireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return ErrInvalidInputf("%s is required", pairs[i])
		}
	}
	return nil
}
