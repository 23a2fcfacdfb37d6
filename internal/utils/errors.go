package utils

import (
	"errors"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

func (appErr *AppError) Unwrap() error {
	return appErr.Origin
}

// Standard error codes for the application
const (
	// Caller mistakes, knowable before any I/O
	ErrInvalidInput = "INVALID_INPUT"
	ErrNotFound     = "NOT_FOUND"

	// Authentication/Authorization errors
	ErrUnauthorized = "UNAUTHORIZED"
	ErrForbidden    = "FORBIDDEN" // Authenticated but not the owner
	ErrInvalidToken = "INVALID_TOKEN"

	// Collaborator failures
	ErrStoreUnavailable    = "STORE_UNAVAILABLE"
	ErrNotificationFailure = "NOTIFICATION_FAILURE"

	// Rate limiting
	ErrTooManyRequests = "TOO_MANY_REQUESTS"
)

// GenericFailureMessage is shown to end users for any failure that is not
// their own input.
const GenericFailureMessage = "Something went wrong. Please try again or contact support directly."

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidInput,
		Message: message,
	}
}

func NewStoreUnavailableError(op string, originalErr error) *AppError {
	return &AppError{
		Code:    ErrStoreUnavailable,
		Message: "store unavailable: " + op,
		Origin:  originalErr,
	}
}

func NewNotificationError(originalErr error) *AppError {
	return &AppError{
		Code:    ErrNotificationFailure,
		Message: "notification delivery failed",
		Origin:  originalErr,
	}
}

func NewNotFoundError(what string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: what + " not found",
	}
}

func NewForbiddenError(reason string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: "Forbidden: " + reason,
	}
}

func NewUnauthorizedError(reason string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "Unauthorized: " + reason,
	}
}

// StoreError wraps err as STORE_UNAVAILABLE unless it already carries an
// application code.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return NewStoreUnavailableError(op, err)
}

// Helper method to check if an error is of a specific type
func IsErrorCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ErrorCode returns the application code carried by err, or "" if none.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Helper method to check if an error is related to authentication
func IsAuthError(err error) bool {
	switch ErrorCode(err) {
	case ErrUnauthorized, ErrForbidden, ErrInvalidToken:
		return true
	}
	return false
}

// PublicMessage is the text safe to show an end user. Input problems keep
// their specific message; everything else collapses to the generic one.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case ErrInvalidInput, ErrNotFound, ErrForbidden, ErrUnauthorized, ErrInvalidToken, ErrTooManyRequests:
			return appErr.Message
		}
	}
	return GenericFailureMessage
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrUnauthorized, ErrInvalidToken:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	case ErrNotificationFailure:
		return http.StatusBadGateway
	case ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
