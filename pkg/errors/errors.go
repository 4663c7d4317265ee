package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes, one per failure class the poll cycle distinguishes.
const (
	ErrConfig ErrorCode = iota + 1000
	ErrAdapter
	ErrStorageUnavailable
	ErrDelivery
	ErrTemplate
	ErrAuthentication
	ErrInternal
)

// Error constructors
func NewConfig(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConfig,
		Message: message,
		Err:     err,
	}
}

func NewAdapter(message string, err error) *AppError {
	return &AppError{
		Code:    ErrAdapter,
		Message: message,
		Err:     err,
	}
}

func NewStorageUnavailable(err error) *AppError {
	return &AppError{
		Code:    ErrStorageUnavailable,
		Message: "identity store unavailable",
		Err:     err,
	}
}

func NewDelivery(sink string, err error) *AppError {
	return &AppError{
		Code:    ErrDelivery,
		Message: fmt.Sprintf("delivery via %s failed", sink),
		Err:     err,
	}
}

func NewTemplate(message string, err error) *AppError {
	return &AppError{
		Code:    ErrTemplate,
		Message: message,
		Err:     err,
	}
}

func NewAuthentication(err error) *AppError {
	return &AppError{
		Code:    ErrAuthentication,
		Message: "authentication failed",
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal error",
		Err:     err,
	}
}

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsStorageUnavailable(err error) bool { return HasCode(err, ErrStorageUnavailable) }
func IsAuthentication(err error) bool     { return HasCode(err, ErrAuthentication) }
func IsConfig(err error) bool             { return HasCode(err, ErrConfig) }
func IsAdapter(err error) bool            { return HasCode(err, ErrAdapter) }
func IsTemplate(err error) bool           { return HasCode(err, ErrTemplate) }
