package models

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeNetwork           = "NETWORK"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeReactionIDMissing = "REACTION_ID_MISSING"
	CodeValidation        = "VALIDATION"
	CodeNotFound          = "NOT_FOUND"
	CodeMutationInFlight  = "MUTATION_IN_FLIGHT"
	CodeParentPending     = "PARENT_PENDING"
	CodeInternal          = "INTERNAL"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
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

// Is matches on Code so wrapped instances compare equal to the sentinels below.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrNetwork           = &AppError{Code: CodeNetwork, Message: "network unavailable"}
	ErrUnauthorized      = &AppError{Code: CodeUnauthorized, Message: "session expired"}
	ErrReactionIDMissing = &AppError{Code: CodeReactionIDMissing, Message: "reaction id missing"}
	ErrNotFound          = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrMutationInFlight  = &AppError{Code: CodeMutationInFlight, Message: "another change to this item is still pending"}
	ErrParentPending     = &AppError{Code: CodeParentPending, Message: "cannot reply before the parent comment is saved"}
)

func NewNetworkError(err error) *AppError {
	return &AppError{Code: CodeNetwork, Message: "network unavailable", Err: err}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "internal error",
		Err:     err,
	}
}

// CodeOf returns the AppError code inside err, or CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// UserMessage 给用户看的提示文字
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err == nil {
		return ""
	}
	return "something went wrong"
}
