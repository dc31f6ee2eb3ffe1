package dispatch

import (
	"errors"
	"fmt"
)

// Error codes recoverable at the request boundary.
const (
	CodeNotFound    = "notFound"
	CodeForbidden   = "forbidden"
	CodeConflict    = "conflict"
	CodeNoProviders = "noProvidersAvailable"
	CodeCorrupted   = "corrupted"
)

// DispatchError is a typed engine error carrying a taxonomy code.
type DispatchError struct {
	Code    string
	Message string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewNotFoundError(msg string) error {
	return &DispatchError{Code: CodeNotFound, Message: msg}
}

func NewForbiddenError(msg string) error {
	return &DispatchError{Code: CodeForbidden, Message: msg}
}

func NewConflictError(msg string) error {
	return &DispatchError{Code: CodeConflict, Message: msg}
}

func NewNoProvidersError(msg string) error {
	return &DispatchError{Code: CodeNoProviders, Message: msg}
}

func NewCorruptedError(msg string) error {
	return &DispatchError{Code: CodeCorrupted, Message: msg}
}

// ErrorCode extracts the taxonomy code from err, or "" if err is not a
// DispatchError.
func ErrorCode(err error) string {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err is a DispatchError with the given code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}
