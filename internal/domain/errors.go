package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrPayloadTooLarge    = errors.New("payload too large")

	// ErrNotModified is a signal rather than a failure: the caller already
	// holds the current version of the resource.
	ErrNotModified = errors.New("not modified")
)

// Reasons carried by InvalidOperationError
const (
	ReasonRootFolder  = "root_folder"
	ReasonFolderCycle = "folder_cycle"
)

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found or is not owned by the caller
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input. Fields maps request field
	// names to their validation messages when the failure is field-level.
	ValidationError struct {
		Message string
		Fields  map[string]string
	}

	// InvalidOperationError indicates a structurally forbidden mutation
	// (root folder changes, folder cycles)
	InvalidOperationError struct {
		Message string
		Reason  string
	}

	// PreconditionFailedError indicates an optimistic concurrency conflict
	PreconditionFailedError struct {
		Message        string
		CurrentVersion int64
	}

	// PayloadTooLargeError indicates decoded content over the size limit
	PayloadTooLargeError struct {
		Message string
		Limit   int
	}
)

// Error implementations
func (e *NotFoundError) Error() string           { return e.Message }
func (e *ValidationError) Error() string         { return e.Message }
func (e *InvalidOperationError) Error() string   { return e.Message }
func (e *PreconditionFailedError) Error() string { return e.Message }
func (e *PayloadTooLargeError) Error() string    { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int           { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int         { return http.StatusBadRequest }
func (e *InvalidOperationError) StatusCode() int   { return http.StatusUnprocessableEntity }
func (e *PreconditionFailedError) StatusCode() int { return http.StatusPreconditionFailed }
func (e *PayloadTooLargeError) StatusCode() int    { return http.StatusRequestEntityTooLarge }

// Is implementations so errors.Is() matches the sentinels
func (e *NotFoundError) Is(target error) bool           { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool         { return target == ErrValidation }
func (e *InvalidOperationError) Is(target error) bool   { return target == ErrInvalidOperation }
func (e *PreconditionFailedError) Is(target error) bool { return target == ErrPreconditionFailed }
func (e *PayloadTooLargeError) Is(target error) bool    { return target == ErrPayloadTooLarge }

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (folder, note)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewRootFolderError reports an attempt to rename, move or delete a root folder
func NewRootFolderError(action string) *InvalidOperationError {
	return &InvalidOperationError{
		Message: "root folder cannot be " + action,
		Reason:  ReasonRootFolder,
	}
}

// NewFolderCycleError reports a move that would make a folder its own ancestor
func NewFolderCycleError() *InvalidOperationError {
	return &InvalidOperationError{
		Message: "folder cannot be moved into itself or one of its descendants",
		Reason:  ReasonFolderCycle,
	}
}
