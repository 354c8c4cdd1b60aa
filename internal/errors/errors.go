package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a reqtab error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrConflict          ErrorCode = "CONFLICT"           // 409
	ErrUnsavedChanges    ErrorCode = "UNSAVED_CHANGES"    // 409
	ErrCapacityExhausted ErrorCode = "CAPACITY_EXHAUSTED" // 507
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// ReqtabError represents a structured error with code, status, and details.
type ReqtabError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ReqtabError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ReqtabError {
	return &ReqtabError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing tab, request or collection.
// kind names the entity ("tab", "request", "collection").
func NewNotFound(kind, identifier string) *ReqtabError {
	return &ReqtabError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *ReqtabError {
	return &ReqtabError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewUnsavedChanges creates a 409 error when a caller tries to discard a dirty tab
// without confirming.
func NewUnsavedChanges(tabID string) *ReqtabError {
	return &ReqtabError{
		Code:    ErrUnsavedChanges,
		Status:  409,
		Message: fmt.Sprintf("tab %s has unsaved changes (use force to discard)", tabID),
		Details: map[string]any{"tab_id": tabID},
	}
}

// NewCapacityExhausted creates a 507 error when no tab can be opened because every
// slot is taken by a pinned tab.
func NewCapacityExhausted(capacity int) *ReqtabError {
	return &ReqtabError{
		Code:    ErrCapacityExhausted,
		Status:  507,
		Message: fmt.Sprintf("tab limit reached (%d) and no unpinned tab can be closed", capacity),
		Details: map[string]any{"capacity": capacity},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the cause is kept in Details for logging.
func NewInternal(err error) *ReqtabError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &ReqtabError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error (or any error it wraps) is a ReqtabError with the given code.
func Is(err error, code ErrorCode) bool {
	var rErr *ReqtabError
	if stderrors.As(err, &rErr) {
		return rErr.Code == code
	}
	return false
}

// As returns the ReqtabError in err's chain, if any.
func As(err error) (*ReqtabError, bool) {
	var rErr *ReqtabError
	if stderrors.As(err, &rErr) {
		return rErr, true
	}
	return nil, false
}
