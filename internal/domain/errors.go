package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrAccessWindow matches every AccessWindowError.
	ErrAccessWindow = errors.New("quiz not available")
	// ErrStorage matches every StorageError.
	ErrStorage = errors.New("storage failure")
	// ErrForbidden is returned when the acting identity lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports an id that does not resolve, or is not owned by the caller.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// AccessWindowError is raised when a quiz is fetched outside its availability window.
type AccessWindowError struct {
	Reason WindowReason
}

func (e *AccessWindowError) Error() string {
	switch e.Reason {
	case NotStarted:
		return "quiz not started yet"
	case Ended:
		return "quiz ended"
	default:
		return ErrAccessWindow.Error()
	}
}

func (e *AccessWindowError) Is(target error) bool { return target == ErrAccessWindow }

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Storage wraps err as a StorageError unless it is nil or already a domain error.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
