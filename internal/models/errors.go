package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
	ErrInvalidID    = errors.New("invalid ID format")
)

// ValidationError represents a rejected experiment definition or action payload
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// NotFoundError represents a missing experiment, arm, recommendation or publisher
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Unwrap allows errors.Is(err, ErrNotFound) checks
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// StateError represents a lifecycle transition attempted from a disallowed status
type StateError struct {
	Operation      string
	CurrentStatus  string
	RequiredStatus string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: status is %q, requires %q", e.Operation, e.CurrentStatus, e.RequiredStatus)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewNotFoundError creates a new not-found error
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewStateError creates a new lifecycle state error
func NewStateError(operation, current, required string) *StateError {
	return &StateError{Operation: operation, CurrentStatus: current, RequiredStatus: required}
}
