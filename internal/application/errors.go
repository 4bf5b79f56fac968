package application

import (
	"errors"
	"sort"
	"strings"

	"github.com/example/appointment-calendar/internal/store"
)

var (
	// ErrNotFound is returned when the requested appointment does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when an appointment id is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidTransition is returned when an editor action is not allowed in its current state.
	ErrInvalidTransition = errors.New("application: invalid editor transition")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// mapStoreError translates store failures into application sentinels while
// keeping the original error in the chain.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, store.ErrDuplicateID):
		return errors.Join(ErrAlreadyExists, err)
	default:
		return err
	}
}
