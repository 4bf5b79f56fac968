package store

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned when adding an appointment whose id already exists.
	ErrDuplicateID = errors.New("store: duplicate appointment id")
	// ErrNotFound is returned when the requested appointment does not exist.
	ErrNotFound = errors.New("store: appointment not found")
)

// DuplicateIDError identifies the id rejected by Add.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("store: appointment %q already exists", e.ID)
}

// Unwrap allows errors.Is(err, ErrDuplicateID).
func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// NotFoundError identifies the id that could not be resolved.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store: appointment %q not found", e.ID)
}

// Unwrap allows errors.Is(err, ErrNotFound).
func (e *NotFoundError) Unwrap() error { return ErrNotFound }
