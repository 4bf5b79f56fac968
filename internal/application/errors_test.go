package application

import (
	"errors"
	"testing"

	"github.com/example/appointment-calendar/internal/store"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"title": "required", "end": "required"}}
	if got := withFields.Error(); got != "validation failed: end, title" {
		t.Fatalf("expected sorted field list, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if (&ValidationError{}).HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	if !(&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors() {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	base.merge(&ValidationError{FieldErrors: map[string]string{"second": "another"}})
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestMapStoreError(t *testing.T) {
	t.Parallel()

	notFound := mapStoreError(&store.NotFoundError{ID: "x"})
	if !errors.Is(notFound, ErrNotFound) || !errors.Is(notFound, store.ErrNotFound) {
		t.Fatalf("expected both sentinels in chain, got %v", notFound)
	}

	duplicate := mapStoreError(&store.DuplicateIDError{ID: "x"})
	if !errors.Is(duplicate, ErrAlreadyExists) || !errors.Is(duplicate, store.ErrDuplicateID) {
		t.Fatalf("expected both sentinels in chain, got %v", duplicate)
	}

	other := errors.New("boom")
	if got := mapStoreError(other); got != other {
		t.Fatalf("expected unrelated error to pass through, got %v", got)
	}
	if mapStoreError(nil) != nil {
		t.Fatalf("expected nil to stay nil")
	}
}
