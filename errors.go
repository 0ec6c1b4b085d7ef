package folio

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a requested post does not exist.
	ErrNotFound = errors.New("post not found")
	// ErrDuplicateSlug is returned when a write would give two posts the same slug.
	ErrDuplicateSlug = errors.New("a post with this slug already exists")
	// ErrInvalidSlug is returned when a post would be stored with an empty or non URL-safe slug.
	ErrInvalidSlug = errors.New("slug is required and must be URL-safe")
	// ErrStorageCorruption is returned when the persisted document cannot be decoded.
	ErrStorageCorruption = errors.New("storage corrupted")
	// ErrStorageWrite is returned when the persisted document cannot be written.
	ErrStorageWrite = errors.New("storage write failed")
	// ErrValidation is returned when a draft or a backup document is malformed.
	ErrValidation = errors.New("validation failed")
)

// ValidationError lists every problem found in a draft or backup document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(problem string) {
	e.Problems = append(e.Problems, problem)
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// IsUserError reports whether err is caused by caller input rather than by
// the store, so handlers can show it as a message instead of a 500 page.
func IsUserError(err error) bool {
	return errors.Is(err, ErrDuplicateSlug) ||
		errors.Is(err, ErrInvalidSlug) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound)
}
