package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested object doesn't exist.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey is returned when a storage key contains forbidden
	// elements (path traversal, absolute paths).
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrAccessDenied is returned when the provider denies access.
	ErrAccessDenied = errors.New("access denied")
)

// StorageError wraps storage operation errors with the failing operation and
// key. It supports errors.Is via Unwrap.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates an object was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
