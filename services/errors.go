package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/camden-git/peoplegraph/repository"
)

// Error kinds returned by the engine. Every engine error wraps exactly one of
// these, so callers branch with errors.Is.
var (
	// ErrNotFound indicates a referenced person or connection is missing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation covers self-merge, cross-owner merge and self-loop connections.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrValidation indicates the request is incomplete or malformed, e.g. a
	// required field choice is missing.
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates the store saw a concurrent write; the whole
	// operation may be retried from scratch with the same arguments.
	ErrConflict = errors.New("concurrent modification")
)

// IsRetryable reports whether err came from a store conflict.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// storeError maps repository sentinels onto engine kinds.
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrStaleRecord), isBusy(err):
		return fmt.Errorf("%w: %s: %v", ErrConflict, what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// isBusy matches sqlite's lock contention errors, which surface as plain strings through GORM.
func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
