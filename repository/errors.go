package repository

import "errors"

// Sentinel errors returned by the repositories so callers do not depend on
// GORM-specific errors.
var (
	// ErrRecordNotFound indicates the requested row does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrStaleRecord indicates a conditional write matched no row because the
	// record's version changed since it was read.
	ErrStaleRecord = errors.New("record modified concurrently")
)
