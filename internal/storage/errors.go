package storage

import "errors"

// Sentinel errors shared by every store implementation. All record stores
// are append-only: a write either lands as a new row or is rejected.
var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose ID is
	// already present. Deterministic IDs make replays hit this instead of
	// double-writing.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned for nil records or records missing
	// their required identifiers.
	ErrInvalidInput = errors.New("invalid input")
)
