package domain

import "errors"

// Domain errors represent business logic failures.
// Absence of a match, of coordinates, or of an optional field is never an
// error; those are empty results, nil pointers, or neutral scores.
var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey indicates a record with the same identifier already
	// exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidConfiguration indicates an unsupported option value, such as
	// an unknown merge strategy, weight key, or similarity backend.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrMalformedRecord indicates a record is missing sub-fields required to
	// decode it or to compute a declared factor.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidInput indicates malformed or invalid caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not available in this build
	// or from this adapter.
	ErrNotImplemented = errors.New("not implemented")
)
