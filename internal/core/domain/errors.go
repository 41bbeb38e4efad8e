package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors. Expected write-path
// conditions (ambiguous target, forbidden source type, nothing matched,
// empty content) are reported through OperationResult rather than as
// errors.
var (
	// ErrReadOnly indicates a mutating operation was attempted while
	// the store is configured read-only.
	ErrReadOnly = errors.New("store is read-only")
)
