package repositories

import "errors"

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a status change is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAmbiguousTransaction is returned when a transaction id matches more than one pending order.
	ErrAmbiguousTransaction = errors.New("transaction id matches more than one pending order")
	// ErrDuplicateTransaction is returned when a pending order already carries the transaction id.
	ErrDuplicateTransaction = errors.New("transaction id already used by a pending order")
	// ErrPersistence wraps any failure of the underlying database.
	ErrPersistence = errors.New("persistence failure")
)
