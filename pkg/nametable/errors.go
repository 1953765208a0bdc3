package nametable

import "errors"

var (
	// ErrInvalidRange rejects a publish whose lower bound exceeds its
	// upper bound.
	ErrInvalidRange = errors.New("invalid service range")

	// ErrInvalidScope rejects a publish whose scope is not one of the
	// defined visibility ordinals.
	ErrInvalidScope = errors.New("invalid publication scope")

	// ErrOverlap rejects a publish whose range partially overlaps an
	// existing sub-sequence without matching it exactly.
	ErrOverlap = errors.New("service range overlaps an existing range")

	// ErrDuplicate rejects a publish identical to a binding already held.
	// Duplicates leave the table unchanged; callers may treat this as a
	// no-op rather than a hard failure.
	ErrDuplicate = errors.New("identical publication already exists")

	// ErrQuotaExceeded rejects a local publish once the configured
	// publication ceiling is reached.
	ErrQuotaExceeded = errors.New("local publication limit reached")

	// ErrTableStopped rejects operations on a table after Stop.
	ErrTableStopped = errors.New("name table is stopped")
)
