// Package memcoreerr defines the sentinel error kinds shared across every
// memcore package, per the error handling design: callers branch on kind
// with errors.Is/errors.As, never on message text.
package memcoreerr

import "errors"

var (
	// ErrInvalidInput covers empty post-strip content, out-of-range
	// importance/confidence, unknown enum values, and malformed dates.
	ErrInvalidInput = errors.New("memcore: invalid input")

	// ErrNotFound means the id does not exist or is not in the state an
	// operation requires. Store reads and the pipeline's Get, Entities and
	// Timeline return it for an unknown id; it is not turned into an empty
	// result.
	ErrNotFound = errors.New("memcore: not found")

	// ErrConflict is a unique-constraint violation. The write pipeline
	// recovers from it internally via the dedup path; it is only
	// surfaced when recovery itself fails.
	ErrConflict = errors.New("memcore: conflict")

	// ErrOracleUnavailable marks an embedding oracle failure. It is never
	// fatal: callers downgrade to "stored without embedding".
	ErrOracleUnavailable = errors.New("memcore: embedding oracle unavailable")

	// ErrStorageFailure is a transactional rollback caused by I/O. It is
	// retriable.
	ErrStorageFailure = errors.New("memcore: storage failure")

	// ErrPreconditionFailed covers operations invoked against a memory not
	// in the required state, e.g. restore on an already-active memory.
	ErrPreconditionFailed = errors.New("memcore: precondition failed")

	// ErrLimitExceeded is returned when a caller-supplied batch exceeds a
	// configured cap.
	ErrLimitExceeded = errors.New("memcore: limit exceeded")
)
