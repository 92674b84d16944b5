package domain

import "errors"

// Error taxonomy for the categorization pipeline. Row- and chunk-level
// failures are contained and degrade to "needs review"; only these surface
// to callers.
var (
	// ErrMalformedRecord marks an input row whose required fields (date,
	// amount) could not be parsed. The row is retained unprocessed.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrClassificationUnavailable marks a failed or timed-out external
	// classification call. Affected transactions route to review.
	ErrClassificationUnavailable = errors.New("classification unavailable")

	// ErrMonthLocked rejects any mutation of a transaction whose month
	// has been locked.
	ErrMonthLocked = errors.New("month is locked")

	// ErrNotFound is returned for lookups of unknown ids.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is the non-error outcome of a conditional create
	// that found an existing row. Callers treat it as success.
	ErrAlreadyExists = errors.New("already exists")
)
