package billionrows

import "errors"

// Sentinel errors for common error conditions
var (
	// Per-line errors. These never escape a run.
	ErrMalformedRecord = errors.New("malformed record")

	// Fatal errors
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrPoolInitFailure   = errors.New("worker pool init failure")
	ErrLineTooLong       = errors.New("line too long")

	// Configuration errors
	ErrInvalidBatchSize = errors.New("invalid batch size")
	ErrInvalidDelimiter = errors.New("invalid delimiter")

	// Recoverable per-chunk errors, reported in Result.Failures
	ErrWorkerFailure = errors.New("worker failure")
)
