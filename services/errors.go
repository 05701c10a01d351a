package services

import "errors"

// Error taxonomy for the track lifecycle. Handlers map these onto HTTP
// status codes; everything else wraps one of them with %w.
var (
	// ErrValidation covers bad ids, bad settings and bad request shapes.
	ErrValidation = errors.New("validation failed")

	// ErrSecurityDenied is a path-guard rejection. Messages wrapping it
	// must not include the resolved canonical path.
	ErrSecurityDenied = errors.New("access denied")

	// ErrNotFound covers missing tracks, versions and files on disk.
	ErrNotFound = errors.New("not found")

	// ErrVersionLimit is returned when a track already carries the maximum
	// number of extension versions.
	ErrVersionLimit = errors.New("version limit reached")

	// ErrDerivedPath means the output path derived for a new version failed
	// validation. It fails the request that triggered generation, not a
	// background job.
	ErrDerivedPath = errors.New("invalid derived output path")

	// ErrWorkerFailure is a background transform failure. It is recorded on
	// the track and surfaced only through status polling.
	ErrWorkerFailure = errors.New("worker failure")
)
