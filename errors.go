package talentwire

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("talentwire: no store configured")
	ErrStoreClosed = errors.New("talentwire: store closed")

	// Not found errors.
	ErrUserNotFound        = errors.New("talentwire: user not found")
	ErrJobNotFound         = errors.New("talentwire: job not found")
	ErrApplicationNotFound = errors.New("talentwire: application not found")
	ErrProfileNotFound     = errors.New("talentwire: profile not found")

	// Conflict errors.
	ErrAlreadyApplied   = errors.New("talentwire: already applied to this job")
	ErrDuplicateListing = errors.New("talentwire: listing already imported")

	// Transition errors.
	ErrForbidden     = errors.New("talentwire: actor not permitted")
	ErrInvalidStatus = errors.New("talentwire: invalid status transition")

	// ErrNoChange signals a transition to the current status. Callers
	// treat it as success with an empty cascade, not a failure.
	ErrNoChange = errors.New("talentwire: status unchanged")
)
