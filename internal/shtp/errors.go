package shtp

import "errors"

// Sentinel errors returned by the SHTP core. internal/shtp keeps these
// unexported-shaped (small, comparable) and the sh2 facade wraps them
// into a richer *sh2.Error; callers of this package compare with
// errors.Is.
var (
	// ErrBadParam is returned by Send for an out-of-range channel or an
	// oversized payload, and by Listen for an invalid channel.
	ErrBadParam = errors.New("shtp: bad parameter")

	// ErrHAL is returned by Registry.Open when the HAL fails to open and
	// by Send when a HAL write fails; the HAL's own error is not wrapped.
	// Read failures during Service are not reported.
	ErrHAL = errors.New("shtp: hal error")

	// ErrNoCapacity is returned by Open when the session registry is full.
	ErrNoCapacity = errors.New("shtp: no capacity")

	// ErrBusy is returned by Send when it is re-entered on the same
	// channel from within a listener callback invoked during the
	// back-pressure pump (spec §9, "Back-pressure re-entry").
	ErrBusy = errors.New("shtp: busy")

	// ErrClosed is returned by Send and Service when called after Close.
	ErrClosed = errors.New("shtp: session closed")
)
