package parse

import "errors"

// Sentinel kinds for parse failures. Callers match them with errors.Is.
var (
	// ErrNoMention means the message names no recognized category; the
	// whole message is skipped.
	ErrNoMention = errors.New("no recognized mention")
	// ErrInvalidDate marks a date token that cannot be normalized.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidTime marks a date/time pair that does not form a wall-clock instant.
	ErrInvalidTime = errors.New("invalid date/time")
)
