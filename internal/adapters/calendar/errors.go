package calendar

import "errors"

// Sentinel kinds for calendar adapter errors.
var (
	ErrNotFound      = errors.New("calendar entry not found")
	ErrMissingConfig = errors.New("calendar configuration incomplete")
)
