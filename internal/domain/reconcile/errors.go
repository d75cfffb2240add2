package reconcile

import "errors"

// ErrList is returned when the calendar cannot be listed.
var ErrList = errors.New("list calendar entries")
