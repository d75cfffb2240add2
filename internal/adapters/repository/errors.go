package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrPersistence = errors.New("processed message store failure")
	ErrEmptyPath   = errors.New("store path is empty")
)
