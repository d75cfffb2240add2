package service

import (
	"errors"
	"fmt"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrMessageNotFound = errors.New("message not found")
	ErrNoCalendar      = errors.New("calendar collaborator is required")
)

// CollaboratorError reports a failed call to the calendar or the chat source.
type CollaboratorError struct {
	Op  string // insert, list, delete, history, fetch, reply
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

func collaboratorError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return err
	}
	return &CollaboratorError{Op: op, Err: err}
}
