package service

import (
	"context"
	"time"

	"github.com/okian/buffcal/internal/domain/model"
	"github.com/okian/buffcal/pkg/metrics"
)

// Calendar creates, lists and deletes calendar entries.
type Calendar interface {
	// Insert creates entry and returns it with the backend ID and view link.
	Insert(ctx context.Context, entry model.CalendarEntry) (model.CalendarEntry, error)
	// List returns entries starting in [from, to), ordered by start time.
	List(ctx context.Context, from, to time.Time) ([]model.CalendarEntry, error)
	Delete(ctx context.Context, id string) error
}

// MessageSource reads channel history and answers messages. Live delivery
// goes through Service.Submit.
type MessageSource interface {
	// History returns up to limit messages posted in channelID after since.
	History(ctx context.Context, channelID string, since time.Time, limit int) ([]model.Message, error)
	// Message fetches one message. It returns ErrMessageNotFound when the
	// message no longer exists.
	Message(ctx context.Context, channelID, id string) (model.Message, error)
	// Reply posts text as a reply to msg.
	Reply(ctx context.Context, msg model.Message, text string) error
}

// guardedCalendar wraps every failure as a CollaboratorError and counts it.
type guardedCalendar struct {
	next Calendar
}

func (g guardedCalendar) Insert(ctx context.Context, entry model.CalendarEntry) (model.CalendarEntry, error) {
	out, err := g.next.Insert(ctx, entry)
	if err != nil {
		metrics.RecordCollaboratorError("insert")
		return model.CalendarEntry{}, collaboratorError("insert", err)
	}
	return out, nil
}

func (g guardedCalendar) List(ctx context.Context, from, to time.Time) ([]model.CalendarEntry, error) {
	out, err := g.next.List(ctx, from, to)
	if err != nil {
		metrics.RecordCollaboratorError("list")
		return nil, collaboratorError("list", err)
	}
	return out, nil
}

func (g guardedCalendar) Delete(ctx context.Context, id string) error {
	if err := g.next.Delete(ctx, id); err != nil {
		return collaboratorError("delete", err)
	}
	return nil
}
