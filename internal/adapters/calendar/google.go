package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/okian/buffcal/internal/domain/model"
	"github.com/okian/buffcal/pkg/logger"
)

// Event times are sent as UTC instants; the calendar renders them in the
// viewer's zone.
const googleTimeZone = "UTC"

// Google is a Google Calendar backend using a service account.
type Google struct {
	svc        *gcal.Service
	calendarID string
	opts       options
}

// NewGoogle connects to Google Calendar with the service-account key at
// credentialsFile.
func NewGoogle(ctx context.Context, calendarID, credentialsFile string, opts ...Option) (*Google, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("%w: calendar id", ErrMissingConfig)
	}
	o := defaultOptions("calendar-google")
	for _, opt := range opts {
		opt(&o)
	}

	var clientOpts []option.ClientOption
	if credentialsFile != "" {
		clientOpts = append(clientOpts,
			option.WithCredentialsFile(credentialsFile),
			option.WithScopes(gcal.CalendarScope),
		)
	}
	clientOpts = append(clientOpts, o.clientOpts...)

	svc, err := gcal.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	return &Google{svc: svc, calendarID: calendarID, opts: o}, nil
}

// Insert creates entry and returns it with the event ID and HTML link.
func (g *Google) Insert(ctx context.Context, entry model.CalendarEntry) (model.CalendarEntry, error) {
	ev := &gcal.Event{
		Summary:     entry.Title,
		Description: entry.Description,
		ColorId:     entry.Color,
		Start:       eventDateTime(entry.Start),
		End:         eventDateTime(entry.End),
	}

	created, err := g.svc.Events.Insert(g.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return model.CalendarEntry{}, err
	}

	entry.ID = created.Id
	entry.Link = created.HtmlLink
	g.opts.logger.Debug(ctx, "event inserted",
		logger.String("entry_id", entry.ID),
		logger.String("link", entry.Link),
	)
	return entry, nil
}

// List returns single events starting in [from, to) ordered by start time.
// All-day events are skipped.
func (g *Google) List(ctx context.Context, from, to time.Time) ([]model.CalendarEntry, error) {
	var out []model.CalendarEntry
	call := g.svc.Events.List(g.calendarID).
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		ShowDeleted(false).
		OrderBy("startTime")

	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			entry, ok := fromGoogle(item)
			if !ok {
				continue
			}
			if entry.Start.Before(from) || !entry.Start.Before(to) {
				continue
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the event. An event that is already gone counts as deleted.
func (g *Google) Delete(ctx context.Context, id string) error {
	err := g.svc.Events.Delete(g.calendarID, id).Context(ctx).Do()
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		g.opts.logger.Debug(ctx, "event already deleted", logger.String("entry_id", id))
		return nil
	}
	return err
}

func eventDateTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: t.UTC().Format(time.RFC3339),
		TimeZone: googleTimeZone,
	}
}

func fromGoogle(item *gcal.Event) (model.CalendarEntry, bool) {
	if item == nil || item.Start == nil || item.Start.DateTime == "" {
		return model.CalendarEntry{}, false
	}
	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return model.CalendarEntry{}, false
	}
	end := start
	if item.End != nil && item.End.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
			end = t
		}
	}
	return model.CalendarEntry{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Start:       start,
		End:         end,
		Color:       item.ColorId,
		Link:        item.HtmlLink,
	}, true
}
