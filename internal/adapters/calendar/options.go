// Package calendar holds the calendar backends: Google Calendar, a local
// iCalendar file and an in-memory calendar.
package calendar

import (
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/okian/buffcal/pkg/logger"
)

// Option applies a configuration option to a calendar backend.
type Option func(*options)

type options struct {
	logger   logger.Logger
	now      func() time.Time
	newID    func() string
	linkBase string
	prodID   string

	clientOpts []option.ClientOption
}

func defaultOptions(component string) options {
	return options{
		logger: logger.Get().Named(component),
		now:    time.Now,
		newID:  uuid.NewString,
		prodID: "-//buffcal//buff calendar//EN",
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides how local backends name new entries.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// WithLinkBase makes local backends return base+id as the entry link.
func WithLinkBase(base string) Option {
	return func(o *options) {
		o.linkBase = base
	}
}

func (o options) link(id string) string {
	if o.linkBase == "" {
		return ""
	}
	return o.linkBase + id
}

// WithClientOptions passes extra options (endpoint, HTTP client) to the
// Google API client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}
