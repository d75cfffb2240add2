package service

import (
	"time"

	"github.com/okian/buffcal/internal/domain/dedupe"
	"github.com/okian/buffcal/internal/domain/parse"
	"github.com/okian/buffcal/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCalendar sets the calendar collaborator.
func WithCalendar(c Calendar) Option {
	return func(s *Service) {
		if c != nil {
			s.calendar = guardedCalendar{next: c}
		}
	}
}

// WithMessageSource sets the chat collaborator used for catch-up, edit
// re-fetches and replies.
func WithMessageSource(src MessageSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithTracker sets the processed message tracker.
func WithTracker(t dedupe.Deduper) Option {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithParser sets the message parser.
func WithParser(p *parse.Parser) Option {
	return func(s *Service) {
		if p != nil {
			s.parser = p
		}
	}
}

// WithChannelID restricts processing to one channel.
func WithChannelID(id string) Option {
	return func(s *Service) {
		s.channelID = id
	}
}

// WithRetention sets how long processed message IDs are remembered.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithSyncInterval sets the sweep period.
func WithSyncInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.syncInterval = d
		}
	}
}

// WithCatchUp sets the trailing history window and message cap of the
// catch-up pass.
func WithCatchUp(window time.Duration, limit int) Option {
	return func(s *Service) {
		if window > 0 {
			s.catchupWindow = window
		}
		if limit > 0 {
			s.catchupLimit = limit
		}
	}
}

// WithReconcileHorizon sets how far ahead duplicates are looked for.
func WithReconcileHorizon(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.reconcileHorizon = d
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStartupSweep controls whether a sweep is queued as soon as the
// service starts.
func WithStartupSweep(enabled bool) Option {
	return func(s *Service) {
		s.startupSweep = enabled
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
