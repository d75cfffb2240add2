package dedupe

import "github.com/okian/buffcal/pkg/logger"

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithMaxSize caps the number of records kept in memory.
// If maxSize > 0: the oldest record is evicted when the cap is reached.
// If maxSize <= 0: unbounded, records leave only through EvictOlderThan.
func WithMaxSize(maxSize int) Option {
	return func(t *Tracker) {
		t.maxSize = maxSize
	}
}

// WithStore sets the durable backing store.
func WithStore(s Store) Option {
	return func(t *Tracker) {
		t.store = s
	}
}

// WithLogger sets a custom logger for the tracker.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}
