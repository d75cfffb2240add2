package reconcile

import (
	"time"

	"github.com/okian/buffcal/pkg/logger"
)

// Option applies a configuration option to the Reconciler.
type Option func(*Reconciler)

// WithHorizon sets how far ahead of now entries are examined.
func WithHorizon(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.horizon = d
		}
	}
}

// WithLogger sets a custom logger for the reconciler.
func WithLogger(l logger.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}
