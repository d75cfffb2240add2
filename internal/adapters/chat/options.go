package chat

import "github.com/okian/buffcal/pkg/logger"

// Option applies a configuration option to the Discord adapter.
type Option func(*Discord)

// WithLogger sets a custom logger for the adapter.
func WithLogger(l logger.Logger) Option {
	return func(d *Discord) {
		if l != nil {
			d.logger = l
		}
	}
}
