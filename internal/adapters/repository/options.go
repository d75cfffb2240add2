package repository

import (
	"os"

	"github.com/okian/buffcal/pkg/logger"
)

// Option applies a configuration option to a store.
type Option func(*options)

type options struct {
	logger   logger.Logger
	fileMode os.FileMode
}

func defaultOptions() options {
	return options{
		logger:   logger.Get().Named("store"),
		fileMode: 0o600,
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFileMode sets the permissions of the JSON file.
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) {
		if mode != 0 {
			o.fileMode = mode
		}
	}
}
