package parse

import (
	"time"

	"github.com/okian/buffcal/pkg/logger"
)

// Option applies a configuration option to the Parser.
type Option func(*Parser)

// WithLocation sets the server timezone used to interpret wall-clock times.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithCategories replaces the recognized mention set.
func WithCategories(categories []Category) Option {
	return func(p *Parser) {
		if len(categories) > 0 {
			p.categories = categories
		}
	}
}

// WithDefaultColor sets the colour used when a mention has no mapping.
func WithDefaultColor(color string) Option {
	return func(p *Parser) {
		if color != "" {
			p.defaultColor = color
		}
	}
}

// WithLogger sets a custom logger for the parser.
func WithLogger(l logger.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}
