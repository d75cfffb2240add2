// Package parse turns free-form buff announcements into candidate calendar
// events.
//
// A message is tokenized into a guild label, date tokens, time tokens and
// mention tokens. Dates are normalized to DD-MM-YYYY, then the assembler pairs
// mentions, dates and times by position. Times drive the pairing: a message
// with three times yields three events, reusing the last date and the last
// mention when those lists are shorter.
package parse

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/okian/buffcal/internal/domain/model"
	"github.com/okian/buffcal/pkg/logger"
)

const (
	// DefaultColor is the calendar colour for unmapped mentions.
	DefaultColor = "7"
	// UnknownGuild is the label used when a message names no guild.
	UnknownGuild = "Unknown"

	defaultTimezone = "Europe/Stockholm"
)

// Category is a recognized announcement type and its calendar colour.
type Category struct {
	Mention string
	Color   string
}

// DefaultCategories returns the built-in mention set.
func DefaultCategories() []Category {
	return []Category{
		{Mention: "@Onyxia Alliance", Color: "7"},
		{Mention: "@Onyxia Horde", Color: "11"},
		{Mention: "@RendBuff", Color: "11"},
	}
}

// CategoriesFromMap builds categories from a mention to colour map, ordered
// by mention.
func CategoriesFromMap(m map[string]string) []Category {
	out := make([]Category, 0, len(m))
	for mention, color := range m {
		out = append(out, Category{Mention: mention, Color: color})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mention < out[j].Mention })
	return out
}

// Result is the outcome of parsing one message.
type Result struct {
	Guild  string
	Events []model.CandidateEvent
	// Skipped holds one error per dropped date token or event. Each wraps
	// ErrInvalidDate or ErrInvalidTime.
	Skipped []error
}

// Parser extracts candidate events from message text. It is safe for
// concurrent use once constructed.
type Parser struct {
	loc          *time.Location
	now          func() time.Time
	categories   []Category
	defaultColor string
	mentionRe    *regexp.Regexp
	logger       logger.Logger
}

// New creates a Parser. The server timezone defaults to Europe/Stockholm,
// falling back to UTC when the zone database is unavailable.
func New(opts ...Option) *Parser {
	p := &Parser{
		now:          time.Now,
		categories:   DefaultCategories(),
		defaultColor: DefaultColor,
		logger:       logger.Get().Named("parser"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.loc == nil {
		loc, err := time.LoadLocation(defaultTimezone)
		if err != nil {
			loc = time.UTC
		}
		p.loc = loc
	}
	p.mentionRe = compileMentions(p.categories)
	return p
}

// Location returns the server timezone.
func (p *Parser) Location() *time.Location { return p.loc }

// Parse tokenizes text and assembles its candidate events. It returns
// ErrNoMention when the text names no recognized category.
func (p *Parser) Parse(ctx context.Context, text string) (Result, error) {
	tokens := p.Tokenize(text)
	if len(tokens.Mentions) == 0 {
		p.logger.Debug(ctx, "no recognized mention", logger.Int("length", len(text)))
		return Result{Guild: tokens.Guild}, ErrNoMention
	}

	res := p.Assemble(tokens)
	p.logger.Debug(ctx, "message parsed",
		logger.String("guild", res.Guild),
		logger.Strings("mentions", tokens.Mentions),
		logger.Strings("dates", tokens.Dates),
		logger.Strings("times", tokens.Times),
		logger.Bool("tonight", tokens.Tonight),
		logger.Int("events", len(res.Events)),
	)
	for _, err := range res.Skipped {
		p.logger.Warn(ctx, "skipping unparseable token", logger.Error(err))
	}
	return res, nil
}

// ColorFor maps a mention to its calendar colour, case-insensitively.
func (p *Parser) ColorFor(mention string) string {
	for _, c := range p.categories {
		if strings.EqualFold(c.Mention, mention) {
			return c.Color
		}
	}
	return p.defaultColor
}

// canonicalMention returns the configured spelling of a matched mention.
func (p *Parser) canonicalMention(match string) string {
	for _, c := range p.categories {
		if strings.EqualFold(c.Mention, match) {
			return c.Mention
		}
	}
	return match
}

// compileMentions builds a case-insensitive alternation, longest first so a
// mention that prefixes another never shadows it.
func compileMentions(categories []Category) *regexp.Regexp {
	mentions := make([]string, 0, len(categories))
	for _, c := range categories {
		mentions = append(mentions, regexp.QuoteMeta(c.Mention))
	}
	sort.SliceStable(mentions, func(i, j int) bool { return len(mentions[i]) > len(mentions[j]) })
	return regexp.MustCompile(`(?i)(?:` + strings.Join(mentions, "|") + `)`)
}
