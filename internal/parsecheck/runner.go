package parsecheck

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/okian/buffcal/internal/domain/parse"
	"github.com/okian/buffcal/pkg/logger"
)

const defaultTimezone = "Europe/Stockholm"

// Run parses every message of the configured input and writes one
// MessageReport per message to out as a JSON array.
func Run(ctx context.Context, config *Config, stdin io.Reader, out io.Writer) (Stats, error) {
	var stats Stats
	log := logger.Get().Named("parsecheck")

	tz := config.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return stats, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	in := stdin
	if config.Input != "" && config.Input != "-" {
		f, err := os.Open(config.Input)
		if err != nil {
			return stats, fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	messages, err := SplitMessages(in, config.Separator)
	if err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}

	opts := []parse.Option{parse.WithLocation(loc)}
	if !config.Now.IsZero() {
		now := config.Now
		opts = append(opts, parse.WithClock(func() time.Time { return now }))
	}
	parser := parse.New(opts...)

	reports := make([]MessageReport, 0, len(messages))
	for i, text := range messages {
		report := check(ctx, parser, i, text)
		stats.Messages++
		stats.Events += len(report.Events)
		stats.Skipped += len(report.Skipped)
		if report.NoMention {
			stats.NoMention++
		}
		reports = append(reports, report)
	}

	enc := json.NewEncoder(out)
	if config.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(reports); err != nil {
		return stats, fmt.Errorf("write output: %w", err)
	}

	log.Info(ctx, "parse check finished",
		logger.Int("messages", stats.Messages),
		logger.Int("events", stats.Events),
		logger.Int("skipped", stats.Skipped),
		logger.Int("no_mention", stats.NoMention),
	)
	return stats, nil
}

func check(ctx context.Context, parser *parse.Parser, index int, text string) MessageReport {
	res, err := parser.Parse(ctx, text)
	report := MessageReport{
		Index:     index,
		Guild:     res.Guild,
		NoMention: errors.Is(err, parse.ErrNoMention),
		Events:    make([]EventReport, 0, len(res.Events)),
	}
	for _, ev := range res.Events {
		report.Events = append(report.Events, EventReport{
			Title:       ev.Title(),
			Description: ev.Description(),
			Start:       ev.Start.Format(time.RFC3339),
			Color:       ev.Color,
		})
	}
	for _, s := range res.Skipped {
		report.Skipped = append(report.Skipped, s.Error())
	}
	return report
}

// SplitMessages reads r and splits it on lines equal to sep after trimming.
// Blank messages are dropped.
func SplitMessages(r io.Reader, sep string) ([]string, error) {
	if sep == "" {
		sep = DefaultSeparator
	}

	var (
		messages []string
		current  []string
	)
	flush := func() {
		if text := strings.TrimSpace(strings.Join(current, "\n")); text != "" {
			messages = append(messages, text)
		}
		current = current[:0]
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == sep {
			flush()
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return messages, nil
}
