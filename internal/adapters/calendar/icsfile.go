package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/okian/buffcal/internal/domain/model"
	"github.com/okian/buffcal/pkg/logger"
)

// propertyColor carries the calendar colour id on each VEVENT.
const propertyColor = ical.ComponentProperty("COLOR")

// ICSFile keeps the calendar in a local iCalendar file that any calendar
// client can subscribe to. The whole file is rewritten on every change.
type ICSFile struct {
	mu      sync.Mutex
	path    string
	entries []model.CalendarEntry
	opts    options
}

// NewICSFile opens the calendar at path. A missing file starts an empty
// calendar; an unreadable one is an error.
func NewICSFile(ctx context.Context, path string, opts ...Option) (*ICSFile, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: ics path", ErrMissingConfig)
	}
	o := defaultOptions("calendar-ics")
	for _, opt := range opts {
		opt(&o)
	}

	c := &ICSFile{path: path, opts: o}
	entries, err := readICS(path)
	if err != nil {
		return nil, err
	}
	c.entries = entries
	o.logger.Info(ctx, "ics calendar opened",
		logger.String("path", path),
		logger.Int("entries", len(entries)),
	)
	return c, nil
}

// Insert adds entry and rewrites the file.
func (c *ICSFile) Insert(ctx context.Context, entry model.CalendarEntry) (model.CalendarEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.ID = c.opts.newID()
	entry.Link = c.opts.link(entry.ID)
	next := append(append([]model.CalendarEntry(nil), c.entries...), entry)
	if err := c.write(next); err != nil {
		return model.CalendarEntry{}, err
	}
	c.entries = next
	c.opts.logger.Debug(ctx, "entry added",
		logger.String("entry_id", entry.ID),
		logger.String("title", entry.Title),
	)
	return entry, nil
}

// List returns entries starting in [from, to) ordered by start time.
func (c *ICSFile) List(_ context.Context, from, to time.Time) ([]model.CalendarEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return window(c.entries, from, to), nil
}

// Delete removes the entry with the given ID and rewrites the file.
func (c *ICSFile) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]model.CalendarEntry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.ID != id {
			next = append(next, e)
		}
	}
	if len(next) == len(c.entries) {
		return ErrNotFound
	}
	if err := c.write(next); err != nil {
		return err
	}
	c.entries = next
	return nil
}

// write serializes entries and atomically replaces the file.
func (c *ICSFile) write(entries []model.CalendarEntry) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(c.opts.prodID)

	stamp := c.opts.now().UTC()
	for _, e := range entries {
		ev := cal.AddEvent(e.ID)
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(e.Start.UTC())
		ev.SetEndAt(e.End.UTC())
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if e.Color != "" {
			ev.SetProperty(propertyColor, e.Color)
		}
		if e.Link != "" {
			ev.SetURL(e.Link)
		}
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".calendar-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(cal.Serialize()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, c.path)
}

// readICS loads every VEVENT of the file at path.
func readICS(path string) ([]model.CalendarEntry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	entries := make([]model.CalendarEntry, 0, len(cal.Events()))
	for _, ev := range cal.Events() {
		uid := ev.GetProperty(ical.ComponentPropertyUniqueId)
		if uid == nil || uid.Value == "" {
			continue
		}
		start, err := ev.GetStartAt()
		if err != nil {
			continue
		}
		end, err := ev.GetEndAt()
		if err != nil {
			end = start
		}
		entries = append(entries, model.CalendarEntry{
			ID:          uid.Value,
			Title:       propertyValue(ev, ical.ComponentPropertySummary),
			Description: propertyValue(ev, ical.ComponentPropertyDescription),
			Start:       start,
			End:         end,
			Color:       propertyValue(ev, propertyColor),
			Link:        propertyValue(ev, ical.ComponentPropertyUrl),
		})
	}
	return entries, nil
}

func propertyValue(ev *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ev.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}
