package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/buffcal/internal/domain/model"
	"github.com/okian/buffcal/pkg/logger"
)

// Memory is a process-local calendar, used for dry runs.
type Memory struct {
	mu      sync.Mutex
	entries []model.CalendarEntry
	opts    options
}

// NewMemory creates an empty in-memory calendar.
func NewMemory(opts ...Option) *Memory {
	o := defaultOptions("calendar-memory")
	for _, opt := range opts {
		opt(&o)
	}
	return &Memory{opts: o}
}

// Insert stores entry under a fresh ID.
func (m *Memory) Insert(ctx context.Context, entry model.CalendarEntry) (model.CalendarEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = m.opts.newID()
	entry.Link = m.opts.link(entry.ID)
	m.entries = append(m.entries, entry)
	m.opts.logger.Info(ctx, "entry added",
		logger.String("entry_id", entry.ID),
		logger.String("title", entry.Title),
		logger.Time("start", entry.Start),
	)
	return entry, nil
}

// List returns entries starting in [from, to) ordered by start time.
func (m *Memory) List(_ context.Context, from, to time.Time) ([]model.CalendarEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return window(m.entries, from, to), nil
}

// Delete removes the entry with the given ID.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Entries returns a copy of every stored entry in insertion order.
func (m *Memory) Entries() []model.CalendarEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.CalendarEntry(nil), m.entries...)
}

// window filters entries to [from, to) and sorts them by start, keeping
// insertion order for equal starts.
func window(entries []model.CalendarEntry, from, to time.Time) []model.CalendarEntry {
	out := make([]model.CalendarEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Start.Before(from) && e.Start.Before(to) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
