// Package dedupe tracks which chat messages were already handed to the
// calendar, so that a message is scheduled at most once while it is inside
// the retention window.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/buffcal/pkg/logger"
	"github.com/okian/buffcal/pkg/metrics"
)

// Store persists processed message records across restarts.
type Store interface {
	// Load returns every stored record. An error means the caller starts empty.
	Load(ctx context.Context) (map[string]time.Time, error)
	// Save replaces the stored records with records.
	Save(ctx context.Context, records map[string]time.Time) error
}

// Deduper records processed message IDs to ensure at-most-once scheduling.
type Deduper interface {
	// ShouldProcess reports whether id has not been recorded yet.
	ShouldProcess(ctx context.Context, id string) bool

	// MarkProcessed records id with the time it was handed to the calendar.
	MarkProcessed(ctx context.Context, id string, at time.Time)

	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string, at time.Time) bool

	// Unrecord removes an ID so that a later delivery is processed again.
	Unrecord(ctx context.Context, id string)

	// EvictOlderThan drops records processed before cutoff and returns how
	// many were removed.
	EvictOlderThan(ctx context.Context, cutoff time.Time) int

	Size() int64
}

// Tracker implements Deduper over an in-memory map that is written through
// to a Store after every mutation.
type Tracker struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	maxSize int // 0 or negative = unbounded
	size    atomic.Int64
	store   Store
	logger  logger.Logger
}

var _ Deduper = (*Tracker)(nil)

// NewTracker creates a tracker and loads existing records from the store.
// A load failure is logged and the tracker starts empty.
func NewTracker(ctx context.Context, opts ...Option) *Tracker {
	t := &Tracker{
		seen:   make(map[string]time.Time),
		logger: logger.Get().Named("tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.store != nil {
		records, err := t.store.Load(ctx)
		switch {
		case err != nil:
			metrics.RecordTrackerPersistError()
			t.logger.Warn(ctx, "failed to load processed messages, starting empty", logger.Error(err))
		default:
			for id, at := range records {
				t.seen[id] = at
			}
			t.logger.Info(ctx, "loaded processed messages", logger.Int("count", len(records)))
		}
	}
	t.updateSize()
	return t
}

// ShouldProcess reports whether id has not been recorded yet.
func (t *Tracker) ShouldProcess(_ context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[id]
	return !ok
}

// MarkProcessed records id at the given time, overwriting an earlier record.
func (t *Tracker) MarkProcessed(ctx context.Context, id string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertLocked(id, at)
	t.persistLocked(ctx)
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (t *Tracker) SeenAndRecord(ctx context.Context, id string, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[id]; ok {
		return true
	}
	t.insertLocked(id, at)
	t.persistLocked(ctx)
	return false
}

// Unrecord removes id from the tracker.
func (t *Tracker) Unrecord(ctx context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[id]; !ok {
		return
	}
	delete(t.seen, id)
	t.updateSize()
	t.persistLocked(ctx)
}

// EvictOlderThan drops every record processed strictly before cutoff.
func (t *Tracker) EvictOlderThan(ctx context.Context, cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for id, at := range t.seen {
		if at.Before(cutoff) {
			delete(t.seen, id)
			evicted++
		}
	}
	if evicted == 0 {
		return 0
	}

	t.updateSize()
	metrics.RecordTrackerEvicted(evicted)
	t.logger.Debug(ctx, "evicted processed messages",
		logger.Int("evicted", evicted),
		logger.Time("cutoff", cutoff),
	)
	t.persistLocked(ctx)
	return evicted
}

// Size returns the current number of records.
func (t *Tracker) Size() int64 {
	return t.size.Load()
}

// ProcessedAt returns when id was recorded.
func (t *Tracker) ProcessedAt(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.seen[id]
	return at, ok
}

// insertLocked must be called with t.mu held.
func (t *Tracker) insertLocked(id string, at time.Time) {
	if _, exists := t.seen[id]; !exists && t.maxSize > 0 && len(t.seen) >= t.maxSize {
		t.evictOldestLocked()
	}
	t.seen[id] = at.UTC()
	t.updateSize()
}

// evictOldestLocked removes the record with the earliest timestamp.
func (t *Tracker) evictOldestLocked() {
	var (
		oldestID string
		oldestAt time.Time
		found    bool
	)
	for id, at := range t.seen {
		if !found || at.Before(oldestAt) {
			oldestID, oldestAt, found = id, at, true
		}
	}
	if found {
		delete(t.seen, oldestID)
		metrics.RecordTrackerEvicted(1)
	}
}

// persistLocked writes a snapshot to the store. A failure keeps the
// in-memory state authoritative.
func (t *Tracker) persistLocked(ctx context.Context) {
	if t.store == nil {
		return
	}
	snapshot := make(map[string]time.Time, len(t.seen))
	for id, at := range t.seen {
		snapshot[id] = at
	}
	if err := t.store.Save(ctx, snapshot); err != nil {
		metrics.RecordTrackerPersistError()
		t.logger.Error(ctx, "failed to persist processed messages", logger.Error(err))
	}
}

func (t *Tracker) updateSize() {
	t.size.Store(int64(len(t.seen)))
	metrics.UpdateTrackerSize(int64(len(t.seen)))
}
