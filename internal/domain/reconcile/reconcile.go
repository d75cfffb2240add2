// Package reconcile removes duplicate calendar entries that slipped past the
// message-level tracker, for example when the same buff was announced in two
// separate messages.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/okian/buffcal/internal/domain/model"
	"github.com/okian/buffcal/pkg/logger"
	"github.com/okian/buffcal/pkg/metrics"
)

// DefaultHorizon is how far ahead of now entries are examined.
const DefaultHorizon = 72 * time.Hour

// Calendar is the part of the calendar collaborator the reconciler needs.
type Calendar interface {
	List(ctx context.Context, from, to time.Time) ([]model.CalendarEntry, error)
	Delete(ctx context.Context, id string) error
}

// Report summarizes one reconciliation pass.
type Report struct {
	Listed  int `json:"listed"` // entries in the window
	Groups  int `json:"groups"` // groups with more than one member
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// Reconciler deletes all but the first entry of every duplicate group.
type Reconciler struct {
	calendar Calendar
	horizon  time.Duration
	logger   logger.Logger
}

// New creates a Reconciler over cal.
func New(cal Calendar, opts ...Option) *Reconciler {
	r := &Reconciler{
		calendar: cal,
		horizon:  DefaultHorizon,
		logger:   logger.Get().Named("reconcile"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Horizon returns the look-ahead window.
func (r *Reconciler) Horizon() time.Duration { return r.horizon }

// Run lists entries starting in [now, now+horizon) and deletes duplicates.
//
// Two entries are duplicates when they share the exact start instant and
// their trimmed titles and descriptions are equal under case folding. The
// first entry of each group in listing order is kept. A failed delete is
// logged and counted; the pass carries on with the remaining entries.
func (r *Reconciler) Run(ctx context.Context, now time.Time) (Report, error) {
	from, to := now, now.Add(r.horizon)
	entries, err := r.calendar.List(ctx, from, to)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrList, err)
	}

	report := Report{Listed: len(entries)}
	groups := Group(entries)
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		report.Groups++
		keep := group[0]
		for _, dup := range group[1:] {
			if err := r.calendar.Delete(ctx, dup.ID); err != nil {
				report.Failed++
				metrics.RecordCollaboratorError("delete")
				r.logger.Error(ctx, "failed to delete duplicate entry",
					logger.String("entry_id", dup.ID),
					logger.String("title", dup.Title),
					logger.Error(err),
				)
				continue
			}
			report.Deleted++
			r.logger.Info(ctx, "deleted duplicate entry",
				logger.String("entry_id", dup.ID),
				logger.String("kept_id", keep.ID),
				logger.String("title", dup.Title),
				logger.Time("start", dup.Start),
			)
		}
	}

	metrics.RecordReconcile(report.Groups, report.Deleted)
	r.logger.Debug(ctx, "reconciliation finished",
		logger.Int("listed", report.Listed),
		logger.Int("groups", report.Groups),
		logger.Int("deleted", report.Deleted),
		logger.Int("failed", report.Failed),
	)
	return report, nil
}

// Group buckets entries by their duplicate key. Groups are returned in the
// order their first member appears, and members keep their listing order.
func Group(entries []model.CalendarEntry) [][]model.CalendarEntry {
	fold := cases.Fold()
	index := make(map[Key]int, len(entries))
	var groups [][]model.CalendarEntry
	for _, e := range entries {
		k := KeyOf(fold, e)
		i, ok := index[k]
		if !ok {
			index[k] = len(groups)
			groups = append(groups, []model.CalendarEntry{e})
			continue
		}
		groups[i] = append(groups[i], e)
	}
	return groups
}

// Key identifies entries describing the same event.
type Key struct {
	Start       int64 // unix nanoseconds
	Title       string
	Description string
}

// KeyOf computes the duplicate key of e using the given folding caser.
func KeyOf(fold cases.Caser, e model.CalendarEntry) Key {
	return Key{
		Start:       e.Start.UnixNano(),
		Title:       fold.String(strings.TrimSpace(e.Title)),
		Description: fold.String(strings.TrimSpace(e.Description)),
	}
}
