package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/okian/buffcal/internal/domain/model"
	"github.com/okian/buffcal/internal/domain/reconcile"
	"github.com/okian/buffcal/pkg/logger"
	"github.com/okian/buffcal/pkg/metrics"
)

// CatchUpReport summarizes one catch-up pass.
type CatchUpReport struct {
	Fetched   int `json:"fetched"`
	Processed int `json:"processed"`
	Created   int `json:"created"`
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	StartedAt    time.Time        `json:"startedAt"`
	Duration     time.Duration    `json:"duration"`
	CatchUp      CatchUpReport    `json:"catchUp"`
	Evicted      int              `json:"evicted"`
	Reconcile    reconcile.Report `json:"reconcile"`
	CatchUpError string           `json:"catchUpError,omitempty"`
	ReconcileErr string           `json:"reconcileError,omitempty"`

	errs []error
}

// Err joins the errors met during the sweep.
func (r *SweepReport) Err() error {
	return errors.Join(r.errs...)
}

// CatchUp fetches the trailing history window and runs every message that
// is not yet recorded through the pipeline, oldest first.
func (s *Service) CatchUp(ctx context.Context) (CatchUpReport, error) {
	var report CatchUpReport
	if s.source == nil || s.channelID == "" {
		return report, nil
	}

	since := s.now().Add(-s.catchupWindow)
	msgs, err := s.source.History(ctx, s.channelID, since, s.catchupLimit)
	if err != nil {
		metrics.RecordCollaboratorError("history")
		err = collaboratorError("history", err)
		s.logger.Error(ctx, "failed to fetch channel history", logger.Error(err))
		return report, err
	}
	report.Fetched = len(msgs)

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].SentAt.Before(msgs[j].SentAt) })
	for _, msg := range msgs {
		if !s.tracker.ShouldProcess(ctx, msg.ID) {
			continue
		}
		out := s.Process(ctx, msg, model.TriggerCatchUp)
		if out.Status == StatusIgnored || out.Status == StatusDuplicate {
			continue
		}
		report.Processed++
		report.Created += len(out.Created)
	}

	if report.Processed > 0 {
		s.logger.Info(ctx, "caught up on missed messages",
			logger.Int("fetched", report.Fetched),
			logger.Int("processed", report.Processed),
			logger.Int("created", report.Created),
		)
	}
	return report, nil
}

// Sweep runs catch-up, evicts expired tracker records and reconciles the
// near-term calendar window. A failing step is logged and the remaining
// steps still run.
func (s *Service) Sweep(ctx context.Context) *SweepReport {
	defer s.sweepPending.Store(false)

	start := s.now()
	report := &SweepReport{StartedAt: start}

	catchUp, err := s.CatchUp(ctx)
	report.CatchUp = catchUp
	if err != nil {
		report.CatchUpError = err.Error()
		report.errs = append(report.errs, err)
	}

	cutoff := s.now().Add(-s.retention)
	report.Evicted = s.tracker.EvictOlderThan(ctx, cutoff)
	s.forgetFailuresBefore(cutoff)

	rec, err := s.reconciler.Run(ctx, s.now())
	report.Reconcile = rec
	if err != nil {
		report.ReconcileErr = err.Error()
		report.errs = append(report.errs, err)
		s.logger.Error(ctx, "calendar reconciliation failed", logger.Error(err))
	}

	report.Duration = s.now().Sub(start)
	metrics.RecordSweepDuration(float64(report.Duration.Milliseconds()))
	s.lastSweep.Store(report)

	s.logger.Debug(ctx, "sweep finished",
		logger.Int("fetched", report.CatchUp.Fetched),
		logger.Int("processed", report.CatchUp.Processed),
		logger.Int("evicted", report.Evicted),
		logger.Int("duplicates_deleted", report.Reconcile.Deleted),
		logger.Duration("took", report.Duration),
	)
	return report
}
