// Package service wires the parser, the processed message tracker and the
// calendar reconciler into the bot's message pipeline.
//
// Every unit of work (a new message, an edited message, a periodic sweep) is
// queued as a model.Job and executed by a worker pool. With the default of one
// worker, job bodies never overlap.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	eventqueue "github.com/okian/buffcal/internal/adapters/mq/queue"
	workerpool "github.com/okian/buffcal/internal/adapters/mq/worker"
	"github.com/okian/buffcal/internal/domain/dedupe"
	"github.com/okian/buffcal/internal/domain/model"
	"github.com/okian/buffcal/internal/domain/parse"
	"github.com/okian/buffcal/internal/domain/reconcile"
	"github.com/okian/buffcal/pkg/logger"
	"github.com/okian/buffcal/pkg/metrics"
)

// Default service configuration.
const (
	DefaultRetention        = time.Hour
	DefaultSyncInterval     = 5 * time.Minute
	DefaultCatchUpWindow    = time.Hour
	DefaultCatchUpLimit     = 50
	DefaultReconcileHorizon = reconcile.DefaultHorizon
	defaultQueueSize        = 256
	defaultWorkerCount      = 1
	stopTimeout             = 30 * time.Second
)

// Service runs chat messages through parse, create and record.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	calendar   Calendar
	source     MessageSource
	tracker    dedupe.Deduper
	parser     *parse.Parser
	reconciler *reconcile.Reconciler

	// Runtime
	queue     eventqueue.Queue
	pool      *workerpool.Pool
	scheduler *cron.Cron

	// Configuration
	channelID        string
	retention        time.Duration
	syncInterval     time.Duration
	catchupWindow    time.Duration
	catchupLimit     int
	reconcileHorizon time.Duration
	workerCount      int
	queueSize        int
	startupSweep     bool
	now              func() time.Time

	// State
	started      bool
	sweepPending atomic.Bool
	lastSweep    atomic.Pointer[SweepReport]

	// Messages whose inserts all failed, by first failure time.
	failMu   sync.Mutex
	failedAt map[string]time.Time

	logger logger.Logger
}

// New constructs a Service. A calendar is required; the tracker defaults to
// an in-memory one and the parser to the built-in categories.
func New(ctx context.Context, opts ...Option) (*Service, error) {
	s := &Service{
		retention:        DefaultRetention,
		syncInterval:     DefaultSyncInterval,
		catchupWindow:    DefaultCatchUpWindow,
		catchupLimit:     DefaultCatchUpLimit,
		reconcileHorizon: DefaultReconcileHorizon,
		workerCount:      defaultWorkerCount,
		queueSize:        defaultQueueSize,
		startupSweep:     true,
		now:              time.Now,
		failedAt:         make(map[string]time.Time),
		logger:           logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.calendar == nil {
		return nil, ErrNoCalendar
	}
	if s.tracker == nil {
		s.tracker = dedupe.NewTracker(ctx)
	}
	if s.parser == nil {
		s.parser = parse.New()
	}
	s.reconciler = reconcile.New(s.calendar, reconcile.WithHorizon(s.reconcileHorizon))

	return s, nil
}

// Start creates the job queue, starts the worker pool and schedules the
// periodic sweep.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(ctx)

	s.scheduler = newScheduler(s.logger.Named("cron"))
	if _, err := s.scheduler.AddFunc(everySpec(s.syncInterval), func() { s.RequestSweep(ctx) }); err != nil {
		_ = s.pool.Shutdown(ctx)
		return err
	}
	s.scheduler.Start()

	s.started = true
	s.logger.Info(ctx, "buff calendar service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Duration("sync_interval", s.syncInterval),
		logger.Duration("retention", s.retention),
		logger.String("channel_id", s.channelID),
	)

	if s.startupSweep {
		s.requestSweepLocked(ctx)
	}
	return nil
}

// Stop halts the scheduler, then drains and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	scheduler, pool := s.scheduler, s.pool
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping buff calendar service...")

	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	err := pool.Shutdown(stopCtx)

	s.logger.Info(ctx, "buff calendar service stopped")
	return err
}

// Submit queues a message for processing.
func (s *Service) Submit(ctx context.Context, msg model.Message, trigger model.Trigger) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}
	metrics.RecordMessageReceived(string(trigger))

	err := s.queue.Enqueue(ctx, model.Job{
		Kind:       model.JobMessage,
		Trigger:    trigger,
		Message:    msg,
		EnqueuedAt: s.now(),
	})
	if err != nil {
		s.logger.Warn(ctx, "failed to queue message",
			logger.String("message_id", msg.ID),
			logger.String("trigger", string(trigger)),
			logger.Error(err),
		)
	}
	return err
}

// Handle executes one queued job. It implements the worker handler.
func (s *Service) Handle(ctx context.Context, job model.Job) error { //nolint:gocritic // hugeParam: Job is passed by value through the queue
	switch job.Kind {
	case model.JobSweep:
		report := s.Sweep(ctx)
		return report.Err()
	case model.JobMessage:
		return s.Process(ctx, job.Message, job.Trigger).Err
	default:
		return errors.New("unknown job kind")
	}
}

// RequestSweep queues a sweep unless one is already waiting. It reports
// whether a new sweep job was queued.
func (s *Service) RequestSweep(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requestSweepLocked(ctx)
}

func (s *Service) requestSweepLocked(ctx context.Context) bool {
	if !s.started {
		return false
	}
	if !s.sweepPending.CompareAndSwap(false, true) {
		s.logger.Debug(ctx, "sweep already pending")
		return false
	}
	if err := s.queue.Enqueue(ctx, model.Job{Kind: model.JobSweep, EnqueuedAt: s.now()}); err != nil {
		s.sweepPending.Store(false)
		s.logger.Warn(ctx, "failed to queue sweep", logger.Error(err))
		return false
	}
	return true
}

// Stats is a point-in-time view of the service for the ops endpoint.
type Stats struct {
	Started       bool         `json:"started"`
	Workers       int          `json:"workers"`
	QueueLength   int          `json:"queueLength"`
	QueueCapacity int          `json:"queueCapacity"`
	TrackedIDs    int64        `json:"trackedIds"`
	ChannelID     string       `json:"channelId,omitempty"`
	SyncInterval  string       `json:"syncInterval"`
	Retention     string       `json:"retention"`
	LastSweep     *SweepReport `json:"lastSweep,omitempty"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:       s.started,
		Workers:       s.workerCount,
		QueueCapacity: s.queueSize,
		TrackedIDs:    s.tracker.Size(),
		ChannelID:     s.channelID,
		SyncInterval:  s.syncInterval.String(),
		Retention:     s.retention.String(),
		LastSweep:     s.lastSweep.Load(),
	}
	if s.started {
		stats.Workers = s.pool.Size()
		stats.QueueLength = s.queue.Len()
		metrics.UpdateQueueSize(stats.QueueLength)
	}
	return stats
}

// Ready reports whether the service accepts messages.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
