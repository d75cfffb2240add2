package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/buffcal/internal/domain/model"
	"github.com/okian/buffcal/internal/domain/parse"
	"github.com/okian/buffcal/pkg/logger"
	"github.com/okian/buffcal/pkg/metrics"
)

// Reply texts posted under the originating message.
const (
	replySuccessPrefix = "✅ Event added to Google Calendar: "
	replyFailure       = "❌ Failed to add event to Google Calendar."
	replyWhenLayout    = "02-01-2006 15:04 (MST)"
)

// Status is the coarse result of running one message through the pipeline.
type Status string

const (
	StatusIgnored   Status = "ignored"    // bot author, other channel, deleted or empty
	StatusDuplicate Status = "duplicate"  // already recorded
	StatusNoMention Status = "no_mention" // no recognized category
	StatusNoEvents  Status = "no_events"  // mention without a usable date/time
	StatusScheduled Status = "scheduled"  // every event created
	StatusPartial   Status = "partial"    // some events created
	StatusFailed    Status = "failed"     // nothing created
)

// Outcome is the explicit result of Process.
type Outcome struct {
	MessageID string
	Trigger   model.Trigger
	Status    Status
	Created   []model.CalendarEntry
	Skipped   []error // parse failures for single tokens or events
	Failed    int     // calendar inserts that failed
	Err       error   // first collaborator error, if any
}

// Process runs msg through parse, create and record.
//
// The message ID is claimed in the tracker before any calendar call, so a
// concurrent delivery of the same message is reported as a duplicate. The
// claim is released again when nothing could be assembled or every insert
// failed, letting an edit or a later catch-up pass retry the message.
func (s *Service) Process(ctx context.Context, msg model.Message, trigger model.Trigger) Outcome {
	out := Outcome{MessageID: msg.ID, Trigger: trigger}

	if reason := s.ignoreReason(msg); reason != "" {
		out.Status = StatusIgnored
		s.logger.Debug(ctx, "ignoring message",
			logger.String("message_id", msg.ID),
			logger.String("reason", reason),
		)
		return out
	}

	if !s.tracker.ShouldProcess(ctx, msg.ID) {
		return s.duplicate(ctx, out)
	}

	if msg.Text == "" && trigger == model.TriggerUpdate {
		fetched, err := s.fetch(ctx, msg)
		switch {
		case errors.Is(err, ErrMessageNotFound):
			out.Status = StatusIgnored
			return out
		case err != nil:
			out.Status = StatusFailed
			out.Err = err
			return out
		}
		msg = fetched
		if reason := s.ignoreReason(msg); reason != "" {
			out.Status = StatusIgnored
			return out
		}
	}

	if s.tracker.SeenAndRecord(ctx, msg.ID, s.now()) {
		return s.duplicate(ctx, out)
	}

	res, err := s.parser.Parse(ctx, msg.Text)
	out.Skipped = res.Skipped
	if len(res.Skipped) > 0 {
		metrics.RecordEventsSkipped(len(res.Skipped))
	}
	if errors.Is(err, parse.ErrNoMention) {
		s.tracker.Unrecord(ctx, msg.ID)
		metrics.RecordMessageUnparsed()
		s.logger.Info(ctx, "couldn't parse message", logger.String("message_id", msg.ID))
		out.Status = StatusNoMention
		return out
	}
	if len(res.Events) == 0 {
		s.tracker.Unrecord(ctx, msg.ID)
		metrics.RecordMessageUnparsed()
		s.logger.Info(ctx, "no events in message",
			logger.String("message_id", msg.ID),
			logger.Int("skipped", len(res.Skipped)),
		)
		out.Status = StatusNoEvents
		return out
	}

	// A catch-up retry of a message whose inserts all failed before stays
	// silent on failure; the notice is already under the message.
	quiet := trigger == model.TriggerCatchUp && s.failedBefore(msg.ID)

	for _, ev := range res.Events {
		created, err := s.calendar.Insert(ctx, ev.Entry())
		if err != nil {
			out.Failed++
			if out.Err == nil {
				out.Err = err
			}
			s.logger.Error(ctx, "error adding event",
				logger.String("message_id", msg.ID),
				logger.String("mention", ev.Mention),
				logger.Time("start", ev.Start),
				logger.Error(err),
			)
			if !quiet {
				s.reply(ctx, msg, replyFailure)
			}
			continue
		}

		metrics.RecordEventCreated()
		out.Created = append(out.Created, created)
		s.logger.Info(ctx, "event added to calendar",
			logger.String("message_id", msg.ID),
			logger.String("title", created.Title),
			logger.Time("start", ev.Start),
			logger.String("link", created.Link),
		)
		s.reply(ctx, msg, successReply(ev.Start.In(s.parser.Location()), created.Link))
	}

	if len(out.Created) == 0 {
		s.noteFailure(msg.ID)
	} else {
		s.clearFailure(msg.ID)
	}

	switch {
	case len(out.Created) == 0:
		s.tracker.Unrecord(ctx, msg.ID)
		out.Status = StatusFailed
	case out.Failed > 0:
		out.Status = StatusPartial
	default:
		out.Status = StatusScheduled
	}
	return out
}

func (s *Service) ignoreReason(msg model.Message) string {
	switch {
	case msg.ID == "":
		return "missing id"
	case msg.AuthorIsBot:
		return "bot author"
	case s.channelID != "" && msg.ChannelID != "" && msg.ChannelID != s.channelID:
		return "other channel"
	}
	return ""
}

func (s *Service) duplicate(ctx context.Context, out Outcome) Outcome {
	metrics.RecordMessageDuplicate()
	s.logger.Debug(ctx, "message already processed", logger.String("message_id", out.MessageID))
	out.Status = StatusDuplicate
	return out
}

// fetch loads the current content of an edited message.
func (s *Service) fetch(ctx context.Context, msg model.Message) (model.Message, error) {
	if s.source == nil {
		return model.Message{}, ErrMessageNotFound
	}
	channelID := msg.ChannelID
	if channelID == "" {
		channelID = s.channelID
	}
	fetched, err := s.source.Message(ctx, channelID, msg.ID)
	if errors.Is(err, ErrMessageNotFound) {
		s.logger.Debug(ctx, "edited message no longer exists", logger.String("message_id", msg.ID))
		return model.Message{}, err
	}
	if err != nil {
		metrics.RecordCollaboratorError("fetch")
		s.logger.Error(ctx, "failed to fetch edited message",
			logger.String("message_id", msg.ID),
			logger.Error(err),
		)
		return model.Message{}, collaboratorError("fetch", err)
	}
	return fetched, nil
}

func (s *Service) reply(ctx context.Context, msg model.Message, text string) {
	if s.source == nil {
		return
	}
	if err := s.source.Reply(ctx, msg, text); err != nil {
		metrics.RecordCollaboratorError("reply")
		s.logger.Warn(ctx, "failed to reply",
			logger.String("message_id", msg.ID),
			logger.Error(collaboratorError("reply", err)),
		)
	}
}

func successReply(start time.Time, link string) string {
	text := replySuccessPrefix + start.Format(replyWhenLayout)
	if link != "" {
		text = fmt.Sprintf("%s %s", text, link)
	}
	return text
}

func (s *Service) failedBefore(id string) bool {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	_, ok := s.failedAt[id]
	return ok
}

func (s *Service) noteFailure(id string) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if _, ok := s.failedAt[id]; !ok {
		s.failedAt[id] = s.now()
	}
}

func (s *Service) clearFailure(id string) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	delete(s.failedAt, id)
}

// forgetFailuresBefore drops failure notes older than cutoff.
func (s *Service) forgetFailuresBefore(cutoff time.Time) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	for id, at := range s.failedAt {
		if at.Before(cutoff) {
			delete(s.failedAt, id)
		}
	}
}
