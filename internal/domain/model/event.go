// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Message is an inbound chat message as delivered by the chat source.
type Message struct {
	ID          string    // unique id for idempotency
	ChannelID   string    // channel the message was posted in
	AuthorIsBot bool      // messages from bots are ignored
	Text        string    // raw message body
	SentAt      time.Time // when the message was posted
}

// CandidateEvent is a single buff announcement extracted from a message.
// Start and end are the same instant; the calendar entry is a marker.
type CandidateEvent struct {
	Mention string    // canonical mention, e.g. "@RendBuff"
	Start   time.Time // start instant in the server timezone
	Color   string    // calendar colour id derived from the mention
	Guild   string    // guild label or "Unknown"
}

// Title is the calendar title: the mention without its leading "@".
func (e CandidateEvent) Title() string {
	return strings.TrimPrefix(e.Mention, "@")
}

// Description is the calendar description naming the announcing guild.
func (e CandidateEvent) Description() string {
	return "Buff by " + e.Guild
}

// Entry converts the candidate into the calendar write shape.
func (e CandidateEvent) Entry() CalendarEntry {
	return CalendarEntry{
		Title:       e.Title(),
		Description: e.Description(),
		Start:       e.Start,
		End:         e.Start,
		Color:       e.Color,
	}
}

// CalendarEntry is the read and write shape of a calendar collaborator.
type CalendarEntry struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Color       string
	Link        string // view URL returned on insert
}

// Trigger names what caused a message to enter the pipeline.
type Trigger string

const (
	TriggerCreate  Trigger = "create"
	TriggerUpdate  Trigger = "update"
	TriggerCatchUp Trigger = "catchup"
)

// JobKind selects how a worker handles a Job.
type JobKind int

const (
	// JobMessage runs one message through the pipeline.
	JobMessage JobKind = iota
	// JobSweep runs catch-up, eviction and reconciliation.
	JobSweep
)

// Job is the unit of work flowing through the queue.
type Job struct {
	Kind       JobKind
	Trigger    Trigger
	Message    Message
	EnqueuedAt time.Time
}
