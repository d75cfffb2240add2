package parsecheck

import "time"

// Config holds configuration for one parse check run.
type Config struct {
	Input     string    // file to read, "-" or empty for stdin
	Timezone  string    // IANA zone messages are read in
	Now       time.Time // reference instant for "today"; zero means the wall clock
	Separator string    // line separating two messages
	Pretty    bool      // indent the JSON output
	Verbose   bool      // enable debug logging
}

// EventReport is one candidate event in the output.
type EventReport struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       string `json:"start"`
	Color       string `json:"color"`
}

// MessageReport is the parse result of one input message.
type MessageReport struct {
	Index     int           `json:"index"`
	Guild     string        `json:"guild"`
	NoMention bool          `json:"noMention,omitempty"`
	Events    []EventReport `json:"events"`
	Skipped   []string      `json:"skipped,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	Messages  int
	Events    int
	Skipped   int
	NoMention int
}
