// Package parsecheck runs the announcement parser over saved messages and
// prints the events the bot would create, without touching Discord or a
// calendar.
package parsecheck

import (
	"io"
)

// DefaultSeparator splits messages in text input.
const DefaultSeparator = "---"

// ShowHelp prints usage information for the parse-messages tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Buff Announcement Parse Check
=============================

Runs the announcement parser over saved messages and prints the calendar
events the bot would create as JSON.

Usage:
  go run ./cmd/parse-messages [options] [file]

Messages are separated by a line holding only the separator. Without a file
argument, or with "-", messages are read from stdin.

Options:
  -tz string
        Server timezone (default "Europe/Stockholm")
  -now string
        Reference time for "today", RFC3339 (default: current time)
  -sep string
        Message separator line (default "---")
  -pretty
        Indent the JSON output
  -verbose
        Enable debug logging (tokens found per message)
  -help
        Show this help message

Examples:
  # Check one announcement
  echo "<Victory> will pop @RendBuff - 14:00" | go run ./cmd/parse-messages -pretty

  # Replay an exported channel against a fixed day
  go run ./cmd/parse-messages -now 2025-02-27T12:00:00+01:00 export.txt
`)
}
