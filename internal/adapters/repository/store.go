// Package repository holds the durable stores behind the processed message
// tracker.
package repository

import (
	"strings"
	"time"

	"github.com/okian/buffcal/internal/domain/dedupe"
)

var (
	_ dedupe.Store = (*JSONStore)(nil)
	_ dedupe.Store = (*SQLiteStore)(nil)
)

// timestampLayouts are tried in order when reading a stored timestamp.
// Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp accepts RFC 3339 as well as zone-less ISO timestamps such as
// "2025-02-27T18:45:00.123456".
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
