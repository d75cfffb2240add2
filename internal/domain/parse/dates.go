package parse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout     = "02-01-2006"
	dateTimeLayout = "02-01-2006 15:04"
	centuryPrefix  = "20"
)

var dateSeparators = strings.NewReplacer("/", "-", ".", "-")

// NormalizeDate converts a raw date token into DD-MM-YYYY. "tonight" maps to
// the calendar date of now. A missing year becomes now's year and a two-digit
// year is prefixed with "20". The result must be a real calendar date.
func NormalizeDate(raw string, now time.Time) (string, error) {
	token := strings.TrimSpace(raw)
	if strings.EqualFold(token, tonightKeyword) {
		return now.Format(dateLayout), nil
	}

	parts := strings.Split(dateSeparators.Replace(token), "-")
	if len(parts) < 2 || len(parts) > 3 {
		return "", fmt.Errorf("%w: %q has %d components", ErrInvalidDate, raw, len(parts))
	}

	day, ok := padComponent(parts[0])
	if !ok {
		return "", fmt.Errorf("%w: %q: bad day", ErrInvalidDate, raw)
	}
	month, ok := padComponent(parts[1])
	if !ok {
		return "", fmt.Errorf("%w: %q: bad month", ErrInvalidDate, raw)
	}

	year := strconv.Itoa(now.Year())
	if len(parts) == 3 {
		y := parts[2]
		if !isDigits(y) {
			return "", fmt.Errorf("%w: %q: bad year", ErrInvalidDate, raw)
		}
		switch len(y) {
		case 2:
			year = centuryPrefix + y
		case 4:
			year = y
		default:
			return "", fmt.Errorf("%w: %q: year must have 2 or 4 digits", ErrInvalidDate, raw)
		}
	}

	out := day + "-" + month + "-" + year
	if _, err := time.Parse(dateLayout, out); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidDate, raw, err)
	}
	return out, nil
}

// NormalizeTime converts "H:MM", "H.MM" or "HHMM" into "HH:MM". Range checks
// happen when the time is combined with a date.
func NormalizeTime(raw string) string {
	t := strings.ReplaceAll(strings.TrimSpace(raw), ".", ":")
	if !strings.Contains(t, ":") && len(t) == 4 {
		t = t[:2] + ":" + t[2:]
	}
	if i := strings.Index(t, ":"); i == 1 {
		t = "0" + t
	}
	return t
}

func padComponent(s string) (string, bool) {
	if len(s) == 0 || len(s) > 2 || !isDigits(s) {
		return "", false
	}
	if len(s) == 1 {
		return "0" + s, true
	}
	return s, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
