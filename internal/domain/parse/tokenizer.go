package parse

import (
	"regexp"
	"strings"
)

var (
	guildRe = regexp.MustCompile(`<([^>]+)>`)

	// A period-delimited date needs its year, otherwise "18.45" would be
	// taken for the 18th of a 45th month instead of a time.
	dateRe = regexp.MustCompile(`(?i)\b\d{1,2}[-/.]\d{1,2}[-/.](?:\d{4}|\d{2})\b|\b\d{1,2}[-/]\d{1,2}\b|\btonight\b`)

	// The zone marker may follow the minutes directly, as in "18.45ST".
	timeRe = regexp.MustCompile(`\b(\d{1,2}[:.]\d{2})(?:\s*(?i:CEST|CET|ST))?\b|\b(\d{4})\b`)
)

const tonightKeyword = "tonight"

// Tokens are the raw pieces of a message, in order of appearance.
type Tokens struct {
	Guild    string
	Dates    []string // explicit date tokens, "tonight" excluded
	Tonight  bool     // the keyword appeared anywhere in the text
	Times    []string // HH:MM, 24-hour
	Mentions []string // canonical spelling
}

// Tokenize extracts the guild label, dates, times and mentions from text.
// Date tokens are cut out of the text before mentions and times are searched,
// so a year or a day/month pair is never read as a time.
func (p *Parser) Tokenize(text string) Tokens {
	tokens := Tokens{Guild: UnknownGuild}

	if m := guildRe.FindStringSubmatch(text); m != nil {
		if g := strings.TrimSpace(m[1]); g != "" {
			tokens.Guild = g
		}
	}

	var stripped strings.Builder
	last := 0
	for _, loc := range dateRe.FindAllStringIndex(text, -1) {
		if adjoinsTime(text, loc[0], loc[1]) {
			continue
		}
		if d := text[loc[0]:loc[1]]; strings.EqualFold(d, tonightKeyword) {
			tokens.Tonight = true
		} else {
			tokens.Dates = append(tokens.Dates, d)
		}
		stripped.WriteString(text[last:loc[0]])
		stripped.WriteByte(' ')
		last = loc[1]
	}
	stripped.WriteString(text[last:])
	body := stripped.String()

	for _, m := range p.mentionRe.FindAllString(body, -1) {
		tokens.Mentions = append(tokens.Mentions, p.canonicalMention(m))
	}

	for _, m := range timeRe.FindAllStringSubmatch(body, -1) {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		tokens.Times = append(tokens.Times, NormalizeTime(raw))
	}

	return tokens
}

// adjoinsTime reports whether the date match text[start:end] is glued to a
// clock value by ':' or '.', as "00-22" is inside "20:00-22:00". Such a
// match is part of a time range, not a date.
func adjoinsTime(text string, start, end int) bool {
	if start >= 2 && isClockSep(text[start-1]) && isDigit(text[start-2]) {
		return true
	}
	return end+1 < len(text) && isClockSep(text[end]) && isDigit(text[end+1])
}

func isClockSep(b byte) bool { return b == ':' || b == '.' }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
