package parse

import (
	"fmt"
	"time"

	"github.com/okian/buffcal/internal/domain/model"
)

// Assemble pairs tokens into candidate events.
//
// One event is produced per time token. Event i uses dates[i] and
// mentions[i], falling back to the last element of each list when it is
// shorter than the time list. Invalid dates are dropped before pairing; if
// none remain, today is used for every time. The "tonight" keyword appends
// today to whatever explicit dates were found.
//
// A date/time pair that does not parse skips only that event.
func (p *Parser) Assemble(tokens Tokens) Result {
	res := Result{Guild: tokens.Guild}
	if len(tokens.Mentions) == 0 || len(tokens.Times) == 0 {
		return res
	}

	now := p.now().In(p.loc)

	dates := make([]string, 0, len(tokens.Dates)+1)
	for _, raw := range tokens.Dates {
		d, err := NormalizeDate(raw, now)
		if err != nil {
			res.Skipped = append(res.Skipped, err)
			continue
		}
		dates = append(dates, d)
	}
	if tokens.Tonight {
		dates = append(dates, now.Format(dateLayout))
	}
	if len(dates) == 0 {
		today := now.Format(dateLayout)
		for range tokens.Times {
			dates = append(dates, today)
		}
	}

	for i, clock := range tokens.Times {
		date := pick(dates, i)
		mention := pick(tokens.Mentions, i)

		start, err := time.ParseInLocation(dateTimeLayout, date+" "+clock, p.loc)
		if err != nil {
			res.Skipped = append(res.Skipped, fmt.Errorf("%w: %s %s: %v", ErrInvalidTime, date, clock, err))
			continue
		}

		res.Events = append(res.Events, model.CandidateEvent{
			Mention: mention,
			Start:   start,
			Color:   p.ColorFor(mention),
			Guild:   tokens.Guild,
		})
	}

	return res
}

// pick returns list[i], or the last element when i is past the end.
func pick(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return list[len(list)-1]
}
