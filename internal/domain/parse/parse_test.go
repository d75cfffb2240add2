package parse_test

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/okian/buffcal/internal/domain/parse"
	"github.com/okian/buffcal/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func stockholm() *time.Location {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		panic(err)
	}
	return loc
}

func newParser() (*parse.Parser, time.Time) {
	loc := stockholm()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)
	return parse.New(parse.WithLocation(loc), parse.WithClock(func() time.Time { return now })), now
}

func TestTokenize(t *testing.T) {
	Convey("Given a parser", t, func() {
		p, _ := newParser()

		Convey("When the message has a guild, dates, times and mentions", func() {
			tokens := p.Tokenize("<Mortal>\n:ony: - 28.02.2025 - 19:45\n:ony: - 01.03.2025 - 19:45\n@Onyxia Alliance")

			Convey("Then each list is in order of appearance", func() {
				So(tokens.Guild, ShouldEqual, "Mortal")
				So(tokens.Dates, ShouldResemble, []string{"28.02.2025", "01.03.2025"})
				So(tokens.Times, ShouldResemble, []string{"19:45", "19:45"})
				So(tokens.Mentions, ShouldResemble, []string{"@Onyxia Alliance"})
				So(tokens.Tonight, ShouldBeFalse)
			})
		})

		Convey("When there is no guild label", func() {
			tokens := p.Tokenize("@RendBuff 20:00")

			Convey("Then the guild is Unknown", func() {
				So(tokens.Guild, ShouldEqual, parse.UnknownGuild)
			})
		})

		Convey("When the year could be read as a time", func() {
			tokens := p.Tokenize("@RendBuff 27/02/2025 - 18.45 ST")

			Convey("Then the date is removed before times are searched", func() {
				So(tokens.Dates, ShouldResemble, []string{"27/02/2025"})
				So(tokens.Times, ShouldResemble, []string{"18:45"})
			})
		})

		Convey("When times use periods, four-digit runs or a single-digit hour", func() {
			tokens := p.Tokenize("@RendBuff 19.45 then 2000 then 9:05 CET")

			Convey("Then they are normalized to HH:MM", func() {
				So(tokens.Times, ShouldResemble, []string{"19:45", "20:00", "09:05"})
			})
		})

		Convey("When the tonight keyword appears in any case", func() {
			tokens := p.Tokenize("@Onyxia Horde TONIGHT 23:00")

			Convey("Then it is flagged and not kept as an explicit date", func() {
				So(tokens.Tonight, ShouldBeTrue)
				So(tokens.Dates, ShouldBeEmpty)
			})
		})

		Convey("When mentions differ in case", func() {
			tokens := p.Tokenize("@rendbuff 14:00 @ONYXIA HORDE 15:00")

			Convey("Then the canonical spelling is reported", func() {
				So(tokens.Mentions, ShouldResemble, []string{"@RendBuff", "@Onyxia Horde"})
			})
		})

		Convey("When the zone marker follows the minutes directly", func() {
			Convey("Then the time is still found", func() {
				for _, text := range []string{
					"@Onyxia Alliance 27/02/2025 - 18.45ST",
					"@Onyxia Alliance 27/02/2025 - 18:45CET",
					"@Onyxia Alliance 27/02/2025 - 18:45cest",
				} {
					tokens := p.Tokenize(text)
					So(tokens.Dates, ShouldResemble, []string{"27/02/2025"})
					So(tokens.Times, ShouldResemble, []string{"18:45"})
				}
			})
		})

		Convey("When the message gives a time range", func() {
			tokens := p.Tokenize("@RendBuff 20:00-22:00")

			Convey("Then both ends are times and nothing is a date", func() {
				So(tokens.Dates, ShouldBeEmpty)
				So(tokens.Times, ShouldResemble, []string{"20:00", "22:00"})
			})

			Convey("And a period range behaves the same", func() {
				tokens := p.Tokenize("@RendBuff 20.00-22.00")
				So(tokens.Dates, ShouldBeEmpty)
				So(tokens.Times, ShouldResemble, []string{"20:00", "22:00"})
			})
		})

		Convey("When a date ends a sentence", func() {
			tokens := p.Tokenize("@RendBuff 19:00 on 27.02.2025.")

			Convey("Then it is still a date", func() {
				So(tokens.Dates, ShouldResemble, []string{"27.02.2025"})
				So(tokens.Times, ShouldResemble, []string{"19:00"})
			})
		})

		Convey("When a yearless date is present", func() {
			tokens := p.Tokenize("@RendBuff 5/3 20:00")

			Convey("Then it is a date token, not a time", func() {
				So(tokens.Dates, ShouldResemble, []string{"5/3"})
				So(tokens.Times, ShouldResemble, []string{"20:00"})
			})
		})
	})
}

func TestNormalizeDate(t *testing.T) {
	Convey("Given date tokens", t, func() {
		now := time.Date(2025, 3, 10, 12, 0, 0, 0, stockholm())

		cases := []struct {
			raw  string
			want string
		}{
			{"05-03-25", "05-03-2025"},
			{"5-3-2025", "05-03-2025"},
			{"5-3", "05-03-2025"},
			{"27/02/2025", "27-02-2025"},
			{"28.02.2025", "28-02-2025"},
			{"1/1/30", "01-01-2030"},
			{"tonight", "10-03-2025"},
			{"Tonight", "10-03-2025"},
		}
		for _, tc := range cases {
			got, err := parse.NormalizeDate(tc.raw, now)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, tc.want)
		}

		Convey("When the year is missing in a later year", func() {
			got, err := parse.NormalizeDate("5-3", now.AddDate(1, 0, 0))
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "05-03-2026")
		})

		Convey("When the token is malformed", func() {
			for _, raw := range []string{"99-99-9999", "5", "1-2-3-4", "31-02-2025", "5-3-202", "a-b-2025", "123-1-2025", "", "0-1-2025"} {
				_, err := parse.NormalizeDate(raw, now)
				So(errors.Is(err, parse.ErrInvalidDate), ShouldBeTrue)
			}
		})
	})
}

func TestNormalizeTime(t *testing.T) {
	Convey("Given time tokens", t, func() {
		So(parse.NormalizeTime("19.45"), ShouldEqual, "19:45")
		So(parse.NormalizeTime("2000"), ShouldEqual, "20:00")
		So(parse.NormalizeTime("9:05"), ShouldEqual, "09:05")
		So(parse.NormalizeTime("14:00"), ShouldEqual, "14:00")
	})
}

func TestParse(t *testing.T) {
	ctx := context.Background()

	Convey("Given a parser in the server timezone", t, func() {
		p, now := newParser()
		loc := p.Location()

		Convey("When parsing the Victory RendBuff announcement", func() {
			res, err := p.Parse(ctx, "<Victory> will pop @RendBuff - 14:00\n<Victory> will pop @RendBuff - 17:01")

			Convey("Then two events are dated today", func() {
				So(err, ShouldBeNil)
				So(res.Events, ShouldHaveLength, 2)
				So(res.Events[0].Start.Equal(time.Date(2025, 3, 10, 14, 0, 0, 0, loc)), ShouldBeTrue)
				So(res.Events[1].Start.Equal(time.Date(2025, 3, 10, 17, 1, 0, 0, loc)), ShouldBeTrue)
				for _, ev := range res.Events {
					So(ev.Mention, ShouldEqual, "@RendBuff")
					So(ev.Color, ShouldEqual, "11")
					So(ev.Guild, ShouldEqual, "Victory")
				}
			})
		})

		Convey("When parsing the Onyxia Alliance announcement", func() {
			res, err := p.Parse(ctx, "@Onyxia Alliance 27/02/2025 - 18.45 ST")

			Convey("Then one event lands on the explicit date", func() {
				So(err, ShouldBeNil)
				So(res.Events, ShouldHaveLength, 1)
				ev := res.Events[0]
				So(ev.Start.Equal(time.Date(2025, 2, 27, 18, 45, 0, 0, loc)), ShouldBeTrue)
				So(ev.Start.Location(), ShouldEqual, loc)
				So(ev.Mention, ShouldEqual, "@Onyxia Alliance")
				So(ev.Color, ShouldEqual, "7")
				So(ev.Guild, ShouldEqual, parse.UnknownGuild)
			})
		})

		Convey("When there are more times than mentions", func() {
			res, err := p.Parse(ctx, "@RendBuff 14:00 @Onyxia Horde 15:00 and again 16:00")

			Convey("Then the last mention is reused", func() {
				So(err, ShouldBeNil)
				So(res.Events, ShouldHaveLength, 3)
				So(res.Events[0].Mention, ShouldEqual, "@RendBuff")
				So(res.Events[1].Mention, ShouldEqual, "@Onyxia Horde")
				So(res.Events[2].Mention, ShouldEqual, "@Onyxia Horde")
			})
		})

		Convey("When there are more mentions than times", func() {
			res, err := p.Parse(ctx, "@RendBuff @Onyxia Horde @Onyxia Alliance 20:00")

			Convey("Then the event count follows the times", func() {
				So(err, ShouldBeNil)
				So(res.Events, ShouldHaveLength, 1)
				So(res.Events[0].Mention, ShouldEqual, "@RendBuff")
			})
		})

		Convey("When dates are listed per line", func() {
			res, err := p.Parse(ctx, "<Mortal>\n- 28.02.2025 - 19:45\n- 01.03.2025 - 19:45\n- 02.03.2025 - 19:45\n@Onyxia Alliance")

			Convey("Then each time gets its own date", func() {
				So(err, ShouldBeNil)
				So(res.Events, ShouldHaveLength, 3)
				So(res.Events[0].Start.Format("02-01-2006"), ShouldEqual, "28-02-2025")
				So(res.Events[1].Start.Format("02-01-2006"), ShouldEqual, "01-03-2025")
				So(res.Events[2].Start.Format("02-01-2006"), ShouldEqual, "02-03-2025")
			})
		})

		Convey("When there are fewer dates than times", func() {
			res, err := p.Parse(ctx, "@RendBuff 28-02-2025 14:00 17:00")

			Convey("Then the last date is reused", func() {
				So(err, ShouldBeNil)
				So(res.Events, ShouldHaveLength, 2)
				So(res.Events[1].Start.Format("02-01-2006 15:04"), ShouldEqual, "28-02-2025 17:00")
			})
		})

		Convey("When tonight appears with an explicit date", func() {
			res, err := p.Parse(ctx, "<Nihilum> Will pop @Onyxia Alliance 23:00 CET tonight 28-02-2025")

			Convey("Then today is appended after the explicit date", func() {
				So(err, ShouldBeNil)
				So(res.Events, ShouldHaveLength, 1)
				So(res.Events[0].Start.Format("02-01-2006 15:04"), ShouldEqual, "28-02-2025 23:00")
			})
		})

		Convey("When tonight is the only date", func() {
			res, err := p.Parse(ctx, "@Onyxia Horde tonight 21:30")

			Convey("Then the event is today", func() {
				So(err, ShouldBeNil)
				So(res.Events, ShouldHaveLength, 1)
				So(res.Events[0].Start.Format("02-01-2006"), ShouldEqual, now.Format("02-01-2006"))
			})
		})

		Convey("When a date is malformed", func() {
			res, err := p.Parse(ctx, "@RendBuff 99-99-9999 20:00")

			Convey("Then it is excluded and today is used", func() {
				So(err, ShouldBeNil)
				So(res.Events, ShouldHaveLength, 1)
				So(res.Events[0].Start.Format("02-01-2006"), ShouldEqual, "10-03-2025")
				So(res.Skipped, ShouldHaveLength, 1)
				So(errors.Is(res.Skipped[0], parse.ErrInvalidDate), ShouldBeTrue)
			})
		})

		Convey("When one time is out of range", func() {
			res, err := p.Parse(ctx, "@RendBuff 14:00 25:00 17:00")

			Convey("Then only that event is skipped", func() {
				So(err, ShouldBeNil)
				So(res.Events, ShouldHaveLength, 2)
				So(res.Skipped, ShouldHaveLength, 1)
				So(errors.Is(res.Skipped[0], parse.ErrInvalidTime), ShouldBeTrue)
				So(res.Events[1].Start.Hour(), ShouldEqual, 17)
			})
		})

		Convey("When there is no mention", func() {
			res, err := p.Parse(ctx, "<Victory> raid tonight 20:00 28-02-2025")

			Convey("Then no events are produced", func() {
				So(errors.Is(err, parse.ErrNoMention), ShouldBeTrue)
				So(res.Events, ShouldBeEmpty)
			})
		})

		Convey("When there is a mention but no time", func() {
			res, err := p.Parse(ctx, "@RendBuff soon, few mins depending on layer cd")

			Convey("Then the result is empty without error", func() {
				So(err, ShouldBeNil)
				So(res.Events, ShouldBeEmpty)
			})
		})
	})
}

func TestEventCountFollowsTimes(t *testing.T) {
	Convey("Given messages with N mentions and M times", t, func() {
		p, _ := newParser()
		messages := map[string]int{
			"@RendBuff 10:00":                          1,
			"@RendBuff 10:00 11:00 12:00":              3,
			"@RendBuff @Onyxia Horde 10:00":            1,
			"@RendBuff @Onyxia Horde 10:00 1100 12.00": 3,
			"@RendBuff 20:00-22:00":                    2,
			"@Onyxia Alliance 27/02/2025 - 18.45ST":    1,
			"@Onyxia Alliance 27/02/2025 - 18:45CET":   1,
		}
		for text, want := range messages {
			res, err := p.Parse(context.Background(), text)
			So(err, ShouldBeNil)
			So(res.Events, ShouldHaveLength, want)
		}
	})
}

func TestColorFor(t *testing.T) {
	Convey("Given the colour table", t, func() {
		p, _ := newParser()

		So(p.ColorFor("@Onyxia Alliance"), ShouldEqual, "7")
		So(p.ColorFor("@onyxia horde"), ShouldEqual, "11")
		So(p.ColorFor("@RENDBUFF"), ShouldEqual, "11")
		So(p.ColorFor("@Nefarian"), ShouldEqual, parse.DefaultColor)

		Convey("When categories and default colour are overridden", func() {
			custom := parse.New(
				parse.WithCategories([]parse.Category{{Mention: "@Nefarian", Color: "5"}}),
				parse.WithDefaultColor("1"),
			)
			So(custom.ColorFor("@nefarian"), ShouldEqual, "5")
			So(custom.ColorFor("@RendBuff"), ShouldEqual, "1")
			So(custom.Tokenize("@Nefarian 20:00").Mentions, ShouldResemble, []string{"@Nefarian"})
		})
	})
}

func TestCategoriesFromMap(t *testing.T) {
	Convey("Given a configured colour map", t, func() {
		got := parse.CategoriesFromMap(map[string]string{"@Zandalar": "5", "@RendBuff": "11"})

		So(got, ShouldResemble, []parse.Category{
			{Mention: "@RendBuff", Color: "11"},
			{Mention: "@Zandalar", Color: "5"},
		})
		So(parse.CategoriesFromMap(nil), ShouldBeEmpty)
	})
}
