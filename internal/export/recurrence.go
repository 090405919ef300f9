package export

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/holiday"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/model"
)

// FeedTimezone is the fixed civil timezone of the generated feed.
const FeedTimezone = "Europe/Berlin"

const icalUTC = "20060102T150405Z"

// MatchingHolidays returns the holiday dates that fall inside the range
// and land on the given school weekday, in ascending order. The supplied
// set is never mutated; this is pure filtering.
func MatchingHolidays(day model.Weekday, rng model.DateRange, holidays holiday.Set) []time.Time {
	var out []time.Time
	for _, d := range holidays.Dates() {
		if !rng.Contains(d) {
			continue
		}
		if d.Weekday() != day.Time() {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Compile turns a lesson plus a date range and its resolved exception dates
// into a weekly recurrence descriptor.
//
// The anchor is the first date on or after range.start whose weekday matches
// the lesson's day, found by walking forward at most seven days. A lesson
// whose anchor already exceeds range.end yields no descriptor; that is the
// normal outcome for short ranges, not an error.
//
// The recurrence upper bound is range.end at 23:59:59 local time, rendered
// in UTC: RFC 5545 requires UNTIL in UTC whenever DTSTART carries a TZID,
// which resolves the mixed representation found in older exports.
func Compile(lesson model.Lesson, rng model.DateRange, exceptions []time.Time, loc *time.Location) (model.Descriptor, bool) {
	anchor := rng.Start
	for i := 0; i < 7 && anchor.Weekday() != lesson.Day.Time(); i++ {
		anchor = anchor.AddDate(0, 0, 1)
	}
	if anchor.After(rng.End) {
		return model.Descriptor{}, false
	}

	localStart := lesson.Time.Start.On(anchor, loc)
	localEnd := lesson.Time.End.On(anchor, loc)
	until := time.Date(rng.End.Year(), rng.End.Month(), rng.End.Day(), 23, 59, 59, 0, loc).UTC()

	exDates := make([]time.Time, 0, len(exceptions))
	for _, ex := range exceptions {
		exDates = append(exDates, lesson.Time.Start.On(ex, loc))
	}

	return model.Descriptor{
		Lesson:     lesson,
		Anchor:     anchor,
		LocalStart: localStart,
		LocalEnd:   localEnd,
		Until:      until,
		Exceptions: exDates,
		RRule:      fmt.Sprintf("FREQ=WEEKLY;UNTIL=%s", until.Format(icalUTC)),
	}, true
}

// Occurrences expands a compiled descriptor into its concrete start times,
// with exception dates removed. The pipeline uses it for the export summary
// and the self-checks in tests.
func Occurrences(d model.Descriptor) ([]time.Time, error) {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: d.LocalStart,
		Until:   d.Until,
	})
	if err != nil {
		return nil, fmt.Errorf("recurrence rule for %q: %w", d.Lesson.Key, err)
	}

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range d.Exceptions {
		set.ExDate(ex)
	}
	return set.All(), nil
}
