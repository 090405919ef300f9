package export

import (
	"testing"
	"time"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/holiday"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/model"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(FeedTimezone)
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	return loc
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rangeOf(t *testing.T, start, end time.Time) model.DateRange {
	t.Helper()
	rng, err := model.NewDateRange(start, end)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	return rng
}

func mondayLesson(t *testing.T) model.Lesson {
	t.Helper()
	slot, err := model.ParseTimeRange("08:00 - 08:45")
	if err != nil {
		t.Fatalf("slot: %v", err)
	}
	return model.Lesson{
		Day:     model.Monday,
		Period:  "1",
		Time:    slot,
		Subject: "Mathe",
		Teacher: "Frau X",
		Key:     model.ClassKey("Mathe", "Frau X"),
	}
}

func TestCompileAnchorsOnFirstMatchingWeekday(t *testing.T) {
	loc := berlin(t)
	// 2024-09-02 is a Monday.
	rng := rangeOf(t, date(2024, time.September, 2), date(2024, time.December, 20))

	d, ok := Compile(mondayLesson(t), rng, nil, loc)
	if !ok {
		t.Fatal("expected a descriptor")
	}
	if !d.Anchor.Equal(rng.Start) {
		t.Fatalf("anchor = %s, want %s", d.Anchor, rng.Start)
	}
	wantStart := time.Date(2024, time.September, 2, 8, 0, 0, 0, loc)
	if !d.LocalStart.Equal(wantStart) {
		t.Fatalf("start = %s, want %s", d.LocalStart, wantStart)
	}
	if d.LocalEnd.Sub(d.LocalStart) != 45*time.Minute {
		t.Fatalf("duration = %s", d.LocalEnd.Sub(d.LocalStart))
	}
}

func TestCompileWalksForwardToWeekday(t *testing.T) {
	loc := berlin(t)
	// Range starts on a Wednesday; the first Monday is 2024-09-09.
	rng := rangeOf(t, date(2024, time.September, 4), date(2024, time.December, 20))

	d, ok := Compile(mondayLesson(t), rng, nil, loc)
	if !ok {
		t.Fatal("expected a descriptor")
	}
	if !d.Anchor.Equal(date(2024, time.September, 9)) {
		t.Fatalf("anchor = %s", d.Anchor)
	}
}

func TestCompileExcludesOutOfRangeWeekday(t *testing.T) {
	loc := berlin(t)
	// Tuesday through Friday only: no Monday in range.
	rng := rangeOf(t, date(2024, time.September, 3), date(2024, time.September, 6))

	if _, ok := Compile(mondayLesson(t), rng, nil, loc); ok {
		t.Fatal("expected no descriptor for a weekday outside the range")
	}
}

func TestCompileUntilIsRangeEndInUTC(t *testing.T) {
	loc := berlin(t)
	rng := rangeOf(t, date(2024, time.September, 2), date(2024, time.September, 6))

	d, ok := Compile(mondayLesson(t), rng, nil, loc)
	if !ok {
		t.Fatal("expected a descriptor")
	}
	// 2024-09-06 23:59:59 CEST is 21:59:59 UTC.
	want := time.Date(2024, time.September, 6, 21, 59, 59, 0, time.UTC)
	if !d.Until.Equal(want) {
		t.Fatalf("until = %s, want %s", d.Until, want)
	}
	if d.RRule != "FREQ=WEEKLY;UNTIL=20240906T215959Z" {
		t.Fatalf("rrule = %q", d.RRule)
	}
}

func TestCompileExceptionsAtLessonStart(t *testing.T) {
	loc := berlin(t)
	rng := rangeOf(t, date(2024, time.September, 2), date(2024, time.December, 20))
	// 2024-10-07 is a Monday.
	exceptions := []time.Time{date(2024, time.October, 7)}

	d, ok := Compile(mondayLesson(t), rng, exceptions, loc)
	if !ok {
		t.Fatal("expected a descriptor")
	}
	if len(d.Exceptions) != 1 {
		t.Fatalf("got %d exceptions", len(d.Exceptions))
	}
	want := time.Date(2024, time.October, 7, 8, 0, 0, 0, loc)
	if !d.Exceptions[0].Equal(want) {
		t.Fatalf("exception = %s, want %s", d.Exceptions[0], want)
	}
}

func TestMatchingHolidays(t *testing.T) {
	rng := rangeOf(t, date(2024, time.September, 2), date(2024, time.December, 20))
	set := holiday.NewSet(
		date(2024, time.October, 3),  // Thursday, in range
		date(2024, time.October, 7),  // Monday, in range
		date(2025, time.January, 6),  // Monday, out of range
		date(2024, time.November, 1), // Friday, in range
	)

	got := MatchingHolidays(model.Monday, rng, set)
	if len(got) != 1 || !got[0].Equal(date(2024, time.October, 7)) {
		t.Fatalf("got %v", got)
	}

	if got := MatchingHolidays(model.Wednesday, rng, set); len(got) != 0 {
		t.Fatalf("expected no Wednesday holidays, got %v", got)
	}
}

func TestOccurrencesHonorExceptions(t *testing.T) {
	loc := berlin(t)
	// Four Mondays: Sep 2, 9, 16, 23.
	rng := rangeOf(t, date(2024, time.September, 2), date(2024, time.September, 27))

	d, ok := Compile(mondayLesson(t), rng, []time.Time{date(2024, time.September, 16)}, loc)
	if !ok {
		t.Fatal("expected a descriptor")
	}
	occ, err := Occurrences(d)
	if err != nil {
		t.Fatalf("occurrences: %v", err)
	}
	if len(occ) != 3 {
		t.Fatalf("got %d occurrences: %v", len(occ), occ)
	}
	for _, o := range occ {
		if o.Day() == 16 {
			t.Fatalf("excluded date still present: %s", o)
		}
	}
}
