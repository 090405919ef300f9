package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Weekday is a day of the Monday-Friday school week.
//
// The timetable only ever covers a five-day week, so Saturday and Sunday
// are not representable here on purpose.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// weekdayLabels maps the header labels found on the portal page (German,
// full and abbreviated) plus the English names to school weekdays.
var weekdayLabels = map[string]Weekday{
	"montag": Monday, "mo": Monday, "monday": Monday,
	"dienstag": Tuesday, "di": Tuesday, "tuesday": Tuesday,
	"mittwoch": Wednesday, "mi": Wednesday, "wednesday": Wednesday,
	"donnerstag": Thursday, "do": Thursday, "thursday": Thursday,
	"freitag": Friday, "fr": Friday, "friday": Friday,
}

// ParseWeekday resolves a column header label to a school weekday.
func ParseWeekday(label string) (Weekday, bool) {
	d, ok := weekdayLabels[strings.ToLower(strings.TrimSpace(label))]
	return d, ok
}

func (d Weekday) String() string {
	if d < Monday || d > Friday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Time returns the equivalent time.Weekday (Monday == time.Monday).
func (d Weekday) Time() time.Weekday {
	return time.Weekday(int(d) + 1)
}

func (d Weekday) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Weekday) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	w, ok := ParseWeekday(s)
	if !ok {
		return fmt.Errorf("unknown weekday %q", s)
	}
	*d = w
	return nil
}

// ClockTime is a time of day with minute precision, stored as minutes
// since midnight.
type ClockTime int

// ParseClockTime parses a "HH:MM" string.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return ClockTime(h*60 + m), nil
}

// Hour returns the hour component (0-23).
func (c ClockTime) Hour() int { return int(c) / 60 }

// Minute returns the minute component (0-59).
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On anchors the clock time to a calendar date in the given location.
func (c ClockTime) On(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour(), c.Minute(), 0, 0, loc)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ct, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = ct
	return nil
}

// TimeRange is a start/end pair within one day, start strictly before end.
type TimeRange struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// ParseTimeRange parses the portal's "HH:MM - HH:MM" slot text.
func ParseTimeRange(s string) (TimeRange, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return TimeRange{}, fmt.Errorf("invalid time range %q", s)
	}
	start, err := ParseClockTime(parts[0])
	if err != nil {
		return TimeRange{}, err
	}
	end, err := ParseClockTime(parts[1])
	if err != nil {
		return TimeRange{}, err
	}
	if start >= end {
		return TimeRange{}, fmt.Errorf("time range %q does not end after it starts", s)
	}
	return TimeRange{Start: start, End: end}, nil
}

func (r TimeRange) String() string {
	return r.Start.String() + " - " + r.End.String()
}

// Minutes returns the span length in minutes.
func (r TimeRange) Minutes() int { return int(r.End - r.Start) }

// Lesson is one recurring timetable entry: a class occupying a weekly slot,
// or a synthesized break between two classes. Lessons are immutable once
// created; later pipeline stages only read them.
type Lesson struct {
	Day     Weekday   `json:"day"`
	Period  string    `json:"period"`
	Time    TimeRange `json:"time"`
	Subject string    `json:"subject"`
	Teacher string    `json:"teacher"`
	Room    string    `json:"room"`

	// Key identifies the recurring class across all of its weekly
	// occurrences. For classes it is the subject/teacher pair, for
	// synthesized breaks a function of day and start time; it never
	// encodes a specific date.
	Key string `json:"uniqueId"`

	IsBreak bool `json:"isBreak"`
}

// ClassKey builds the identity key for a subject/teacher pair.
func ClassKey(subject, teacher string) string {
	return subject + "|" + teacher
}

// BreakKey builds the identity key for a synthesized break. Deriving it
// from day and start time only keeps break synthesis idempotent.
func BreakKey(day Weekday, start ClockTime) string {
	return fmt.Sprintf("break-%s-%s", day, start)
}

// ErrMissingRange reports an absent or inverted export date range.
var ErrMissingRange = errors.New("date range missing or malformed")

// DateRange is an inclusive span of civil dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates and builds a DateRange from civil date bounds.
// Time-of-day and location on the inputs are discarded.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.IsZero() || end.IsZero() {
		return DateRange{}, ErrMissingRange
	}
	start = midnight(start)
	end = midnight(end)
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("%w: %s after %s", ErrMissingRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return DateRange{Start: start, End: end}, nil
}

// Contains reports whether the given date falls inside the range.
func (r DateRange) Contains(date time.Time) bool {
	d := midnight(date)
	return !d.Before(r.Start) && !d.After(r.End)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Descriptor is the compiled weekly recurrence for one lesson within an
// export range. LocalStart/LocalEnd carry the feed's civil timezone; Until
// is the recurrence upper bound in UTC (RFC 5545 requires a UTC UNTIL when
// the start time is timezone-qualified).
type Descriptor struct {
	Lesson Lesson

	Anchor     time.Time
	LocalStart time.Time
	LocalEnd   time.Time
	Until      time.Time

	// Exceptions holds the holiday occurrences to exclude, each at the
	// lesson's start time in the feed timezone.
	Exceptions []time.Time

	// RRule is the serialized weekly recurrence rule value.
	RRule string
}
