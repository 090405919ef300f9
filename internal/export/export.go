// Package export runs the timetable export pipeline: lesson filtering,
// break synthesis, recurrence compilation and feed/JSON serialization.
// Every stage is a pure transformation over immutable inputs; independent
// exports can run concurrently without coordination.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/holiday"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/log"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/model"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/timetable"
)

// ErrEmptySelection reports an export request that selects no lessons.
var ErrEmptySelection = errors.New("no classes selected")

// Options parameterizes one export run.
type Options struct {
	// Selected lists the identity keys to export. nil exports everything;
	// an empty non-nil slice is an explicit empty selection and aborts.
	Selected []string

	// IncludeBreaks synthesizes break entries between adjacent lessons.
	IncludeBreaks bool

	// Range is the inclusive recurrence window.
	Range model.DateRange

	// Holidays is the pre-resolved holiday data; years that failed to
	// resolve are surfaced as warnings, never silently trusted.
	Holidays holiday.Resolved

	// Now is the export timestamp.
	Now time.Time

	// UIDMode controls event identifier derivation.
	UIDMode UIDMode
}

// Result bundles the artifacts of one export run.
type Result struct {
	Lessons     []model.Lesson
	Descriptors []model.Descriptor
	Feed        []byte
	JSON        []byte
}

// Exporter runs export pipelines in the feed's fixed civil timezone. It
// holds no per-run state and is safe for concurrent use.
type Exporter struct {
	loc *time.Location
}

// New creates an Exporter, loading the feed timezone.
func New() (*Exporter, error) {
	loc, err := time.LoadLocation(FeedTimezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", FeedTimezone, err)
	}
	return &Exporter{loc: loc}, nil
}

// Run executes the pipeline over the extracted lessons and returns the
// serialized artifacts. Caller-input problems (empty selection, missing
// range) abort before any output is produced.
func (e *Exporter) Run(lessons []model.Lesson, opts Options) (*Result, error) {
	if opts.Range.Start.IsZero() || opts.Range.End.IsZero() {
		return nil, model.ErrMissingRange
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	selected := filterSelected(lessons, opts.Selected)
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	for _, year := range opts.Holidays.Failed {
		log.Warn("holiday data unavailable, feed will lack exceptions for this year", "year", year)
	}

	if opts.IncludeBreaks {
		selected = timetable.WithBreaks(selected)
	}

	descs := make([]model.Descriptor, 0, len(selected))
	occurrences := 0
	skipped := 0
	for _, lesson := range selected {
		exceptions := MatchingHolidays(lesson.Day, opts.Range, opts.Holidays.Dates)
		d, ok := Compile(lesson, opts.Range, exceptions, e.loc)
		if !ok {
			// The lesson's weekday never falls inside the range.
			skipped++
			continue
		}
		descs = append(descs, d)

		if occ, err := Occurrences(d); err == nil {
			occurrences += len(occ)
		}
	}

	feed := RenderFeed(descs, FeedOptions{Now: opts.Now, UIDMode: opts.UIDMode, Range: opts.Range})
	if err := verifyFeed(feed, len(descs)); err != nil {
		return nil, err
	}

	jsonOut, err := RenderJSON(selected)
	if err != nil {
		return nil, err
	}

	log.Info("export completed",
		"lessons", len(selected),
		"events", len(descs),
		"occurrences", occurrences,
		"out_of_range", skipped,
		"holidays", opts.Holidays.Dates.Len(),
	)

	return &Result{
		Lessons:     selected,
		Descriptors: descs,
		Feed:        feed,
		JSON:        jsonOut,
	}, nil
}

// filterSelected keeps the lessons whose identity key is in keys. nil keys
// selects everything.
func filterSelected(lessons []model.Lesson, keys []string) []model.Lesson {
	if keys == nil {
		return lessons
	}
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	var out []model.Lesson
	for _, l := range lessons {
		if _, ok := want[l.Key]; ok {
			out = append(out, l)
		}
	}
	return out
}

// verifyFeed parses the rendered feed back and checks the event count.
// A failure here means the serializer emitted something structurally
// invalid, which is a bug rather than an input problem.
func verifyFeed(feed []byte, wantEvents int) error {
	cal, err := ical.ParseCalendar(bytes.NewReader(bytes.TrimPrefix(feed, bom)))
	if err != nil {
		return fmt.Errorf("feed self-check: %w", err)
	}
	if got := len(cal.Events()); got != wantEvents {
		return fmt.Errorf("feed self-check: %d events serialized, %d parsed back", wantEvents, got)
	}
	return nil
}
