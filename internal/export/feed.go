package export

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/model"
)

// MIMEType is the media type of the generated feed.
const MIMEType = "text/calendar"

// ProdID identifies this exporter in the generated calendar.
const ProdID = "-//SchulportalHessen//TimetableExporter//EN"

// bom is the UTF-8 byte-order mark. Both output artifacts carry it so that
// spreadsheet and calendar applications pick the right encoding.
var bom = []byte{0xEF, 0xBB, 0xBF}

const icalLocal = "20060102T150405"

// vtimezone is the fixed Europe/Berlin definition: a recurring last-Sunday
// rule for both transitions rather than a historical table. The
// approximation is accepted; it is correct for every year the feed can
// describe.
var vtimezone = []string{
	"BEGIN:VTIMEZONE",
	"TZID:" + FeedTimezone,
	"BEGIN:DAYLIGHT",
	"TZOFFSETFROM:+0100",
	"TZOFFSETTO:+0200",
	"TZNAME:CEST",
	"DTSTART:19700329T020000",
	"RRULE:FREQ=YEARLY;BYMONTH=3;BYDAY=-1SU",
	"END:DAYLIGHT",
	"BEGIN:STANDARD",
	"TZOFFSETFROM:+0200",
	"TZOFFSETTO:+0100",
	"TZNAME:CET",
	"DTSTART:19701025T030000",
	"RRULE:FREQ=YEARLY;BYMONTH=10;BYDAY=-1SU",
	"END:STANDARD",
	"END:VTIMEZONE",
}

// UIDMode selects how event identifiers are derived.
type UIDMode string

const (
	// UIDTimestamp embeds the wall-clock export time, so every export run
	// produces fresh identifiers and calendar clients treat a re-import as
	// new events. This mirrors the established feed shape.
	UIDTimestamp UIDMode = "timestamp"
	// UIDStable derives the identifier purely from the lesson identity,
	// slot and range, making repeated exports update-compatible.
	UIDStable UIDMode = "stable"
)

// FeedOptions parameterizes feed rendering.
type FeedOptions struct {
	// Now is the export timestamp used for DTSTAMP and, in timestamp
	// mode, the UID prefix.
	Now time.Time
	// UIDMode defaults to UIDTimestamp when empty.
	UIDMode UIDMode
	// Range is the export date range; it participates in stable UIDs.
	Range model.DateRange
}

var uidSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]`)

// RenderFeed serializes the compiled descriptors into an RFC 5545 calendar:
// one VCALENDAR, the fixed timezone block, and one VEVENT per descriptor.
// Lines are CRLF-terminated and the payload starts with a UTF-8 BOM.
func RenderFeed(descs []model.Descriptor, opts FeedOptions) []byte {
	if opts.UIDMode == "" {
		opts.UIDMode = UIDTimestamp
	}
	stamp := opts.Now.UTC().Format(icalUTC)

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ProdID,
		"CALSCALE:GREGORIAN",
	}
	lines = append(lines, vtimezone...)

	for i, d := range descs {
		l := d.Lesson

		summary := l.Subject
		description := ""
		location := ""
		if l.IsBreak {
			summary = "☕ " + l.Subject
		} else {
			description = fmt.Sprintf("%s bei %s", l.Subject, l.Teacher)
			location = l.Room
		}

		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+eventUID(d, i, stamp, opts),
			"DTSTAMP:"+stamp,
			fmt.Sprintf("DTSTART;TZID=%s:%s", FeedTimezone, d.LocalStart.Format(icalLocal)),
			fmt.Sprintf("DTEND;TZID=%s:%s", FeedTimezone, d.LocalEnd.Format(icalLocal)),
			"SUMMARY:"+escapeText(summary),
			"LOCATION:"+escapeText(location),
			"DESCRIPTION:"+escapeText(description),
			"RRULE:"+d.RRule,
		)
		for _, ex := range d.Exceptions {
			lines = append(lines, fmt.Sprintf("EXDATE;TZID=%s:%s", FeedTimezone, ex.Format(icalLocal)))
		}
		lines = append(lines, "END:VEVENT")
	}

	lines = append(lines, "END:VCALENDAR")

	var b strings.Builder
	b.Write(bom)
	b.WriteString(strings.Join(lines, "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// eventUID builds the per-event identifier: in timestamp mode the
// {export timestamp, sequence index, sanitized identity key} triple, in
// stable mode a digest of the recurring slot so identical inputs yield
// identical identifiers.
func eventUID(d model.Descriptor, index int, stamp string, opts FeedOptions) string {
	if opts.UIDMode == UIDStable {
		h := sha1.New()
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s",
			d.Lesson.Key,
			d.Lesson.Day,
			d.Lesson.Time,
			opts.Range.Start.Format("2006-01-02"),
			opts.Range.End.Format("2006-01-02"),
			boolToken(d.Lesson.IsBreak),
		)
		return hex.EncodeToString(h.Sum(nil)) + "@schulportal"
	}
	return fmt.Sprintf("%s-%d-%s@schulportal", stamp, index, uidSanitizer.ReplaceAllString(d.Lesson.Key, ""))
}

func boolToken(b bool) string {
	if b {
		return "break"
	}
	return "lesson"
}

// escapeText applies RFC 5545 text escaping to property values.
func escapeText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\n", `\n`,
	)
	return r.Replace(s)
}
