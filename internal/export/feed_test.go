package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/model"
)

func sampleDescriptor(t *testing.T) model.Descriptor {
	t.Helper()
	loc := berlin(t)
	rng := rangeOf(t, date(2024, time.September, 2), date(2024, time.December, 20))
	lesson := mondayLesson(t)
	lesson.Room = "R101"

	d, ok := Compile(lesson, rng, []time.Time{date(2024, time.October, 7)}, loc)
	require.True(t, ok)
	return d
}

func TestRenderFeedStructure(t *testing.T) {
	d := sampleDescriptor(t)
	now := time.Date(2024, time.September, 1, 12, 0, 0, 0, time.UTC)

	feed := RenderFeed([]model.Descriptor{d}, FeedOptions{Now: now})

	require.True(t, bytes.HasPrefix(feed, bom), "feed must start with a UTF-8 BOM")
	body := string(bytes.TrimPrefix(feed, bom))

	require.True(t, strings.HasSuffix(body, "\r\n"), "feed must end with CRLF")
	assert.NotContains(t, strings.ReplaceAll(body, "\r\n", ""), "\n", "all line breaks must be CRLF")

	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, body, "PRODID:"+ProdID+"\r\n")
	assert.Contains(t, body, "BEGIN:VTIMEZONE\r\nTZID:Europe/Berlin\r\n")
	assert.Equal(t, 1, strings.Count(body, "BEGIN:VEVENT"))

	assert.Contains(t, body, "DTSTAMP:20240901T120000Z\r\n")
	assert.Contains(t, body, "DTSTART;TZID=Europe/Berlin:20240902T080000\r\n")
	assert.Contains(t, body, "DTEND;TZID=Europe/Berlin:20240902T084500\r\n")
	assert.Contains(t, body, "SUMMARY:Mathe\r\n")
	assert.Contains(t, body, "LOCATION:R101\r\n")
	assert.Contains(t, body, "DESCRIPTION:Mathe bei Frau X\r\n")
	assert.Contains(t, body, "RRULE:FREQ=WEEKLY;UNTIL=20241220T225959Z\r\n")
	assert.Contains(t, body, "EXDATE;TZID=Europe/Berlin:20241007T080000\r\n")
}

func TestRenderFeedParsesBack(t *testing.T) {
	d := sampleDescriptor(t)
	feed := RenderFeed([]model.Descriptor{d}, FeedOptions{Now: time.Now()})

	cal, err := ical.ParseCalendar(bytes.NewReader(bytes.TrimPrefix(feed, bom)))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)
}

func TestRenderFeedBreakEvent(t *testing.T) {
	loc := berlin(t)
	rng := rangeOf(t, date(2024, time.September, 2), date(2024, time.December, 20))
	slot, err := model.ParseTimeRange("09:30 - 09:50")
	require.NoError(t, err)

	brk := model.Lesson{
		Day:     model.Monday,
		Time:    slot,
		Subject: "Große Pause (20 min)",
		Key:     model.BreakKey(model.Monday, slot.Start),
		IsBreak: true,
	}
	d, ok := Compile(brk, rng, nil, loc)
	require.True(t, ok)

	body := string(bytes.TrimPrefix(RenderFeed([]model.Descriptor{d}, FeedOptions{Now: time.Now()}), bom))
	assert.Contains(t, body, "SUMMARY:☕ Große Pause (20 min)\r\n")
	assert.Contains(t, body, "LOCATION:\r\n")
	assert.Contains(t, body, "DESCRIPTION:\r\n")
}

func TestRenderFeedEscapesText(t *testing.T) {
	d := sampleDescriptor(t)
	d.Lesson.Subject = "Mathe; GK, Zug\\2"
	d.Lesson.Room = "Raum 1,2"

	body := string(bytes.TrimPrefix(RenderFeed([]model.Descriptor{d}, FeedOptions{Now: time.Now()}), bom))
	assert.Contains(t, body, `SUMMARY:Mathe\; GK\, Zug\\2`)
	assert.Contains(t, body, `LOCATION:Raum 1\,2`)
}

func TestTimestampUIDsChangePerExport(t *testing.T) {
	d := sampleDescriptor(t)

	first := RenderFeed([]model.Descriptor{d}, FeedOptions{
		Now:     time.Date(2024, time.September, 1, 12, 0, 0, 0, time.UTC),
		UIDMode: UIDTimestamp,
	})
	second := RenderFeed([]model.Descriptor{d}, FeedOptions{
		Now:     time.Date(2024, time.September, 1, 12, 0, 1, 0, time.UTC),
		UIDMode: UIDTimestamp,
	})

	assert.Contains(t, string(first), "UID:20240901T120000Z-0-MatheFrauX@schulportal\r\n")
	assert.NotEqual(t, uidLine(t, first), uidLine(t, second))
}

func TestStableUIDsAreDeterministic(t *testing.T) {
	d := sampleDescriptor(t)
	rng := rangeOf(t, date(2024, time.September, 2), date(2024, time.December, 20))

	first := RenderFeed([]model.Descriptor{d}, FeedOptions{
		Now:     time.Date(2024, time.September, 1, 12, 0, 0, 0, time.UTC),
		UIDMode: UIDStable,
		Range:   rng,
	})
	second := RenderFeed([]model.Descriptor{d}, FeedOptions{
		Now:     time.Date(2025, time.March, 1, 9, 30, 0, 0, time.UTC),
		UIDMode: UIDStable,
		Range:   rng,
	})

	assert.Equal(t, uidLine(t, first), uidLine(t, second))
	assert.True(t, strings.HasSuffix(uidLine(t, first), "@schulportal"))
}

func uidLine(t *testing.T, feed []byte) string {
	t.Helper()
	for _, line := range strings.Split(string(feed), "\r\n") {
		if strings.HasPrefix(line, "UID:") {
			return line
		}
	}
	t.Fatal("no UID line in feed")
	return ""
}
