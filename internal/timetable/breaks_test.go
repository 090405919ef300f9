package timetable

import (
	"testing"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/model"
)

func lessonAt(t *testing.T, day model.Weekday, slot, subject string) model.Lesson {
	t.Helper()
	rng, err := model.ParseTimeRange(slot)
	if err != nil {
		t.Fatalf("bad slot %q: %v", slot, err)
	}
	return model.Lesson{
		Day:     day,
		Time:    rng,
		Subject: subject,
		Key:     model.ClassKey(subject, ""),
	}
}

func TestWithBreaksClassification(t *testing.T) {
	lessons := []model.Lesson{
		lessonAt(t, model.Monday, "08:00 - 08:45", "Mathe"),
		lessonAt(t, model.Monday, "08:45 - 09:30", "Mathe"),   // gap 0, no break
		lessonAt(t, model.Monday, "09:37 - 10:22", "Deutsch"), // gap 7
		lessonAt(t, model.Monday, "10:42 - 11:27", "Bio"),     // gap 20
		lessonAt(t, model.Monday, "11:57 - 12:42", "Kunst"),   // gap 30
		lessonAt(t, model.Monday, "13:27 - 14:12", "Sport"),   // gap 45
	}

	out := WithBreaks(lessons)
	if len(out) != len(lessons)+4 {
		t.Fatalf("got %d entries, want %d", len(out), len(lessons)+4)
	}

	var breaks []model.Lesson
	for _, l := range out {
		if l.IsBreak {
			breaks = append(breaks, l)
		}
	}
	want := []string{
		"Wechselpause (7 min)",
		"Große Pause (20 min)",
		"Pause (30 min)",
		"Mittagspause (45 min)",
	}
	if len(breaks) != len(want) {
		t.Fatalf("got %d breaks: %+v", len(breaks), breaks)
	}
	for i, b := range breaks {
		if b.Subject != want[i] {
			t.Errorf("break %d subject = %q, want %q", i, b.Subject, want[i])
		}
		if !b.IsBreak {
			t.Errorf("break %d not flagged", i)
		}
	}

	// A break covers exactly the gap it fills.
	if breaks[0].Time.String() != "09:30 - 09:37" {
		t.Errorf("first break slot = %q", breaks[0].Time)
	}
}

func TestWithBreaksDoesNotMutateInput(t *testing.T) {
	lessons := []model.Lesson{
		lessonAt(t, model.Tuesday, "08:00 - 08:45", "Mathe"),
		lessonAt(t, model.Tuesday, "09:00 - 09:45", "Deutsch"),
	}
	_ = WithBreaks(lessons)
	if len(lessons) != 2 {
		t.Fatalf("input length changed to %d", len(lessons))
	}
	for _, l := range lessons {
		if l.IsBreak {
			t.Fatalf("input mutated: %+v", l)
		}
	}
}

func TestWithBreaksStableKeys(t *testing.T) {
	lessons := []model.Lesson{
		lessonAt(t, model.Wednesday, "08:00 - 08:45", "Mathe"),
		lessonAt(t, model.Wednesday, "09:30 - 10:15", "Deutsch"),
	}

	first := WithBreaks(lessons)
	second := WithBreaks(lessons)
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("lengths %d / %d", len(first), len(second))
	}
	if first[2].Key != second[2].Key {
		t.Fatalf("keys differ: %q vs %q", first[2].Key, second[2].Key)
	}
	if first[2].Key != "break-Wednesday-08:45" {
		t.Fatalf("key = %q", first[2].Key)
	}
}

func TestWithBreaksSeparatesDays(t *testing.T) {
	// The last lesson of one day and the first of the next never produce a
	// break between them.
	lessons := []model.Lesson{
		lessonAt(t, model.Monday, "08:00 - 08:45", "Mathe"),
		lessonAt(t, model.Tuesday, "10:00 - 10:45", "Deutsch"),
	}
	out := WithBreaks(lessons)
	if len(out) != 2 {
		t.Fatalf("got %d entries, want 2", len(out))
	}
}
