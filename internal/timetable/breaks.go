package timetable

import (
	"fmt"
	"sort"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/model"
)

// Break classification thresholds, in minutes of gap between two adjacent
// lessons. The checks run in this order, so a gap in (25,40) falls through
// to the generic label.
const (
	changeoverMax = 10 // Wechselpause
	longBreakMax  = 25 // Große Pause
	lunchMin      = 40 // Mittagspause
)

// WithBreaks returns the given lessons plus one synthesized break lesson
// for every positive gap between adjacent lessons of a day. The input is
// never mutated. Break identity keys derive only from day and gap start,
// so synthesizing twice from the same input yields identical keys.
func WithBreaks(lessons []model.Lesson) []model.Lesson {
	out := make([]model.Lesson, len(lessons), len(lessons)+8)
	copy(out, lessons)

	byDay := make(map[model.Weekday][]model.Lesson)
	for _, l := range lessons {
		byDay[l.Day] = append(byDay[l.Day], l)
	}

	for day := model.Monday; day <= model.Friday; day++ {
		daily := byDay[day]
		sort.SliceStable(daily, func(i, j int) bool {
			return daily[i].Time.Start < daily[j].Time.Start
		})

		for i := 0; i+1 < len(daily); i++ {
			curr, next := daily[i], daily[i+1]
			gap := int(next.Time.Start - curr.Time.End)
			if gap <= 0 {
				continue
			}

			label := "Pause"
			switch {
			case gap <= changeoverMax:
				label = "Wechselpause"
			case gap <= longBreakMax:
				label = "Große Pause"
			case gap >= lunchMin:
				label = "Mittagspause"
			}

			out = append(out, model.Lesson{
				Day:     day,
				Time:    model.TimeRange{Start: curr.Time.End, End: next.Time.Start},
				Subject: fmt.Sprintf("%s (%d min)", label, gap),
				Key:     model.BreakKey(day, curr.Time.End),
				IsBreak: true,
			})
		}
	}

	return out
}
