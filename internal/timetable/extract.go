package timetable

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/log"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/model"
)

// rowMeta carries the mandatory fields of a data row. ok is false when the
// period label or the time text is missing or unparsable; such a row is
// dropped whole, never turned into a partial lesson.
type rowMeta struct {
	period string
	slot   model.TimeRange
	ok     bool
}

// ExtractLessons walks the normalized grid and produces one Lesson per
// class sub-block.
//
// The day-column contract is positional: header index i describes data
// column i+1. Data columns beyond the header list are skipped, as are
// columns whose header is not a recognizable school weekday; there is no
// auto-detection by label matching.
func ExtractLessons(doc *Document) []model.Lesson {
	grid := doc.Grid()

	var lessons []model.Lesson
	dropped := 0
	for _, row := range grid.Rows {
		if len(row) == 0 {
			continue
		}
		meta := readRowMeta(row[0])
		if !meta.ok {
			dropped++
			continue
		}

		for col := 1; col < len(row) && col-1 < len(doc.Headers); col++ {
			day, known := model.ParseWeekday(doc.Headers[col-1])
			if !known {
				continue
			}
			cell := row[col]
			if cell == nil {
				continue
			}
			cell.Find(".stunde").Each(func(_ int, block *goquery.Selection) {
				if l, ok := lessonFromBlock(block, day, meta); ok {
					lessons = append(lessons, l)
				}
			})
		}
	}

	log.Debug("lessons extracted",
		"target", doc.Target,
		"lessons", len(lessons),
		"dropped_rows", dropped,
	)
	return lessons
}

// readRowMeta pulls the period label (<b>) and the time range text
// (.VonBis small) out of a row's first cell.
func readRowMeta(sel *goquery.Selection) rowMeta {
	if sel == nil {
		return rowMeta{}
	}
	period := strings.TrimSpace(sel.Find("b").First().Text())
	timeText := strings.TrimSpace(sel.Find(".VonBis small").First().Text())
	if period == "" || timeText == "" {
		return rowMeta{}
	}
	slot, err := model.ParseTimeRange(timeText)
	if err != nil {
		return rowMeta{}
	}
	return rowMeta{period: period, slot: slot, ok: true}
}

// lessonFromBlock reads one class sub-block. A block without a subject is
// dropped; a missing teacher or room is tolerated as the empty string.
func lessonFromBlock(block *goquery.Selection, day model.Weekday, meta rowMeta) (model.Lesson, bool) {
	subject := strings.TrimSpace(block.Find("b").First().Text())
	if subject == "" {
		return model.Lesson{}, false
	}
	teacher := strings.TrimSpace(block.Find("small").First().Text())

	return model.Lesson{
		Day:     day,
		Period:  meta.period,
		Time:    meta.slot,
		Subject: subject,
		Teacher: teacher,
		Room:    roomText(block),
		Key:     model.ClassKey(subject, teacher),
	}, true
}

// roomText resolves the room as the last non-empty free-text fragment that
// is a direct child of the block, i.e. not nested inside the subject (<b>)
// or teacher (<small>) sub-elements. When a block carries several free-text
// fragments only the last one wins; the heuristic is lossy by design of the
// source markup, which has no dedicated room element.
func roomText(block *goquery.Selection) string {
	room := ""
	block.Contents().Each(func(_ int, frag *goquery.Selection) {
		node := frag.Get(0)
		if node == nil || node.Type != html.TextNode {
			return
		}
		if text := strings.TrimSpace(node.Data); text != "" {
			room = text
		}
	})
	return room
}
