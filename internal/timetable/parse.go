package timetable

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/log"
)

// Export targets as they appear on the portal page: the personal plan and
// the school-wide plan live in separate containers.
const (
	TargetOwn = "own"
	TargetAll = "all"
)

// Document is the parsed timetable page for one export target: the ordered
// day-column header labels plus the jagged cell grid of the plan table.
// It is built once per export and discarded after extraction; nothing in
// the pipeline writes back into the underlying HTML nodes.
type Document struct {
	Target  string
	Headers []string

	rows [][]Cell
}

// Parse reads a saved portal page and locates the plan table for the given
// target ("own" or "all"). It falls back to the first plan table on the
// page when the target container is absent, which keeps stripped-down or
// hand-saved pages working.
func Parse(r io.Reader, target string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse timetable html: %w", err)
	}

	table := doc.Find("#" + target + " .plan table").First()
	if table.Length() == 0 {
		table = doc.Find(".plan table").First()
	}
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("no timetable table found for target %q", target)
	}

	out := &Document{Target: target}

	// Column 0 holds the period/time label; day headers start at column 1.
	table.Find("thead th").Each(func(i int, th *goquery.Selection) {
		if i == 0 {
			return
		}
		out.Headers = append(out.Headers, strings.TrimSpace(th.Text()))
	})

	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var row []Cell
		tr.ChildrenFiltered("td, th").Each(func(_ int, td *goquery.Selection) {
			span, err := strconv.Atoi(td.AttrOr("rowspan", "1"))
			if err != nil || span < 1 {
				span = 1
			}
			row = append(row, Cell{Content: td, Span: span})
		})
		out.rows = append(out.rows, row)
	})

	log.Debug("timetable parsed",
		"target", target,
		"headers", len(out.Headers),
		"rows", len(out.rows),
	)
	return out, nil
}

// Grid normalizes the document's jagged cell rows into a rectangle wide
// enough for the period column plus one column per day header.
func (d *Document) Grid() Grid {
	return Normalize(d.rows, len(d.Headers)+1)
}
