package timetable

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// testCells builds selections to use as distinguishable cell contents.
func testCells(t *testing.T, n int) []*goquery.Selection {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("<div class=\"c\"></div>")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("build test cells: %v", err)
	}
	out := make([]*goquery.Selection, 0, n)
	doc.Find("div.c").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out
}

func TestNormalizeRectangular(t *testing.T) {
	c := testCells(t, 6)
	rows := [][]Cell{
		{{Content: c[0], Span: 1}, {Content: c[1], Span: 2}, {Content: c[2], Span: 1}},
		{{Content: c[3], Span: 1}},
		{{Content: c[4], Span: 1}, {Content: c[5], Span: 1}},
	}

	g := Normalize(rows, 4)

	if g.Cols != 4 {
		t.Fatalf("cols = %d, want 4", g.Cols)
	}
	for i, row := range g.Rows {
		if len(row) != g.Cols {
			t.Fatalf("row %d has %d columns, want %d", i, len(row), g.Cols)
		}
	}
}

func TestNormalizeRowSpanClaimsConsecutiveRows(t *testing.T) {
	c := testCells(t, 5)
	// c[1] spans three rows in column 1; the following rows must flow
	// around it.
	rows := [][]Cell{
		{{Content: c[0], Span: 1}, {Content: c[1], Span: 3}},
		{{Content: c[2], Span: 1}, {Content: c[3], Span: 1}},
		{{Content: c[4], Span: 1}},
	}

	g := Normalize(rows, 0)

	count := 0
	for r := 0; r < len(g.Rows); r++ {
		if g.Rows[r][1] == c[1] {
			count++
			if r > 2 {
				t.Fatalf("span appears in row %d", r)
			}
		}
	}
	if count != 3 {
		t.Fatalf("span content appears %d times, want 3", count)
	}

	// The second row's cells must have been pushed past the claimed column.
	if g.Rows[1][0] != c[2] || g.Rows[1][2] != c[3] {
		t.Fatalf("row 1 layout wrong: %v", g.Rows[1])
	}
	if g.Rows[2][0] != c[4] {
		t.Fatal("row 2 first cell misplaced")
	}
}

func TestNormalizeRaggedInputPatched(t *testing.T) {
	c := testCells(t, 3)
	rows := [][]Cell{
		{{Content: c[0], Span: 1}},
		{{Content: c[1], Span: 1}, {Content: c[2], Span: 1}},
		{},
	}

	g := Normalize(rows, 0)

	for i, row := range g.Rows {
		if len(row) != g.Cols {
			t.Fatalf("row %d not padded", i)
		}
	}
	// Unclaimed positions are explicit placeholders.
	if g.Rows[0][1] != nil {
		t.Fatal("expected placeholder in row 0 col 1")
	}
	if g.Rows[2][0] != nil || g.Rows[2][1] != nil {
		t.Fatal("expected empty final row")
	}
}

func TestNormalizeZeroSpanTreatedAsOne(t *testing.T) {
	c := testCells(t, 1)
	g := Normalize([][]Cell{{{Content: c[0], Span: 0}}}, 0)
	if len(g.Rows) != 1 || g.Rows[0][0] != c[0] {
		t.Fatalf("unexpected grid %+v", g)
	}
}
