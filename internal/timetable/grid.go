package timetable

import (
	"github.com/PuerkitoBio/goquery"
)

// Cell is one source table cell together with the number of rows it spans.
// Content is an opaque handle into the parsed document; it is only ever
// read, never mutated, by the pipeline.
type Cell struct {
	Content *goquery.Selection
	Span    int
}

// Grid is a fully rectangular view over the source table: every row has
// exactly Cols entries. Entries left unclaimed by any source cell are nil,
// the explicit empty placeholder.
type Grid struct {
	Cols int
	Rows [][]*goquery.Selection
}

// Normalize expands a jagged row-major cell list into a rectangular Grid.
//
// It keeps an occupancy table while walking each input row left to right:
// the column cursor skips positions already claimed by an earlier cell's
// row-span, then the cell claims its column for Span consecutive rows.
// Positions still unclaimed afterwards become placeholders, and every row
// is padded to at least minCols entries.
//
// Malformed or ragged input is never rejected; the result is always a valid
// rectangle. That is deliberate: a partially broken page should still yield
// as much of the timetable as possible.
func Normalize(rows [][]Cell, minCols int) Grid {
	var content [][]*goquery.Selection
	var claimed [][]bool

	ensureRow := func(r int) {
		for len(content) <= r {
			content = append(content, nil)
			claimed = append(claimed, nil)
		}
	}
	ensureCol := func(r, c int) {
		for len(content[r]) <= c {
			content[r] = append(content[r], nil)
			claimed[r] = append(claimed[r], false)
		}
	}

	for r, row := range rows {
		ensureRow(r)
		col := 0
		for _, cell := range row {
			for col < len(claimed[r]) && claimed[r][col] {
				col++
			}
			span := cell.Span
			if span < 1 {
				span = 1
			}
			for i := 0; i < span; i++ {
				ensureRow(r + i)
				ensureCol(r+i, col)
				content[r+i][col] = cell.Content
				claimed[r+i][col] = true
			}
			col++
		}
	}

	cols := minCols
	for _, row := range content {
		if len(row) > cols {
			cols = len(row)
		}
	}
	for r := range content {
		for len(content[r]) < cols {
			content[r] = append(content[r], nil)
		}
	}

	return Grid{Cols: cols, Rows: content}
}
