// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package render draws tabular results in the terminal one page at a time.
package render

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/pterm/pterm"

	"sheetlink/cli/internal/tabular"
)

// DefaultRowsPerPage is used when no page size is configured.
const DefaultRowsPerPage = 25

const minCellWidth = 8

// Pager walks a result in fixed-size pages. Pages are numbered from 1 and requests
// outside the valid range are clamped.
type Pager struct {
	res     tabular.Result
	perPage int
	page    int
}

// NewPager starts at page 1. A non-positive perPage means DefaultRowsPerPage.
func NewPager(res tabular.Result, perPage int) *Pager {
	if perPage <= 0 {
		perPage = DefaultRowsPerPage
	}
	return &Pager{res: res, perPage: perPage, page: 1}
}

// Pages is the page count, at least 1.
func (p *Pager) Pages() int {
	n := (p.res.Len() + p.perPage - 1) / p.perPage
	if n < 1 {
		return 1
	}
	return n
}

// Page is the current page number.
func (p *Pager) Page() int { return p.page }

// SetPage moves to page n, clamped to [1, Pages()].
func (p *Pager) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	if last := p.Pages(); n > last {
		n = last
	}
	p.page = n
}

// Next advances one page and reports whether it moved.
func (p *Pager) Next() bool {
	before := p.page
	p.SetPage(p.page + 1)
	return p.page != before
}

// Prev goes back one page and reports whether it moved.
func (p *Pager) Prev() bool {
	before := p.page
	p.SetPage(p.page - 1)
	return p.page != before
}

// Range returns the zero-based half-open row range of the current page.
func (p *Pager) Range() (from, to int) {
	from = (p.page - 1) * p.perPage
	to = from + p.perPage
	if to > p.res.Len() {
		to = p.res.Len()
	}
	return from, to
}

// Summary reads "Showing rows a-b of n".
func (p *Pager) Summary() string {
	from, to := p.Range()
	return fmt.Sprintf("Showing rows %d-%d of %d", from+1, to, p.res.Len())
}

// Footer reads "Page p of t".
func (p *Pager) Footer() string {
	return fmt.Sprintf("Page %d of %d", p.page, p.Pages())
}

// Render draws the current page followed by the summary and footer lines.
func (p *Pager) Render(width int) (string, error) {
	from, to := p.Range()
	table, err := Table(p.res.Slice(from, to), width)
	if err != nil {
		return "", err
	}
	return table + "\n" + pterm.Gray(p.Summary()) + "\n" + pterm.Gray(p.Footer()), nil
}

// Table renders res with a bold header row. Cells are truncated so each row fits in
// width columns; nil values print as empty cells.
func Table(res tabular.Result, width int) (string, error) {
	if len(res.Columns) == 0 {
		return "", nil
	}
	limit := cellLimit(len(res.Columns), width)

	data := make(pterm.TableData, 0, res.Len()+1)
	header := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = runewidth.Truncate(c, limit, "…")
	}
	data = append(data, header)
	for _, row := range res.Matrix() {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = runewidth.Truncate(Cell(v), limit, "…")
		}
		data = append(data, cells)
	}
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
}

// Cell formats one value for display.
func Cell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func cellLimit(cols, width int) int {
	if width <= 0 {
		width = 80
	}
	// Boxed tables spend three columns per cell on borders and padding.
	limit := (width - 1) / cols
	limit -= 3
	if limit < minCellWidth {
		return minCellWidth
	}
	return limit
}
