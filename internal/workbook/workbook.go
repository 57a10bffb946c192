// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package workbook is the host spreadsheet: an .xlsx file edited in memory through
// excelize and written to disk only on Commit.
package workbook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"

	"sheetlink/cli/internal/address"
	"sheetlink/cli/internal/sqlref"
)

const (
	minColWidth = 8.43
	maxColWidth = 80
)

// Workbook wraps one .xlsx file.
type Workbook struct {
	path string
	f    *excelize.File
	bold int
}

// Open loads path, or starts an empty workbook when the file does not exist yet.
func Open(path string) (*Workbook, error) {
	w := &Workbook{path: path}
	if err := w.load(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Workbook) load() error {
	f, err := excelize.OpenFile(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		f = excelize.NewFile()
		err = nil
	}
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	w.f = f
	w.bold = 0
	return nil
}

// Path is the file the workbook commits to.
func (w *Workbook) Path() string { return w.path }

// Close releases the underlying file.
func (w *Workbook) Close() error {
	if w.f == nil {
		return nil
	}
	return w.f.Close()
}

// Sheets lists sheet names in workbook order.
func (w *Workbook) Sheets() []string { return w.f.GetSheetList() }

// ActiveSheet returns the name of the active sheet.
func (w *Workbook) ActiveSheet() string {
	return w.f.GetSheetName(w.f.GetActiveSheetIndex())
}

// SetActive makes sheet the active one.
func (w *Workbook) SetActive(sheet string) error {
	idx, err := w.sheetIndex(sheet)
	if err != nil {
		return err
	}
	w.f.SetActiveSheet(idx)
	return nil
}

func (w *Workbook) sheetIndex(sheet string) (int, error) {
	idx, err := w.f.GetSheetIndex(sheet)
	if err != nil {
		return 0, err
	}
	if idx < 0 {
		return 0, fmt.Errorf("sheet %q does not exist", sheet)
	}
	return idx, nil
}

// CreateSheet adds sheet and activates it.
func (w *Workbook) CreateSheet(name string) error {
	if idx, _ := w.f.GetSheetIndex(name); idx >= 0 {
		return fmt.Errorf("sheet %q already exists", name)
	}
	idx, err := w.f.NewSheet(name)
	if err != nil {
		return err
	}
	w.f.SetActiveSheet(idx)
	return nil
}

// UsedRows is the number of rows up to and including the last non-empty one.
func (w *Workbook) UsedRows(sheet string) (int, error) {
	if _, err := w.sheetIndex(sheet); err != nil {
		return 0, err
	}
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return 0, err
	}
	n := len(rows)
	for n > 0 && blankRow(rows[n-1]) {
		n--
	}
	return n, nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// CellText is the formatted text of one cell.
func (w *Workbook) CellText(sheet string, at address.Coordinate) (string, error) {
	if _, err := w.sheetIndex(sheet); err != nil {
		return "", err
	}
	return w.f.GetCellValue(sheet, cellName(at))
}

// Clear empties a block and drops its styling.
func (w *Workbook) Clear(sheet string, at address.Coordinate, rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	if _, err := w.sheetIndex(sheet); err != nil {
		return err
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if err := w.f.SetCellValue(sheet, cellName(at.Offset(r, c)), nil); err != nil {
				return err
			}
		}
	}
	end := at.Offset(rows-1, cols-1)
	return w.f.SetCellStyle(sheet, cellName(at), cellName(end), 0)
}

// ClearSheet empties every used cell of sheet.
func (w *Workbook) ClearSheet(sheet string) error {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return err
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	return w.Clear(sheet, address.Origin, len(rows), width)
}

// WriteRows writes a row-major block starting at at.
func (w *Workbook) WriteRows(sheet string, at address.Coordinate, rows [][]any) error {
	if _, err := w.sheetIndex(sheet); err != nil {
		return err
	}
	for i, row := range rows {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = cellValue(v)
		}
		if err := w.f.SetSheetRow(sheet, cellName(at.Offset(i, 0)), &vals); err != nil {
			return err
		}
	}
	return nil
}

// Bold sets a bold font on a block.
func (w *Workbook) Bold(sheet string, at address.Coordinate, rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	if w.bold == 0 {
		id, err := w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		w.bold = id
	}
	return w.f.SetCellStyle(sheet, cellName(at), cellName(at.Offset(rows-1, cols-1)), w.bold)
}

// Autofit sizes every used column to its widest cell.
func (w *Workbook) Autofit(sheet string) error {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return err
	}
	var widths []int
	for _, row := range rows {
		for c, v := range row {
			for len(widths) <= c {
				widths = append(widths, 0)
			}
			widths[c] = max(widths[c], textWidth(v))
		}
	}
	for c, n := range widths {
		if n == 0 {
			continue
		}
		width := min(max(float64(n)+2, minColWidth), maxColWidth)
		col := address.ColumnName(c)
		if err := w.f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func textWidth(s string) int {
	widest := 0
	for _, line := range strings.Split(s, "\n") {
		widest = max(widest, runewidth.StringWidth(line))
	}
	return widest
}

// Commit writes the workbook to its path.
func (w *Workbook) Commit() error {
	return w.f.SaveAs(w.path)
}

// Rollback discards unsaved edits by reloading the file from disk.
func (w *Workbook) Rollback() error {
	old := w.f
	if err := w.load(); err != nil {
		return err
	}
	return old.Close()
}

// Cell reads one cell for SQL substitution: typed value plus number format code.
func (w *Workbook) Cell(sheet string, at address.Coordinate) (sqlref.Cell, error) {
	if _, err := w.sheetIndex(sheet); err != nil {
		return sqlref.Cell{}, err
	}
	name := cellName(at)
	raw, err := w.f.GetCellValue(sheet, name, excelize.Options{RawCellValue: true})
	if err != nil {
		return sqlref.Cell{}, err
	}
	typ, err := w.f.GetCellType(sheet, name)
	if err != nil {
		return sqlref.Cell{}, err
	}
	format, err := w.numberFormat(sheet, name)
	if err != nil {
		return sqlref.Cell{}, err
	}
	return sqlref.Cell{Value: typedValue(typ, raw), Format: format}, nil
}

func typedValue(typ excelize.CellType, raw string) any {
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if raw == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	if raw == "" {
		return nil
	}
	return raw
}

func (w *Workbook) numberFormat(sheet, cell string) (string, error) {
	id, err := w.f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return "General", err
	}
	style, err := w.f.GetStyle(id)
	if err != nil {
		return "", err
	}
	if style.CustomNumFmt != nil && *style.CustomNumFmt != "" {
		return *style.CustomNumFmt, nil
	}
	if code, ok := builtinFormats[style.NumFmt]; ok {
		return code, nil
	}
	return "General", nil
}

// builtinFormats are the predefined number format codes of the xlsx standard that
// excelize reports by id.
var builtinFormats = map[int]string{
	0:  "General",
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	9:  "0%",
	10: "0.00%",
	11: "0.00E+00",
	12: "# ?/?",
	13: "# ??/??",
	14: "mm-dd-yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm AM/PM",
	19: "h:mm:ss AM/PM",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yy h:mm",
	37: "#,##0 ;(#,##0)",
	38: "#,##0 ;[Red](#,##0)",
	39: "#,##0.00;(#,##0.00)",
	40: "#,##0.00;[Red](#,##0.00)",
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mmss.0",
	48: "##0.0E+0",
	49: "@",
}

// cellValue maps decoded JSON scalars onto values excelize stores natively.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case interface{ Int64() (int64, error) }:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, ok := v.(interface{ Float64() (float64, error) }); ok {
			if n, err := f.Float64(); err == nil {
				return n
			}
		}
		return fmt.Sprint(v)
	}
	return v
}

func cellName(c address.Coordinate) string {
	name, err := excelize.CoordinatesToCellName(c.Col+1, c.Row+1)
	if err != nil {
		return address.Format(c)
	}
	return name
}

// Exists reports whether a workbook file is already on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
