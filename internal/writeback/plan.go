// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package writeback turns a tabular result into spreadsheet edits.
//
// Planning is pure: Plan looks only at the data, the destination and two facts about
// the target sheet, and returns a list of instructions. Apply executes that list against
// a Host and commits only when every instruction succeeded.
package writeback

import (
	"fmt"
	"strings"
	"time"

	"sheetlink/cli/internal/address"
	"sheetlink/cli/internal/tabular"
)

// MaxSheetName is the longest sheet name every spreadsheet host accepts.
const MaxSheetName = 31

// Mode selects how rows land in the workbook.
type Mode int

const (
	// ModeOverwrite clears the target block and writes header and rows in place.
	ModeOverwrite Mode = iota
	// ModeAppend writes below existing content without clearing anything.
	ModeAppend
	// ModeNewSheet writes into a freshly created sheet.
	ModeNewSheet
)

func (m Mode) String() string {
	switch m {
	case ModeAppend:
		return "append"
	case ModeNewSheet:
		return "new-sheet"
	}
	return "overwrite"
}

// Destination is where and how one write lands.
type Destination struct {
	Mode  Mode
	Start address.Ref
}

// Overwrite writes at start, replacing what is there.
func Overwrite(start address.Ref) Destination {
	return Destination{Mode: ModeOverwrite, Start: start}
}

// Append writes after the existing content, or at start when start is not the origin.
func Append(start address.Ref) Destination {
	return Destination{Mode: ModeAppend, Start: start}
}

// NewSheet writes into a new sheet at start. Any sheet named in start is ignored.
func NewSheet(start address.Ref) Destination {
	start.Sheet, start.HasSheet = "", false
	return Destination{Mode: ModeNewSheet, Start: start}
}

// ResolveDestination builds a Destination from command-line style inputs. An empty
// target means A1 on the active sheet. newSheet takes precedence over appendRows.
func ResolveDestination(target string, appendRows, newSheet bool) (Destination, error) {
	start := address.Default()
	if strings.TrimSpace(target) != "" {
		ref, err := address.Parse(target)
		if err != nil {
			return Destination{}, err
		}
		start = ref
	}
	switch {
	case newSheet:
		return NewSheet(start), nil
	case appendRows:
		return Append(start), nil
	}
	return Overwrite(start), nil
}

// Instruction is one spreadsheet edit.
type Instruction interface {
	fmt.Stringer
	instruction()
}

// CreateSheet adds a sheet and makes it active.
type CreateSheet struct {
	Name string
}

// ClearRange empties a Rows x Cols block starting at At.
type ClearRange struct {
	At   address.Coordinate
	Rows int
	Cols int
}

// WriteHeaderRow writes column names in bold starting at At.
type WriteHeaderRow struct {
	At    address.Coordinate
	Names []string
}

// WriteDataBlock writes row-major values starting at At.
type WriteDataBlock struct {
	At   address.Coordinate
	Rows [][]any
}

// AutofitColumns sizes the sheet's used columns to their content.
type AutofitColumns struct{}

func (CreateSheet) instruction()    {}
func (ClearRange) instruction()     {}
func (WriteHeaderRow) instruction() {}
func (WriteDataBlock) instruction() {}
func (AutofitColumns) instruction() {}

func (i CreateSheet) String() string { return fmt.Sprintf("create sheet %q", i.Name) }

func (i ClearRange) String() string {
	return fmt.Sprintf("clear %dx%d at %s", i.Rows, i.Cols, i.At)
}

func (i WriteHeaderRow) String() string {
	return fmt.Sprintf("header %v at %s", i.Names, i.At)
}

func (i WriteDataBlock) String() string {
	cols := 0
	if len(i.Rows) > 0 {
		cols = len(i.Rows[0])
	}
	return fmt.Sprintf("data %dx%d at %s", len(i.Rows), cols, i.At)
}

func (AutofitColumns) String() string { return "autofit columns" }

// WritePlan is an ordered list of instructions for one sheet. Sheet is empty for the
// active sheet; a CreateSheet step switches the target to the new sheet.
type WritePlan struct {
	Sheet string
	Steps []Instruction
}

// Empty reports whether the plan does nothing.
func (p WritePlan) Empty() bool { return len(p.Steps) == 0 }

// SheetName derives a new sheet's name from now to the millisecond, cut to
// MaxSheetName.
func SheetName(now time.Time) string {
	name := "Query " + now.Format("2006-01-02 15.04.05.000")
	if len(name) > MaxSheetName {
		name = name[:MaxSheetName]
	}
	return name
}

// Plan decides what to clear and where the header and rows go.
//
// usedRows is the target sheet's used row count, or nil when unknown. headerPresent
// says whether the target already carries a header; only append mode consults it.
func Plan(data tabular.Result, dest Destination, usedRows *int, headerPresent bool, now time.Time) WritePlan {
	if data.Empty() {
		return WritePlan{}
	}
	cols := len(data.Columns)
	rows := cells(data)
	at := dest.Start.Coordinate

	p := WritePlan{}
	if dest.Start.HasSheet {
		p.Sheet = dest.Start.Sheet
	}

	switch dest.Mode {
	case ModeNewSheet:
		name := SheetName(now)
		p.Sheet = name
		p.Steps = append(p.Steps,
			CreateSheet{Name: name},
			WriteHeaderRow{At: at, Names: data.Columns},
			WriteDataBlock{At: at.Offset(1, 0), Rows: rows},
		)
	case ModeAppend:
		cur := AppendRow(at, usedRows)
		if !headerPresent {
			p.Steps = append(p.Steps, WriteHeaderRow{At: cur, Names: data.Columns})
			cur = cur.Offset(1, 0)
		}
		p.Steps = append(p.Steps, WriteDataBlock{At: cur, Rows: rows})
	default:
		p.Steps = append(p.Steps,
			ClearRange{At: at, Rows: len(rows) + 1, Cols: cols},
			WriteHeaderRow{At: at, Names: data.Columns},
			WriteDataBlock{At: at.Offset(1, 0), Rows: rows},
		)
	}
	p.Steps = append(p.Steps, AutofitColumns{})
	return p
}

// AppendRow is where an append write starts, before any header is placed. An origin
// start with a known non-empty sheet means the first unused row.
func AppendRow(start address.Coordinate, usedRows *int) address.Coordinate {
	if start.IsOrigin() && usedRows != nil && *usedRows > 0 {
		return address.Coordinate{Row: *usedRows, Col: start.Col}
	}
	return start
}

func cells(data tabular.Result) [][]any {
	m := data.Matrix()
	for _, row := range m {
		for j, v := range row {
			if v == nil {
				row[j] = ""
			}
		}
	}
	return m
}
