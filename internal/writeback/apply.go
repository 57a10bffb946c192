package writeback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sheetlink/cli/internal/address"
	serrors "sheetlink/cli/internal/errors"
	"sheetlink/cli/internal/tabular"
)

// Host is the spreadsheet object model a plan is applied to. Edits are buffered until
// Commit; Rollback drops everything since the last commit.
type Host interface {
	ActiveSheet() string
	CreateSheet(name string) error
	UsedRows(sheet string) (int, error)
	CellText(sheet string, at address.Coordinate) (string, error)
	Clear(sheet string, at address.Coordinate, rows, cols int) error
	WriteRows(sheet string, at address.Coordinate, rows [][]any) error
	Bold(sheet string, at address.Coordinate, rows, cols int) error
	Autofit(sheet string) error
	Commit() error
	Rollback() error
}

// Apply executes p against host in one batch. The host is committed only when every
// step succeeded; otherwise it is rolled back and the first failure is returned.
func Apply(ctx context.Context, host Host, p WritePlan) error {
	if p.Empty() {
		return nil
	}
	sheet := p.Sheet
	if sheet == "" {
		sheet = host.ActiveSheet()
	}
	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return rollback(host, err)
		}
		var err error
		switch s := step.(type) {
		case CreateSheet:
			if err = host.CreateSheet(s.Name); err == nil {
				sheet = s.Name
			}
		case ClearRange:
			err = host.Clear(sheet, s.At, s.Rows, s.Cols)
		case WriteHeaderRow:
			row := make([]any, len(s.Names))
			for j, n := range s.Names {
				row[j] = n
			}
			if err = host.WriteRows(sheet, s.At, [][]any{row}); err == nil {
				err = host.Bold(sheet, s.At, 1, len(s.Names))
			}
		case WriteDataBlock:
			err = host.WriteRows(sheet, s.At, s.Rows)
		case AutofitColumns:
			err = host.Autofit(sheet)
		default:
			err = fmt.Errorf("unknown instruction %T", step)
		}
		if err != nil {
			return rollback(host, serrors.Wrap(serrors.Host, fmt.Sprintf("step %d (%s) failed", i+1, step), err))
		}
	}
	if err := host.Commit(); err != nil {
		return rollback(host, serrors.Wrap(serrors.Host, "could not save workbook", err))
	}
	return nil
}

func rollback(host Host, cause error) error {
	if err := host.Rollback(); err != nil {
		return fmt.Errorf("%w (rollback also failed: %v)", cause, err)
	}
	return cause
}

// HeaderPresent reports whether sheet already carries a header, judged by whether the
// single cell at at is non-blank.
//
// A sheet whose first data cell is blank reads as having no header, so a second header
// row gets written. This matches what earlier releases did and is left as is.
func HeaderPresent(host Host, sheet string, at address.Coordinate) (bool, error) {
	if sheet == "" {
		sheet = host.ActiveSheet()
	}
	text, err := host.CellText(sheet, at)
	if err != nil {
		return false, serrors.Wrap(serrors.Host, "could not read header cell "+address.Format(at), err)
	}
	return strings.TrimSpace(text) != "", nil
}

// Write plans and applies data for dest in one call, probing the host for the facts
// Plan needs.
func Write(ctx context.Context, host Host, data tabular.Result, dest Destination, now time.Time) (WritePlan, error) {
	sheet := ""
	if dest.Start.HasSheet && dest.Mode != ModeNewSheet {
		sheet = dest.Start.Sheet
	}
	var used *int
	header := false
	if dest.Mode == ModeAppend && !data.Empty() {
		n, err := host.UsedRows(orActive(host, sheet))
		if err != nil {
			return WritePlan{}, serrors.Wrap(serrors.Host, "could not read used range", err)
		}
		used = &n
		if n > 0 {
			header, err = HeaderPresent(host, sheet, dest.Start.Coordinate)
			if err != nil {
				return WritePlan{}, err
			}
		}
	}
	p := Plan(data, dest, used, header, now)
	return p, Apply(ctx, host, p)
}

func orActive(host Host, sheet string) string {
	if sheet == "" {
		return host.ActiveSheet()
	}
	return sheet
}
