// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlref substitutes spreadsheet cell references inside SQL text.
//
// A reference is written ${A1}, ${Sheet 1!B2} or ${A1:B3}. A single cell becomes one
// SQL literal and a range becomes a parenthesised list read row by row, ready for IN.
package sqlref

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sheetlink/cli/internal/address"
	serrors "sheetlink/cli/internal/errors"
)

var (
	refPattern     = regexp.MustCompile(`\$\{([^}]+)\}`)
	numericPattern = regexp.MustCompile(`^\s*[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?\s*$`)
	// colour and locale sections, quoted literals
	formatNoise = regexp.MustCompile(`\[[^\]]*\]|"[^"]*"`)
)

// Cell is what a Source reports for one cell.
type Cell struct {
	// Value is nil, float64, bool, string or time.Time.
	Value any
	// Format is the cell's number format code, "General" when unstyled.
	Format string
}

// Source reads cells from a workbook.
type Source interface {
	ActiveSheet() string
	Cell(sheet string, at address.Coordinate) (Cell, error)
}

// Refs lists the references in sql in order of appearance.
func Refs(sql string) []string {
	var out []string
	for _, m := range refPattern.FindAllStringSubmatch(sql, -1) {
		out = append(out, m[1])
	}
	return out
}

// Expand replaces every reference in sql with the SQL literal for its cells. Text
// without references is returned unchanged and src is not consulted.
func Expand(sql string, src Source) (string, error) {
	if !refPattern.MatchString(sql) {
		return sql, nil
	}
	var firstErr error
	out := refPattern.ReplaceAllStringFunc(sql, func(token string) string {
		if firstErr != nil {
			return token
		}
		ref := refPattern.FindStringSubmatch(token)[1]
		lit, err := expandOne(ref, src)
		if err != nil {
			firstErr = serrors.Wrap(serrors.Malformed, "Invalid cell reference: "+ref, err)
			return token
		}
		return lit
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// MaxRangeCells bounds the literals one range reference may expand to.
const MaxRangeCells = 10000

func expandOne(ref string, src Source) (string, error) {
	rng, err := address.ParseRange(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	sheet := src.ActiveSheet()
	if rng.HasSheet {
		sheet = rng.Sheet
	}
	if rng.Rows() == 1 && rng.Cols() == 1 {
		c, err := src.Cell(sheet, rng.Start)
		if err != nil {
			return "", err
		}
		return Literal(c), nil
	}
	n := rng.Rows() * rng.Cols()
	if n > MaxRangeCells {
		return "", fmt.Errorf("range covers %d cells, more than %d", n, MaxRangeCells)
	}
	vals := make([]string, 0, n)
	for r := rng.Start.Row; r <= rng.End.Row; r++ {
		for col := rng.Start.Col; col <= rng.End.Col; col++ {
			c, err := src.Cell(sheet, address.Coordinate{Row: r, Col: col})
			if err != nil {
				return "", err
			}
			vals = append(vals, Literal(c))
		}
	}
	return "(" + strings.Join(vals, ", ") + ")", nil
}

// Literal renders one cell as a SQL literal.
//
// Empty cells become NULL. Cells whose number format mentions a day, month or year
// become a quoted ISO date. Numbers and numeric-looking text pass through verbatim,
// booleans become TRUE or FALSE, and everything else is single-quoted with embedded
// quotes doubled.
func Literal(c Cell) string {
	if c.Value == nil {
		return "NULL"
	}
	if isDateFormat(c.Format) {
		if d, ok := asDate(c.Value); ok {
			return "'" + d.Format("2006-01-02") + "'"
		}
	}
	switch v := c.Value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case string:
		if numericPattern.MatchString(v) {
			return v
		}
		return quote(v)
	case time.Time:
		return "'" + v.Format("2006-01-02") + "'"
	}
	return quote(fmt.Sprint(c.Value))
}

func isDateFormat(format string) bool {
	return strings.ContainsAny(formatNoise.ReplaceAllString(format, ""), "dmy")
}

func asDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case float64:
		t, err := excelize.ExcelDateToTime(x, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

