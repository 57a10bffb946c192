// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package address converts between spreadsheet-style cell references ("Sheet1!B3")
// and zero-based (row, column) coordinates.
//
// Column letters form a base-26 numeral without a zero digit (A=1 .. Z=26, AA=27),
// case-insensitive. Rows are one-based in text and zero-based in coordinates.
package address

import (
	"strconv"
	"strings"

	serrors "sheetlink/cli/internal/errors"
)

// Coordinate is a zero-based cell position.
type Coordinate struct {
	Row int
	Col int
}

// Origin is the top-left cell, A1.
var Origin = Coordinate{}

// IsOrigin reports whether c is A1.
func (c Coordinate) IsOrigin() bool { return c.Row == 0 && c.Col == 0 }

// Offset returns c moved by dr rows and dc columns.
func (c Coordinate) Offset(dr, dc int) Coordinate {
	return Coordinate{Row: c.Row + dr, Col: c.Col + dc}
}

func (c Coordinate) String() string { return Format(c) }

// Ref is a parsed reference with an optional sheet qualifier.
type Ref struct {
	Sheet      string
	HasSheet   bool
	Coordinate Coordinate
}

// Default returns the reference used when no explicit destination is given.
func Default() Ref { return Ref{Coordinate: Origin} }

// Parse parses text such as "B12", "b12" or "Sheet 1!AA10".
// The sheet name is everything before the '!'. It must not be empty and must not
// itself contain '!'.
func Parse(text string) (Ref, error) {
	var ref Ref
	cell := text
	if strings.Count(text, "!") > 1 {
		return Ref{}, malformed(text)
	}
	if i := strings.IndexByte(text, '!'); i >= 0 {
		ref.Sheet = text[:i]
		ref.HasSheet = true
		cell = text[i+1:]
		if ref.Sheet == "" {
			return Ref{}, malformed(text)
		}
	}
	c, ok := parseCell(cell)
	if !ok {
		return Ref{}, malformed(text)
	}
	ref.Coordinate = c
	return ref, nil
}

// ParseCoordinate parses a bare cell address without a sheet prefix.
func ParseCoordinate(text string) (Coordinate, error) {
	c, ok := parseCell(text)
	if !ok {
		return Coordinate{}, malformed(text)
	}
	return c, nil
}

func parseCell(s string) (Coordinate, bool) {
	i := 0
	col := 0
	for i < len(s) && isLetter(s[i]) {
		col = col*26 + int(upper(s[i])-'A'+1)
		i++
		// XFD is the widest sheet any host supports; anything longer is nonsense
		// and would eventually overflow.
		if i > 7 {
			return Coordinate{}, false
		}
	}
	if i == 0 {
		return Coordinate{}, false
	}
	digits := s[i:]
	if digits == "" || digits[0] == '0' {
		return Coordinate{}, false
	}
	for j := 0; j < len(digits); j++ {
		if digits[j] < '0' || digits[j] > '9' {
			return Coordinate{}, false
		}
	}
	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 {
		return Coordinate{}, false
	}
	return Coordinate{Row: row - 1, Col: col - 1}, true
}

// Format renders a coordinate as a one-based letter-column address.
func Format(c Coordinate) string {
	return ColumnName(c.Col) + strconv.Itoa(c.Row+1)
}

// FormatRef renders a reference, quoting nothing; sheet names are emitted verbatim.
func FormatRef(r Ref) string {
	if r.HasSheet {
		return r.Sheet + "!" + Format(r.Coordinate)
	}
	return Format(r.Coordinate)
}

// ColumnName returns the letters for a zero-based column index (0 -> "A", 26 -> "AA").
func ColumnName(col int) string {
	if col < 0 {
		return ""
	}
	n := col + 1
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		n--
		i--
		buf[i] = byte('A' + n%26)
		n /= 26
	}
	return string(buf[i:])
}

// ColumnIndex decodes column letters into a zero-based index.
func ColumnIndex(letters string) (int, error) {
	if letters == "" || len(letters) > 7 {
		return 0, malformed(letters)
	}
	col := 0
	for i := 0; i < len(letters); i++ {
		if !isLetter(letters[i]) {
			return 0, malformed(letters)
		}
		col = col*26 + int(upper(letters[i])-'A'+1)
	}
	return col - 1, nil
}

func malformed(text string) error {
	return serrors.New(serrors.Malformed, "invalid cell address "+strconv.Quote(text))
}

func isLetter(b byte) bool { return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') }

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// Grid limits of an .xlsx sheet.
const (
	MaxRows = 1048576
	MaxCols = 16384 // XFD
)

// InGrid reports whether c lies on an .xlsx sheet.
func (c Coordinate) InGrid() bool {
	return c.Row >= 0 && c.Row < MaxRows && c.Col >= 0 && c.Col < MaxCols
}

// Range is a rectangular block of cells, inclusive on both ends.
type Range struct {
	Sheet    string
	HasSheet bool
	Start    Coordinate
	End      Coordinate
}

// Rows returns the number of rows spanned by r.
func (r Range) Rows() int { return r.End.Row - r.Start.Row + 1 }

// Cols returns the number of columns spanned by r.
func (r Range) Cols() int { return r.End.Col - r.Start.Col + 1 }

// ParseRange parses "A1", "A1:C3" or "Sheet!B2:B9". A single cell yields a 1x1 range.
// Corners given in reverse order are normalized. Corners outside the sheet grid are
// malformed.
func ParseRange(text string) (Range, error) {
	head, tail, isRange := strings.Cut(text, ":")
	ref, err := Parse(head)
	if err != nil {
		return Range{}, malformed(text)
	}
	if !ref.Coordinate.InGrid() {
		return Range{}, malformed(text)
	}
	r := Range{Sheet: ref.Sheet, HasSheet: ref.HasSheet, Start: ref.Coordinate, End: ref.Coordinate}
	if !isRange {
		return r, nil
	}
	end, err := ParseCoordinate(tail)
	if err != nil || !end.InGrid() {
		return Range{}, malformed(text)
	}
	r.End = end
	if r.End.Row < r.Start.Row {
		r.Start.Row, r.End.Row = r.End.Row, r.Start.Row
	}
	if r.End.Col < r.Start.Col {
		r.Start.Col, r.End.Col = r.End.Col, r.Start.Col
	}
	return r, nil
}
