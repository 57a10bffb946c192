package writeback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetlink/cli/internal/address"
	serrors "sheetlink/cli/internal/errors"
	"sheetlink/cli/internal/tabular"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func sample(rows int) tabular.Result {
	data := make([][]any, rows)
	for i := range data {
		data[i] = []any{"r" + string(rune('a'+i)), i}
	}
	return tabular.New([]string{"name", "n"}, data)
}

func at(text string) address.Ref {
	ref, err := address.Parse(text)
	if err != nil {
		panic(err)
	}
	return ref
}

func intp(n int) *int { return &n }

func TestPlanEmptyDataIsNoop(t *testing.T) {
	for _, dest := range []Destination{Overwrite(at("A1")), Append(at("A1")), NewSheet(at("A1"))} {
		t.Run(dest.Mode.String(), func(t *testing.T) {
			p := Plan(tabular.Result{}, dest, intp(3), false, fixedNow)
			assert.True(t, p.Empty())
		})
	}
}

func TestPlanOverwrite(t *testing.T) {
	p := Plan(sample(3), Overwrite(at("A1")), nil, false, fixedNow)

	require.Len(t, p.Steps, 4)
	assert.Equal(t, ClearRange{At: address.Coordinate{}, Rows: 4, Cols: 2}, p.Steps[0])
	assert.Equal(t, WriteHeaderRow{At: address.Coordinate{}, Names: []string{"name", "n"}}, p.Steps[1])
	block, ok := p.Steps[2].(WriteDataBlock)
	require.True(t, ok)
	assert.Equal(t, address.Coordinate{Row: 1, Col: 0}, block.At)
	assert.Len(t, block.Rows, 3)
	assert.Len(t, block.Rows[0], 2)
	assert.Equal(t, AutofitColumns{}, p.Steps[3])
	assert.Empty(t, p.Sheet)
}

func TestPlanOverwriteWithSheetAndOffset(t *testing.T) {
	p := Plan(sample(1), Overwrite(at("Data!C5")), nil, false, fixedNow)
	assert.Equal(t, "Data", p.Sheet)
	assert.Equal(t, ClearRange{At: address.Coordinate{Row: 4, Col: 2}, Rows: 2, Cols: 2}, p.Steps[0])
	assert.Equal(t, address.Coordinate{Row: 5, Col: 2}, p.Steps[2].(WriteDataBlock).At)
}

func TestPlanNewSheetIgnoresAppend(t *testing.T) {
	dest, err := ResolveDestination("", true, true)
	require.NoError(t, err)
	require.Equal(t, ModeNewSheet, dest.Mode)

	p := Plan(sample(2), dest, intp(10), true, fixedNow)
	require.Len(t, p.Steps, 4)
	assert.Equal(t, CreateSheet{Name: "Query 2025-03-14 09.26.53.000"}, p.Steps[0])
	assert.Equal(t, "Query 2025-03-14 09.26.53.000", p.Sheet)
	for _, s := range p.Steps {
		_, isClear := s.(ClearRange)
		assert.False(t, isClear, "new sheet plans never clear")
	}
	assert.IsType(t, WriteHeaderRow{}, p.Steps[1])
	assert.Equal(t, address.Coordinate{}, p.Steps[1].(WriteHeaderRow).At)
}

func TestPlanNewSheetDropsSheetPrefix(t *testing.T) {
	dest, err := ResolveDestination("Other!B2", false, true)
	require.NoError(t, err)
	p := Plan(sample(1), dest, nil, false, fixedNow)
	assert.Equal(t, SheetName(fixedNow), p.Sheet)
	assert.Equal(t, address.Coordinate{Row: 1, Col: 1}, p.Steps[1].(WriteHeaderRow).At)
}

func TestSheetNameFitsHostLimit(t *testing.T) {
	assert.LessOrEqual(t, len(SheetName(fixedNow)), MaxSheetName)
	assert.LessOrEqual(t, len(SheetName(time.Date(12345, 1, 1, 0, 0, 0, 0, time.UTC))), MaxSheetName)
}

func TestSheetNameDistinctWithinOneSecond(t *testing.T) {
	later := fixedNow.Add(250 * time.Millisecond)
	assert.NotEqual(t, SheetName(fixedNow), SheetName(later))
	assert.Equal(t, "Query 2025-03-14 09.26.53.250", SheetName(later))
}

func TestPlanAppend(t *testing.T) {
	tests := []struct {
		name       string
		start      string
		used       *int
		header     bool
		wantHeader *address.Coordinate
		wantData   address.Coordinate
	}{
		{
			name:     "origin with used rows and header present",
			start:    "A1",
			used:     intp(5),
			header:   true,
			wantData: address.Coordinate{Row: 5},
		},
		{
			name:       "origin with used rows and no header",
			start:      "A1",
			used:       intp(5),
			wantHeader: &address.Coordinate{Row: 5},
			wantData:   address.Coordinate{Row: 6},
		},
		{
			name:       "origin on empty sheet",
			start:      "A1",
			used:       intp(0),
			wantHeader: &address.Coordinate{},
			wantData:   address.Coordinate{Row: 1},
		},
		{
			name:       "origin with unknown used range",
			start:      "A1",
			wantHeader: &address.Coordinate{},
			wantData:   address.Coordinate{Row: 1},
		},
		{
			name:     "explicit start ignores used rows",
			start:    "B4",
			used:     intp(20),
			header:   true,
			wantData: address.Coordinate{Row: 3, Col: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Plan(sample(2), Append(at(tt.start)), tt.used, tt.header, fixedNow)
			var header *WriteHeaderRow
			var data *WriteDataBlock
			for _, s := range p.Steps {
				switch v := s.(type) {
				case ClearRange:
					t.Fatal("append never clears")
				case WriteHeaderRow:
					header = &v
				case WriteDataBlock:
					data = &v
				}
			}
			if tt.wantHeader == nil {
				assert.Nil(t, header)
			} else {
				require.NotNil(t, header)
				assert.Equal(t, *tt.wantHeader, header.At)
			}
			require.NotNil(t, data)
			assert.Equal(t, tt.wantData, data.At)
			assert.Equal(t, AutofitColumns{}, p.Steps[len(p.Steps)-1])
		})
	}
}

func TestPlanNilBecomesEmptyString(t *testing.T) {
	data := tabular.New([]string{"a", "b"}, [][]any{{nil, 3.5}, {true}})
	p := Plan(data, Overwrite(address.Default()), nil, false, fixedNow)
	block := p.Steps[2].(WriteDataBlock)
	assert.Equal(t, [][]any{{"", 3.5}, {true, ""}}, block.Rows)
}

func TestResolveDestination(t *testing.T) {
	d, err := ResolveDestination("", false, false)
	require.NoError(t, err)
	assert.Equal(t, Overwrite(address.Default()), d)

	d, err = ResolveDestination("Sheet 2!D7", true, false)
	require.NoError(t, err)
	assert.Equal(t, ModeAppend, d.Mode)
	assert.Equal(t, "Sheet 2", d.Start.Sheet)

	_, err = ResolveDestination("7D", false, false)
	assert.True(t, serrors.IsKind(err, serrors.Malformed))
}

// memHost records edits in memory and fails on a chosen call.
type memHost struct {
	active    string
	cells     map[string]map[address.Coordinate]any
	bold      int
	autofits  int
	commits   int
	rollbacks int
	used      int
	failOn    string
	created   []string
}

func newMemHost() *memHost {
	return &memHost{active: "Sheet1", cells: map[string]map[address.Coordinate]any{"Sheet1": {}}}
}

func (h *memHost) fail(op string) error {
	if h.failOn == op {
		return errors.New(op + " rejected")
	}
	return nil
}

func (h *memHost) ActiveSheet() string { return h.active }

func (h *memHost) CreateSheet(name string) error {
	if err := h.fail("create"); err != nil {
		return err
	}
	h.cells[name] = map[address.Coordinate]any{}
	h.created = append(h.created, name)
	h.active = name
	return nil
}

func (h *memHost) UsedRows(string) (int, error) { return h.used, nil }

func (h *memHost) CellText(sheet string, c address.Coordinate) (string, error) {
	if v, ok := h.cells[sheet][c]; ok {
		if s, ok := v.(string); ok {
			return s, nil
		}
		return "x", nil
	}
	return "", nil
}

func (h *memHost) Clear(sheet string, c address.Coordinate, rows, cols int) error {
	return h.fail("clear")
}

func (h *memHost) WriteRows(sheet string, c address.Coordinate, rows [][]any) error {
	if err := h.fail("write"); err != nil {
		return err
	}
	for i, row := range rows {
		for j, v := range row {
			h.cells[sheet][c.Offset(i, j)] = v
		}
	}
	return nil
}

func (h *memHost) Bold(string, address.Coordinate, int, int) error { h.bold++; return nil }

func (h *memHost) Autofit(string) error {
	h.autofits++
	return h.fail("autofit")
}

func (h *memHost) Commit() error   { h.commits++; return nil }
func (h *memHost) Rollback() error { h.rollbacks++; return nil }

func TestApplyCommitsOnSuccess(t *testing.T) {
	h := newMemHost()
	p := Plan(sample(2), Overwrite(address.Default()), nil, false, fixedNow)
	require.NoError(t, Apply(context.Background(), h, p))

	assert.Equal(t, 1, h.commits)
	assert.Equal(t, 0, h.rollbacks)
	assert.Equal(t, 1, h.bold)
	assert.Equal(t, "name", h.cells["Sheet1"][address.Coordinate{}])
	assert.Equal(t, 1, h.cells["Sheet1"][address.Coordinate{Row: 2, Col: 1}])
}

func TestApplyNewSheetTargetsCreatedSheet(t *testing.T) {
	h := newMemHost()
	p := Plan(sample(1), NewSheet(address.Default()), nil, false, fixedNow)
	require.NoError(t, Apply(context.Background(), h, p))
	require.Len(t, h.created, 1)
	assert.Equal(t, "name", h.cells[h.created[0]][address.Coordinate{}])
	assert.Empty(t, h.cells["Sheet1"])
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	h := newMemHost()
	h.failOn = "autofit"
	p := Plan(sample(2), Overwrite(address.Default()), nil, false, fixedNow)
	err := Apply(context.Background(), h, p)

	require.Error(t, err)
	assert.True(t, serrors.IsKind(err, serrors.Host))
	assert.Equal(t, 0, h.commits)
	assert.Equal(t, 1, h.rollbacks)
}

func TestApplyEmptyPlanTouchesNothing(t *testing.T) {
	h := newMemHost()
	require.NoError(t, Apply(context.Background(), h, WritePlan{}))
	assert.Zero(t, h.commits)
}

func TestWriteAppendProbesHeader(t *testing.T) {
	h := newMemHost()
	h.cells["Sheet1"][address.Coordinate{}] = "name"
	h.used = 3

	dest, err := ResolveDestination("", true, false)
	require.NoError(t, err)
	p, err := Write(context.Background(), h, sample(1), dest, fixedNow)
	require.NoError(t, err)

	require.Len(t, p.Steps, 2)
	assert.Equal(t, address.Coordinate{Row: 3}, p.Steps[0].(WriteDataBlock).At)
	assert.Equal(t, "ra", h.cells["Sheet1"][address.Coordinate{Row: 3}])
}

// A blank first cell reads as "no header yet", so a second header lands below the
// existing rows. Kept for compatibility with the single-cell probe.
func TestHeaderProbeBlankFirstCellEdgeCase(t *testing.T) {
	h := newMemHost()
	h.cells["Sheet1"][address.Coordinate{Row: 1, Col: 1}] = 7
	h.used = 2

	present, err := HeaderPresent(h, "", address.Coordinate{})
	require.NoError(t, err)
	assert.False(t, present)

	dest, _ := ResolveDestination("", true, false)
	p, err := Write(context.Background(), h, sample(1), dest, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, WriteHeaderRow{At: address.Coordinate{Row: 2}, Names: []string{"name", "n"}}, p.Steps[0])
}
