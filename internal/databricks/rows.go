package databricks

import (
	"errors"

	"sheetlink/cli/internal/tabular"
)

// ErrInvalidFormat means a statement response lacked a manifest schema or result.
var ErrInvalidFormat = errors.New("Invalid response format from Databricks")

// Rows pairs manifest column names with positional values, keeping column and row
// order. A missing data_array means zero rows.
func Rows(m *Manifest, r *ResultData) (tabular.Result, error) {
	if m == nil || m.Schema == nil || r == nil {
		return tabular.Result{}, ErrInvalidFormat
	}
	cols := make([]string, len(m.Schema.Columns))
	for i, c := range m.Schema.Columns {
		cols[i] = c.Name
	}
	return tabular.New(cols, r.DataArray), nil
}

// StatementRows reshapes a statement execution response.
func StatementRows(s StatementResponse) (tabular.Result, error) {
	return Rows(s.Manifest, s.Result)
}

// GenieRows reshapes a Genie query result. Anything short of a full statement response
// yields an empty result rather than an error.
func GenieRows(q QueryResult) tabular.Result {
	s := q.StatementResponse
	if s == nil {
		return tabular.Result{}
	}
	out, err := Rows(s.Manifest, s.Result)
	if err != nil {
		return tabular.Result{}
	}
	return out
}
