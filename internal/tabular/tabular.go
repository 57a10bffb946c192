// Package tabular holds the row-oriented result shape exchanged between the relay,
// the CLI and the write-back planner.
//
// A Result is an ordered list of rows, each a mapping from column name to a scalar.
// Column order comes from the key order of the first row and is fixed for the whole
// result; rows missing a key render as empty cells.
package tabular

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Row maps column name to value.
type Row map[string]any

// Result is an ordered set of rows with a fixed column order.
type Result struct {
	Columns []string
	Rows    []Row
}

// New builds a Result from column names and positional values, the shape used by
// the Databricks statement API (manifest columns + data_array).
func New(columns []string, data [][]any) Result {
	r := Result{Columns: append([]string(nil), columns...), Rows: make([]Row, 0, len(data))}
	for _, values := range data {
		row := make(Row, len(columns))
		for i, name := range columns {
			if i < len(values) {
				row[name] = values[i]
			} else {
				row[name] = nil
			}
		}
		r.Rows = append(r.Rows, row)
	}
	return r
}

// Len returns the number of rows.
func (r Result) Len() int { return len(r.Rows) }

// Empty reports whether the result has no rows.
func (r Result) Empty() bool { return len(r.Rows) == 0 }

// Matrix returns row-major values in column order. Missing keys yield nil.
func (r Result) Matrix() [][]any {
	out := make([][]any, len(r.Rows))
	for i, row := range r.Rows {
		vals := make([]any, len(r.Columns))
		for j, name := range r.Columns {
			vals[j] = row[name]
		}
		out[i] = vals
	}
	return out
}

// Slice returns rows [from, to) sharing the column order.
func (r Result) Slice(from, to int) Result {
	if from < 0 {
		from = 0
	}
	if to > len(r.Rows) {
		to = len(r.Rows)
	}
	if from > to {
		from = to
	}
	return Result{Columns: r.Columns, Rows: r.Rows[from:to]}
}

// MarshalJSON writes the rows as a JSON array of objects with keys in column order.
func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range r.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, name := range r.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(name)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(row[name])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON array of objects, capturing the first object's key order
// as the column order. Numbers are kept as json.Number so integers survive intact.
func (r *Result) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = Result{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return errors.New("tabular: expected array of row objects")
	}
	out := Result{}
	first := true
	for dec.More() {
		row, keys, err := readRow(dec)
		if err != nil {
			return err
		}
		if first {
			out.Columns = keys
			first = false
		}
		out.Rows = append(out.Rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

func readRow(dec *json.Decoder) (Row, []string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("tabular: expected row object")
	}
	row := Row{}
	var keys []string
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, nil, errors.New("tabular: expected column name")
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := row[key]; !dup {
			keys = append(keys, key)
		}
		row[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return row, keys, nil
}
