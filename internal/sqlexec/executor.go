// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlexec runs statements against a local PostgreSQL database over a pgx
// connection pool and answers in the shape of the Databricks statement API, so the
// relay can serve a local warehouse for development and demos.
//
// Statements run inside a read-only transaction. Values are rendered as strings the way
// the Databricks JSON format does, with NULL kept as null.
package sqlexec

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"sheetlink/cli/internal/databricks"
)

// Executor executes SQL statements using a connection pool.
type Executor struct {
	// Pool is the PostgreSQL connection pool
	Pool *pgxpool.Pool
	// MaxRows caps the rows returned per statement; zero means no cap.
	MaxRows int
}

// New creates an Executor from an existing pgx pool.
func New(pool *pgxpool.Pool) *Executor {
	return &Executor{Pool: pool}
}

// Open connects a pool to dsn and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*Executor, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect local warehouse: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping local warehouse: %w", err)
	}
	return New(pool), nil
}

// Close releases the pool.
func (e *Executor) Close() {
	if e.Pool != nil {
		e.Pool.Close()
	}
}

// ExecuteStatement runs sql and returns a Databricks-shaped response. The connection
// and warehouse id are accepted for interface compatibility and ignored. SQL errors are
// reported in the response status, as Databricks does; only connection problems are
// returned as errors.
func (e *Executor) ExecuteStatement(ctx context.Context, _ databricks.Conn, _ string, sql string) (databricks.StatementResponse, error) {
	id := uuid.NewString()
	conn, err := e.Pool.Acquire(ctx)
	if err != nil {
		return databricks.StatementResponse{}, err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return databricks.StatementResponse{}, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return failed(id, err)
	}
	defer rows.Close()

	typeMap := conn.Conn().TypeMap()
	fds := rows.FieldDescriptions()
	cols := make([]databricks.Column, len(fds))
	for i, fd := range fds {
		cols[i] = databricks.Column{Name: fd.Name, Position: i, TypeName: typeName(typeMap, fd.DataTypeOID)}
	}

	data := [][]any{}
	for rows.Next() {
		if e.MaxRows > 0 && len(data) >= e.MaxRows {
			break
		}
		vals, err := rows.Values()
		if err != nil {
			return failed(id, err)
		}
		out := make([]any, len(vals))
		for j, v := range vals {
			out[j] = render(v)
		}
		data = append(data, out)
	}
	if err := rows.Err(); err != nil {
		return failed(id, err)
	}

	return databricks.StatementResponse{
		StatementID: id,
		Status:      &databricks.StatementStatus{State: "SUCCEEDED"},
		Manifest: &databricks.Manifest{
			Format:        "JSON_ARRAY",
			Schema:        &databricks.Schema{ColumnCount: len(cols), Columns: cols},
			TotalRowCount: int64(len(data)),
		},
		Result: &databricks.ResultData{RowCount: int64(len(data)), DataArray: data},
	}, nil
}

func failed(id string, err error) (databricks.StatementResponse, error) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return databricks.StatementResponse{}, err
	}
	return databricks.StatementResponse{
		StatementID: id,
		Status: &databricks.StatementStatus{
			State: "FAILED",
			Error: &databricks.StatementError{ErrorCode: pgErr.Code, Message: pgErr.Message},
		},
	}, nil
}

func typeName(m *pgtype.Map, oid uint32) string {
	if t, ok := m.TypeForOID(oid); ok {
		return t.Name
	}
	return "unknown"
}

// render converts a decoded pgx value into the string Databricks would send.
func render(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case []byte:
		if len(x) == 16 {
			if id, err := uuid.FromBytes(x); err == nil {
				return id.String()
			}
		}
		return fmt.Sprintf("\\x%x", x)
	case [16]byte:
		return uuid.UUID(x).String()
	case bool:
		return strconv.FormatBool(x)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 && x.Location() == time.UTC {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339Nano)
	case pgtype.Numeric:
		return numeric(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func numeric(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	if n.NaN {
		return "NaN"
	}
	b, err := n.MarshalJSON()
	if err != nil {
		return fmt.Sprint(n)
	}
	return string(b)
}
