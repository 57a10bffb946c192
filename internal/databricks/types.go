// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package databricks calls the Databricks SQL Statement Execution API and the Genie API
// on behalf of the relay, and reshapes columnar statement results into row objects.
package databricks

import (
	"encoding/json"
	"net/http"
)

// Conn is the workspace and credential a request is made with. The token is passed
// through verbatim.
type Conn struct {
	Host  string
	Token string
}

// Column is one entry of a statement manifest's schema.
type Column struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name,omitempty"`
	Position int    `json:"position"`
}

// Schema lists result columns in order.
type Schema struct {
	ColumnCount int      `json:"column_count,omitempty"`
	Columns     []Column `json:"columns"`
}

// Manifest describes the shape of a statement result.
type Manifest struct {
	Format        string  `json:"format,omitempty"`
	Schema        *Schema `json:"schema"`
	TotalRowCount int64   `json:"total_row_count,omitempty"`
}

// ResultData holds positional row values.
type ResultData struct {
	RowCount  int64   `json:"row_count,omitempty"`
	DataArray [][]any `json:"data_array"`
}

// StatementStatus is the execution state reported with a statement.
type StatementStatus struct {
	State string          `json:"state"`
	Error *StatementError `json:"error,omitempty"`
}

// StatementError carries a failed statement's message.
type StatementError struct {
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
}

// StatementResponse is the body returned by the statement execution endpoint and
// embedded in Genie query results.
type StatementResponse struct {
	StatementID string           `json:"statement_id,omitempty"`
	Status      *StatementStatus `json:"status,omitempty"`
	Manifest    *Manifest        `json:"manifest,omitempty"`
	Result      *ResultData      `json:"result,omitempty"`
}

// QueryResult is the body of a Genie attachment query-result call.
type QueryResult struct {
	StatementResponse *StatementResponse `json:"statement_response,omitempty"`
}

// APIError is a non-2xx answer from Databricks.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Text() }

// Text is the remote message, or the HTTP status text when the body had none.
func (e *APIError) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

func apiError(status int, body []byte) *APIError {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)
	return &APIError{Status: status, Message: payload.Message}
}
