// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend is the client side of the sheetlink relay. It sends SQL statements
// and Genie calls with the configured workspace host and access token and decodes the
// relay's answers into tabular results and Genie messages.
//
// Non-2xx answers become Remote errors carrying the relay's error text; failures to
// reach the relay at all become Transport errors.
package backend

import (
	"context"

	"sheetlink/cli/internal/genie"
	"sheetlink/cli/internal/tabular"
)

// API defines relay operations the CLI depends on.
// Implementations may call a real relay or provide mocks for tests.
type API interface {
	genie.API
	// QueryDatabricks runs sql on the configured warehouse and returns its rows.
	QueryDatabricks(ctx context.Context, sql string) (tabular.Result, error)
	// Health checks that the relay is reachable.
	Health(ctx context.Context) error
}

// Connection is the Databricks workspace every request is made against. It is passed
// explicitly rather than read from ambient state.
type Connection struct {
	Host        string
	Token       string
	WarehouseID string
}
