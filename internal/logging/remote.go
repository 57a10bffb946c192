// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// RemoteErrorType is the category of an error reported by Databricks or Genie.
type RemoteErrorType int

const (
	RemoteErrorUnknown RemoteErrorType = iota
	RemoteErrorAuth
	RemoteErrorNotFound
	RemoteErrorWarehouse
	RemoteErrorTimeout
	RemoteErrorUnavailable
	RemoteErrorQuery
)

// ParseRemoteError categorizes a remote error message
func ParseRemoteError(errMsg string) RemoteErrorType {
	lower := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "unauthenticated") ||
		strings.Contains(lower, "invalid access token") || strings.Contains(lower, "permission_denied") ||
		strings.Contains(lower, "forbidden"):
		return RemoteErrorAuth
	case strings.Contains(lower, "warehouse"):
		return RemoteErrorWarehouse
	case strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist") ||
		strings.Contains(lower, "resource_does_not_exist"):
		return RemoteErrorNotFound
	case strings.Contains(lower, "timed out") || strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline"):
		return RemoteErrorTimeout
	case strings.Contains(lower, "unavailable") || strings.Contains(lower, "temporarily") ||
		strings.Contains(lower, "bad gateway"):
		return RemoteErrorUnavailable
	case strings.Contains(lower, "syntax") || strings.Contains(lower, "parse_syntax_error") ||
		strings.Contains(lower, "unresolved_column") || strings.Contains(lower, "table_or_view_not_found"):
		return RemoteErrorQuery
	}
	return RemoteErrorUnknown
}

// FormatRemoteError formats an upstream error in a user-friendly way.
func FormatRemoteError(title, errMsg string) string {
	errType := ParseRemoteError(errMsg)

	var builder strings.Builder
	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(title))
	builder.WriteString("\n\n")

	switch errType {
	case RemoteErrorAuth:
		builder.WriteString("Databricks rejected the access token.\n")
		builder.WriteString("  • Check that the token has not expired or been revoked\n")
		builder.WriteString("  • Make sure it grants access to the warehouse or Genie space\n")
	case RemoteErrorWarehouse:
		builder.WriteString("The SQL warehouse could not run the statement.\n")
		builder.WriteString("  • Check the warehouse id\n")
		builder.WriteString("  • A stopped warehouse may need a minute to start\n")
	case RemoteErrorNotFound:
		builder.WriteString("Something the request refers to does not exist.\n")
		builder.WriteString("  • Check the host and the Genie space id\n")
	case RemoteErrorTimeout:
		builder.WriteString("The request took too long to finish.\n")
		builder.WriteString("  • Try a narrower question or query\n")
	case RemoteErrorUnavailable:
		builder.WriteString("Databricks is temporarily unavailable.\n")
		builder.WriteString("  • Please try again in a few moments\n")
	case RemoteErrorQuery:
		builder.WriteString("The SQL statement failed.\n")
		builder.WriteString("  • Review the query text and referenced tables\n")
	default:
		builder.WriteString("The request failed.\n")
	}

	if strings.TrimSpace(errMsg) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Details: " + Mask(errMsg)))
	}
	return builder.String()
}

// PresentRemoteError displays a formatted upstream error.
func PresentRemoteError(title, errMsg string) {
	fmt.Println()
	fmt.Println(FormatRemoteError(title, errMsg))
	fmt.Println()
}
