// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// Verbose reports whether debug output was requested through SHEETLINK_VERBOSE.
func Verbose() bool {
	v := os.Getenv("SHEETLINK_VERBOSE")
	return v == "1" || strings.EqualFold(v, "true")
}

// ParseLevel maps a level name to a pterm log level. Unknown names mean info.
func ParseLevel(name string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "off", "disabled", "none":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelInfo
	}
}

// New builds the relay logger writing to w (stderr when nil). Verbose mode forces
// debug level.
func New(w io.Writer, level string, json bool) *pterm.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := ParseLevel(level)
	if Verbose() && lvl > pterm.LogLevelDebug {
		lvl = pterm.LogLevelDebug
	}
	formatter := pterm.LogFormatterColorful
	if json {
		formatter = pterm.LogFormatterJSON
	}
	return pterm.DefaultLogger.
		WithLevel(lvl).
		WithFormatter(formatter).
		WithWriter(w)
}
