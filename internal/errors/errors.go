// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// Every failure that crosses a package boundary in sheetlink carries a machine-readable
// Kind so callers can decide how to present it (a bad cell address is the user's typo,
// a transport failure is a network problem, a remote failure carries Databricks' text).
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Malformed indicates unparseable user input such as a bad cell address.
	Malformed Kind = "malformed"
	// Timeout indicates the poll budget was exhausted before a terminal status.
	Timeout Kind = "timeout"
	// Remote indicates a terminal ERROR status or a non-2xx answer from a remote call.
	Remote Kind = "remote"
	// Transport indicates a network or connection failure.
	Transport Kind = "transport"
	// Config indicates missing or invalid configuration.
	Config Kind = "config"
	// Host indicates the spreadsheet host rejected an operation.
	Host Kind = "host"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

// Is matches another *E by kind so errors.Is(err, errors.New(Timeout, "")) works.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// MessageOf returns the human-friendly message of the first *E in err's chain.
// It falls back to err.Error() for foreign errors.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *E
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
