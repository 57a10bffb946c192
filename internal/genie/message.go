// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package genie models Databricks Genie conversations: the message payload returned by
// the status endpoint, the session that tracks which conversation and message are live,
// and the orchestrator that asks a question, waits for the answer and interprets it.
package genie

import (
	"encoding/json"
	"strings"

	"sheetlink/cli/internal/poller"
)

// Status is the coarse state of a Genie message.
type Status int

const (
	StatusPending Status = iota
	StatusExecuting
	StatusCompleted
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusExecuting:
		return "EXECUTING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusError:
		return "ERROR"
	}
	return "PENDING"
}

// ParseStatus maps a raw Genie status string onto Status. Unknown values are treated
// as still pending so the poll keeps going until its budget runs out.
func ParseStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "COMPLETED":
		return StatusCompleted
	case "EXECUTING_QUERY":
		return StatusExecuting
	case "ERROR", "FAILED", "CANCELLED", "QUERY_RESULT_EXPIRED":
		return StatusError
	}
	return StatusPending
}

// ErrorText accepts either a bare string or an object such as
// {"error": "...", "type": "..."}.
type ErrorText string

func (e *ErrorText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*e = ErrorText(s)
		return nil
	}
	var obj struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		// null and other shapes carry no usable text
		*e = ""
		return nil
	}
	if obj.Error != "" {
		*e = ErrorText(obj.Error)
	} else {
		*e = ErrorText(obj.Message)
	}
	return nil
}

// TextPart is an explanatory note attached to a message.
type TextPart struct {
	Content string `json:"content"`
}

// QueryPart is generated SQL attached to a message.
type QueryPart struct {
	SQL         string `json:"query"`
	Description string `json:"description,omitempty"`
}

// Attachment is one unit of a completed message's output.
type Attachment struct {
	ID    string     `json:"attachment_id,omitempty"`
	Text  *TextPart  `json:"text,omitempty"`
	Query *QueryPart `json:"query,omitempty"`
}

// HasQuery reports whether the attachment carries SQL text.
func (a Attachment) HasQuery() bool { return a.Query != nil && a.Query.SQL != "" }

// Message is the payload returned when fetching a Genie message.
type Message struct {
	ID             string       `json:"id,omitempty"`
	ConversationID string       `json:"conversation_id,omitempty"`
	RawStatus      string       `json:"status"`
	Content        string       `json:"content,omitempty"`
	Error          ErrorText    `json:"error,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
}

// Status parses RawStatus.
func (m Message) Status() Status { return ParseStatus(m.RawStatus) }

// State implements poller.Status.
func (m Message) State() poller.State {
	switch m.Status() {
	case StatusCompleted:
		return poller.Completed
	case StatusError:
		return poller.Failed
	case StatusExecuting:
		return poller.Executing
	}
	return poller.Pending
}

// ErrorText implements poller.Status.
func (m Message) ErrorText() string { return string(m.Error) }

// Phase is the progress line shown while the message is still running.
func (m Message) Phase() string {
	if m.Status() == StatusExecuting {
		return "Executing query..."
	}
	return "Genie is thinking..."
}
