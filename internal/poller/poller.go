// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package poller waits for an asynchronous remote job to reach a terminal state.
//
// The poller calls a status function at a fixed interval, starting immediately, and
// reports every non-terminal status to a progress callback. It never retries a failed
// status call: a transport failure ends the poll. The number of remote calls is bounded
// by Options.MaxAttempts.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	serrors "sheetlink/cli/internal/errors"
)

// State is the coarse lifecycle of a remote job.
type State int

const (
	// Pending covers every queued or thinking phase before execution.
	Pending State = iota
	// Executing means the job is running its query.
	Executing
	// Completed is terminal success.
	Completed
	// Failed is terminal failure.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Executing:
		return "executing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further polling should happen after s.
func (s State) Terminal() bool { return s == Completed || s == Failed }

// Status is what a status call returns.
type Status interface {
	State() State
	// ErrorText is the remote failure message, if any.
	ErrorText() string
}

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 60
)

// ErrCanceled is returned when the poll was canceled or superseded. It is a silent
// stop: callers should not surface it as a failure.
var ErrCanceled = errors.New("poll canceled")

// Options tunes a poll.
type Options struct {
	// Interval between the end of one status call and the start of the next.
	Interval time.Duration
	// MaxAttempts bounds the number of status calls.
	MaxAttempts int
	// Live is consulted before every call and before every callback. When it
	// returns false the poll stops silently. Nil means always live.
	Live func() bool
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// Poll calls fetch until it yields a terminal status, the attempt budget runs out,
// fetch fails, or ctx is canceled.
//
// Completed returns the final status with a nil error. Failed returns the status
// together with a Remote error carrying the remote message. Budget exhaustion returns
// a Timeout error. A fetch failure returns a Transport error (or the Remote error
// fetch produced, for non-2xx answers). Cancellation returns ErrCanceled.
func Poll[S Status](ctx context.Context, fetch func(context.Context) (S, error), onProgress func(S), opts Options) (S, error) {
	opts = opts.withDefaults()
	var zero S
	live := func() bool {
		if ctx.Err() != nil {
			return false
		}
		return opts.Live == nil || opts.Live()
	}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if !live() {
			return zero, ErrCanceled
		}
		st, err := fetch(ctx)
		if !live() {
			return zero, ErrCanceled
		}
		if err != nil {
			return zero, classify(err)
		}

		switch st.State() {
		case Completed:
			return st, nil
		case Failed:
			msg := st.ErrorText()
			if msg == "" {
				msg = "An unknown error occurred"
			}
			return st, serrors.New(serrors.Remote, msg)
		}

		if onProgress != nil {
			onProgress(st)
		}
		if attempt == opts.MaxAttempts {
			break
		}
		if err := sleep(ctx, opts.Interval); err != nil {
			return zero, ErrCanceled
		}
	}
	return zero, serrors.New(serrors.Timeout, fmt.Sprintf("timed out after %d status checks", opts.MaxAttempts))
}

func classify(err error) error {
	switch serrors.KindOf(err) {
	case serrors.Remote, serrors.Transport:
		return err
	}
	return serrors.Wrap(serrors.Transport, "status check failed", err)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
