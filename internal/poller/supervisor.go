package poller

import (
	"context"
	"sync"
)

// Supervisor keeps at most one poll live. Starting a new poll cancels the previous one
// and bumps a generation counter, so a superseded poll whose status call is still in
// flight can never report progress or resolve afterwards.
type Supervisor struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Ticket identifies one generation handed out by a Supervisor.
type Ticket struct {
	sup *Supervisor
	gen uint64
	ctx context.Context
}

// Start cancels any live poll and returns a ticket for a new one.
func (s *Supervisor) Start(parent context.Context) *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return &Ticket{sup: s, gen: s.gen, ctx: ctx}
}

// Cancel stops the live poll, if any, without starting another.
func (s *Supervisor) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// Generation returns the current generation number.
func (s *Supervisor) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Context is canceled when the ticket is superseded or released.
func (t *Ticket) Context() context.Context { return t.ctx }

// Current reports whether t is still the live generation.
func (t *Ticket) Current() bool {
	if t.ctx.Err() != nil {
		return false
	}
	return t.sup.Generation() == t.gen
}

// Do runs fn only while t is current. No new generation can start while fn runs.
func (t *Ticket) Do(fn func()) bool {
	t.sup.mu.Lock()
	defer t.sup.mu.Unlock()
	if t.ctx.Err() != nil || t.sup.gen != t.gen {
		return false
	}
	fn()
	return true
}

// Release cancels the ticket's context once the poll is done with it.
func (t *Ticket) Release() {
	t.sup.mu.Lock()
	defer t.sup.mu.Unlock()
	if t.sup.gen == t.gen && t.sup.cancel != nil {
		t.sup.cancel()
		t.sup.cancel = nil
	}
}

// Run polls under ticket t. onProgress and onDone are only invoked while t is
// current; a superseded poll ends without calling onDone.
func Run[S Status](t *Ticket, fetch func(context.Context) (S, error), onProgress func(S), opts Options, onDone func(S, error)) {
	opts.Live = t.Current
	var guarded func(S)
	if onProgress != nil {
		guarded = func(s S) {
			if t.Current() {
				onProgress(s)
			}
		}
	}
	st, err := Poll(t.ctx, fetch, guarded, opts)
	if err == ErrCanceled || !t.Current() {
		return
	}
	if onDone != nil {
		onDone(st, err)
	}
}
