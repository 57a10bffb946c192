// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	serrors "sheetlink/cli/internal/errors"
)

type fakeStatus struct {
	state State
	msg   string
}

func (f fakeStatus) State() State      { return f.state }
func (f fakeStatus) ErrorText() string { return f.msg }

// script returns fetch results in order, repeating the last one.
func script(calls *int32, steps ...fakeStatus) func(context.Context) (fakeStatus, error) {
	return func(context.Context) (fakeStatus, error) {
		n := int(atomic.AddInt32(calls, 1))
		if n > len(steps) {
			return steps[len(steps)-1], nil
		}
		return steps[n-1], nil
	}
}

var fast = Options{Interval: time.Millisecond}

func TestPollCompletes(t *testing.T) {
	var calls int32
	var phases []State
	st, err := Poll(context.Background(),
		script(&calls, fakeStatus{state: Pending}, fakeStatus{state: Executing}, fakeStatus{state: Completed}),
		func(s fakeStatus) { phases = append(phases, s.State()) },
		fast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.State() != Completed {
		t.Errorf("state = %v, want completed", st.State())
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(phases) != 2 || phases[0] != Pending || phases[1] != Executing {
		t.Errorf("progress = %v, want [pending executing]", phases)
	}
}

func TestPollFirstAttemptIsImmediate(t *testing.T) {
	var calls int32
	start := time.Now()
	_, err := Poll(context.Background(), script(&calls, fakeStatus{state: Completed}), nil, Options{Interval: time.Hour})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("first attempt should not wait for the interval")
	}
}

func TestPollTimeoutIssuesNoExtraCall(t *testing.T) {
	var calls int32
	_, err := Poll(context.Background(), script(&calls, fakeStatus{state: Pending}), nil, Options{Interval: time.Millisecond, MaxAttempts: 60})
	if !serrors.IsKind(err, serrors.Timeout) {
		t.Fatalf("error = %v, want timeout", err)
	}
	if calls != 60 {
		t.Errorf("calls = %d, want exactly 60", calls)
	}
}

func TestPollRemoteErrorStopsImmediately(t *testing.T) {
	var calls int32
	var progressed bool
	_, err := Poll(context.Background(),
		script(&calls, fakeStatus{state: Failed, msg: "warehouse stopped"}, fakeStatus{state: Completed}),
		func(fakeStatus) { progressed = true },
		fast)
	if !serrors.IsKind(err, serrors.Remote) {
		t.Fatalf("error = %v, want remote", err)
	}
	if serrors.MessageOf(err) != "warehouse stopped" {
		t.Errorf("message = %q", serrors.MessageOf(err))
	}
	if calls != 1 || progressed {
		t.Errorf("calls = %d progressed = %v; want one call and no progress", calls, progressed)
	}
}

func TestPollRemoteErrorDefaultMessage(t *testing.T) {
	var calls int32
	_, err := Poll(context.Background(), script(&calls, fakeStatus{state: Failed}), nil, fast)
	if serrors.MessageOf(err) != "An unknown error occurred" {
		t.Errorf("message = %q", serrors.MessageOf(err))
	}
}

func TestPollTransportFailureIsFatal(t *testing.T) {
	var calls int32
	fetch := func(context.Context) (fakeStatus, error) {
		atomic.AddInt32(&calls, 1)
		return fakeStatus{}, errors.New("connection reset by peer")
	}
	_, err := Poll(context.Background(), fetch, nil, fast)
	if !serrors.IsKind(err, serrors.Transport) {
		t.Fatalf("error = %v, want transport", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry)", calls)
	}
}

func TestPollRemoteFetchErrorKeepsKind(t *testing.T) {
	fetch := func(context.Context) (fakeStatus, error) {
		return fakeStatus{}, serrors.New(serrors.Remote, "Genie API error: not found")
	}
	_, err := Poll(context.Background(), fetch, nil, fast)
	if !serrors.IsKind(err, serrors.Remote) {
		t.Fatalf("error = %v, want remote", err)
	}
}

func TestPollCancelIsSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	fetch := func(context.Context) (fakeStatus, error) {
		if atomic.AddInt32(&calls, 1) == 2 {
			cancel()
		}
		return fakeStatus{state: Pending}, nil
	}
	_, err := Poll(ctx, fetch, nil, fast)
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("error = %v, want ErrCanceled", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestSupervisorSupersededPollNeverResolves(t *testing.T) {
	var sup Supervisor

	release := make(chan struct{})
	inFlight := make(chan struct{})
	var staleProgress, staleDone atomic.Bool

	first := sup.Start(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fetch := func(context.Context) (fakeStatus, error) {
			close(inFlight)
			<-release
			return fakeStatus{state: Completed}, nil
		}
		Run(first, fetch,
			func(fakeStatus) { staleProgress.Store(true) },
			fast,
			func(fakeStatus, error) { staleDone.Store(true) })
	}()

	<-inFlight
	second := sup.Start(context.Background())
	close(release)
	wg.Wait()

	if staleProgress.Load() || staleDone.Load() {
		t.Fatal("superseded poll must not report progress or completion")
	}
	if first.Current() {
		t.Error("first ticket should no longer be current")
	}

	var calls int32
	var done bool
	Run(second, script(&calls, fakeStatus{state: Pending}, fakeStatus{state: Completed}), nil, fast,
		func(s fakeStatus, err error) { done = err == nil && s.State() == Completed })
	if !done {
		t.Error("current poll should resolve")
	}
}

func TestSupervisorCancel(t *testing.T) {
	var sup Supervisor
	tk := sup.Start(context.Background())
	sup.Cancel()
	if tk.Current() {
		t.Fatal("ticket should be stale after Cancel")
	}
	if tk.Context().Err() == nil {
		t.Error("ticket context should be canceled")
	}
}

func TestTicketDoOnlyWhileCurrent(t *testing.T) {
	var sup Supervisor
	old := sup.Start(context.Background())
	ran := 0
	if !old.Do(func() { ran++ }) {
		t.Fatal("Do should run for the live ticket")
	}
	fresh := sup.Start(context.Background())
	if old.Do(func() { ran++ }) {
		t.Error("Do ran for a superseded ticket")
	}
	if !fresh.Do(func() { ran++ }) {
		t.Error("Do should run for the fresh ticket")
	}
	if ran != 2 {
		t.Errorf("ran = %d, want 2", ran)
	}
}
