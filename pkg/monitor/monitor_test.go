// SPDX-License-Identifier: Apache-2.0
package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Rom-Forge/Forge/pkg/builder"
)

// scriptedSource replays a fixed sequence of poll responses. Past the end of
// the script it repeats the final entry, so a test can let the loop idle on a
// terminal or steady state.
type scriptedSource struct {
	mu    sync.Mutex
	steps []scriptStep
	calls int

	inStatus int
	overlap  bool
}

type scriptStep struct {
	status *builder.Status
	err    error
	logs   []string
	logErr error
}

func (s *scriptedSource) Status(ctx context.Context) (*builder.Status, error) {
	s.mu.Lock()
	s.inStatus++
	if s.inStatus > 1 {
		s.overlap = true
	}
	step := s.current()
	s.calls++
	s.mu.Unlock()

	// Stay "inside" the read long enough that an overlapping tick would be
	// caught by the counter above.
	time.Sleep(2 * time.Millisecond)

	s.mu.Lock()
	s.inStatus--
	s.mu.Unlock()

	if step.err != nil {
		return nil, step.err
	}
	return step.status, nil
}

func (s *scriptedSource) Logs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	step := s.steps[min(s.calls-1, len(s.steps)-1)]
	s.mu.Unlock()
	return step.logs, step.logErr
}

func (s *scriptedSource) current() scriptStep {
	return s.steps[min(s.calls, len(s.steps)-1)]
}

func waitDone(t *testing.T, m *Monitor, within time.Duration) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(within):
		t.Fatal("monitor did not stop in time")
	}
}

func TestMonitor_TerminalOnFullProgressEvenIfActive(t *testing.T) {
	src := &scriptedSource{steps: []scriptStep{
		{status: &builder.Status{Active: true, Stage: "Compiling", Progress: 60}, logs: []string{"a"}},
		{status: &builder.Status{Active: true, Stage: "Packaging", Progress: 100}, logs: []string{"a", "b"}},
	}}
	m := New(src, 5*time.Millisecond)
	m.Start(context.Background())
	waitDone(t, m, time.Second)

	snap := m.Snapshot()
	if !snap.Terminal {
		t.Fatal("expected terminal snapshot")
	}
	if snap.Outcome != OutcomeSucceeded {
		t.Errorf("expected OutcomeSucceeded, got %v", snap.Outcome)
	}
	if snap.Active {
		t.Error("terminal snapshot must not report the build as active")
	}
	if snap.Progress != 100 || snap.Stage != "Packaging" {
		t.Errorf("unexpected final snapshot: %+v", snap)
	}
}

func TestMonitor_StoppedBelowFullProgress(t *testing.T) {
	src := &scriptedSource{steps: []scriptStep{
		{status: &builder.Status{Active: true, Stage: "Syncing", Progress: 30}},
		{status: &builder.Status{Active: false, Stage: "Syncing", Progress: 30}},
	}}
	m := New(src, 5*time.Millisecond)
	m.Start(context.Background())
	waitDone(t, m, time.Second)

	snap := m.Snapshot()
	if snap.Outcome != OutcomeStopped {
		t.Errorf("expected OutcomeStopped, got %v", snap.Outcome)
	}
	if snap.Progress != 30 {
		t.Errorf("expected last reported progress, got %d", snap.Progress)
	}
}

func TestMonitor_TransientFailureKeepsLastValues(t *testing.T) {
	src := &scriptedSource{steps: []scriptStep{
		{status: &builder.Status{Active: true, Stage: "Compiling", Progress: 45}, logs: []string{"x"}},
		{err: errors.New("connection refused")},
		{status: &builder.Status{Active: true, Stage: "Compiling", Progress: 100}, logs: []string{"x", "y"}},
	}}
	m := New(src, 5*time.Millisecond)
	m.Start(context.Background())

	// The failed tick must not publish a zeroed snapshot in between.
	for snap := range m.Updates() {
		if snap.Stage == "" && snap.Progress == 0 {
			t.Error("failed tick published an empty snapshot")
		}
		if snap.Terminal {
			break
		}
	}
	waitDone(t, m, time.Second)
}

func TestMonitor_ProgressNeverRegresses(t *testing.T) {
	src := &scriptedSource{steps: []scriptStep{
		{status: &builder.Status{Active: true, Stage: "Compiling", Progress: 70}},
		{status: &builder.Status{Active: true, Stage: "Compiling", Progress: 55}},
		{status: &builder.Status{Active: false, Stage: "Compiling", Progress: 55}},
	}}
	m := New(src, 5*time.Millisecond)
	m.Start(context.Background())

	high := 0
	for snap := range m.Updates() {
		if snap.Progress < high {
			t.Errorf("progress regressed from %d to %d", high, snap.Progress)
		}
		high = snap.Progress
		if snap.Terminal {
			break
		}
	}
	if high != 70 {
		t.Errorf("expected displayed progress to hold at 70, got %d", high)
	}
	waitDone(t, m, time.Second)
}

func TestMonitor_LogsReplacedWholesale(t *testing.T) {
	src := &scriptedSource{steps: []scriptStep{
		{status: &builder.Status{Active: true, Progress: 10}, logs: []string{"old line 1", "old line 2"}},
		{status: &builder.Status{Active: true, Progress: 100}, logs: []string{"rotated line"}},
	}}
	m := New(src, 5*time.Millisecond)
	m.Start(context.Background())
	waitDone(t, m, time.Second)

	snap := m.Snapshot()
	if len(snap.Logs) != 1 || snap.Logs[0] != "rotated line" {
		t.Errorf("expected wholesale log replacement, got %v", snap.Logs)
	}
}

func TestMonitor_LogFailureKeepsPreviousLogs(t *testing.T) {
	src := &scriptedSource{steps: []scriptStep{
		{status: &builder.Status{Active: true, Progress: 20}, logs: []string{"kept"}},
		{status: &builder.Status{Active: true, Progress: 100}, logErr: errors.New("timeout")},
	}}
	m := New(src, 5*time.Millisecond)
	m.Start(context.Background())
	waitDone(t, m, time.Second)

	snap := m.Snapshot()
	if len(snap.Logs) != 1 || snap.Logs[0] != "kept" {
		t.Errorf("expected previous logs retained, got %v", snap.Logs)
	}
	if snap.Progress != 100 {
		t.Error("the status read of a log-failed tick must still count")
	}
}

func TestMonitor_StopEndsLoop(t *testing.T) {
	src := &scriptedSource{steps: []scriptStep{
		{status: &builder.Status{Active: true, Stage: "Compiling", Progress: 10}},
	}}
	m := New(src, 5*time.Millisecond)
	m.Start(context.Background())

	// Let a couple of ticks land, then stop mid-build.
	time.Sleep(20 * time.Millisecond)
	m.Stop()
	waitDone(t, m, time.Second)

	if m.Snapshot().Terminal {
		t.Error("an externally stopped monitor must not fabricate a terminal outcome")
	}
}

func TestMonitor_StopIsIdempotent(t *testing.T) {
	src := &scriptedSource{steps: []scriptStep{
		{status: &builder.Status{Active: true, Progress: 5}},
	}}
	m := New(src, 5*time.Millisecond)
	m.Start(context.Background())
	m.Stop()
	m.Stop()
	waitDone(t, m, time.Second)
	m.Stop()
}

func TestMonitor_TicksNeverOverlap(t *testing.T) {
	src := &scriptedSource{steps: []scriptStep{
		{status: &builder.Status{Active: true, Progress: 10}},
	}}
	m := New(src, time.Millisecond)
	m.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	m.Stop()
	waitDone(t, m, time.Second)

	src.mu.Lock()
	defer src.mu.Unlock()
	if src.overlap {
		t.Error("observed concurrent status reads; ticks must be serialized")
	}
}

func TestMonitor_UpdatesDropStaleNotBlock(t *testing.T) {
	src := &scriptedSource{steps: []scriptStep{
		{status: &builder.Status{Active: true, Progress: 10}},
		{status: &builder.Status{Active: true, Progress: 20}},
		{status: &builder.Status{Active: true, Progress: 30}},
		{status: &builder.Status{Active: false, Progress: 30}},
	}}
	m := New(src, time.Millisecond)
	m.Start(context.Background())
	// Nobody reads Updates until the loop is done; the loop must not wedge.
	waitDone(t, m, time.Second)

	select {
	case snap := <-m.Updates():
		if !snap.Terminal {
			t.Error("expected the buffered snapshot to be the latest (terminal) one")
		}
	default:
		t.Error("expected a buffered snapshot after the loop ended")
	}
}
