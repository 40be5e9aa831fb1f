// SPDX-License-Identifier: Apache-2.0

// Package monitor supervises one in-flight build by polling the builder
// service on a fixed cadence. The poll loop is a single goroutine, so ticks
// never overlap: each tick performs a status read followed by a log read,
// and the terminal check always uses that same tick's status.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/Rom-Forge/Forge/pkg/builder"
)

// DefaultInterval is the poll cadence when none is configured.
const DefaultInterval = 2 * time.Second

// maxBackoffFactor caps the slowed cadence after repeated poll failures.
const maxBackoffFactor = 8

// failuresBeforeBackoff is how many consecutive failed ticks are tolerated
// at full cadence before the interval starts doubling.
const failuresBeforeBackoff = 3

// Outcome classifies a finished build. The service itself only reports
// (active, progress); the classification lives here.
type Outcome int

const (
	OutcomeNone      Outcome = iota // build still running
	OutcomeSucceeded                // progress reached 100
	OutcomeStopped                  // service went inactive below 100
)

// StatusSource is the slice of the builder service the monitor needs.
type StatusSource interface {
	Status(ctx context.Context) (*builder.Status, error)
	Logs(ctx context.Context) ([]string, error)
}

// Snapshot is the displayed state after a tick. Logs are the service's full
// snapshot, replaced wholesale each tick; Progress never regresses even if
// the service briefly reports a lower value.
type Snapshot struct {
	Active   bool
	Progress int
	Stage    string
	Logs     []string
	Terminal bool
	Outcome  Outcome
}

// Monitor polls a StatusSource until the build reaches a terminal state or
// the monitor is stopped. Safe for use from one owner; Snapshot and Updates
// may be read from other goroutines.
type Monitor struct {
	source   StatusSource
	interval time.Duration

	mu   sync.Mutex
	snap Snapshot

	updates chan Snapshot
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a monitor polling source every interval. A non-positive
// interval falls back to DefaultInterval.
func New(source StatusSource, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		source:   source,
		interval: interval,
		updates:  make(chan Snapshot, 1),
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop. It polls once immediately, then on the
// configured cadence. Calling Start more than once is a programming error.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.mu.Lock()
	m.snap = Snapshot{Active: true}
	m.mu.Unlock()

	go m.run(ctx)
}

// Stop tears down the poll loop. It is safe to call multiple times and
// after the loop has already ended.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Done is closed when the poll loop has fully exited.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Updates delivers snapshots as ticks complete. The channel holds the most
// recent snapshot only; a slow consumer sees the latest state, not a backlog.
func (m *Monitor) Updates() <-chan Snapshot {
	return m.updates
}

// Snapshot returns the most recent displayed state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	defer m.cancel()

	failures := 0
	interval := m.interval

	if m.tick(ctx) {
		return
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		terminal, ok := m.tickResult(ctx)
		if terminal {
			return
		}

		// Transient poll failures slow the cadence instead of killing the
		// loop; one good tick restores full speed.
		if ok {
			failures = 0
			interval = m.interval
		} else {
			failures++
			if failures >= failuresBeforeBackoff && interval < m.interval*maxBackoffFactor {
				interval *= 2
				log.Warnf("build status poll failing (%d consecutive), slowing to %s", failures, interval)
			}
		}

		timer.Reset(interval)
	}
}

// tick runs one poll cycle and reports whether the loop should end.
func (m *Monitor) tick(ctx context.Context) bool {
	terminal, _ := m.tickResult(ctx)
	return terminal
}

// tickResult performs the two sequential reads of one tick. Both reads are
// best effort: a failure leaves the previous displayed values unchanged.
func (m *Monitor) tickResult(ctx context.Context) (terminal, ok bool) {
	if ctx.Err() != nil {
		return true, false
	}

	status, err := m.source.Status(ctx)
	if err != nil {
		log.Debugf("status poll failed: %v", err)
		return false, false
	}

	logs, err := m.source.Logs(ctx)
	if err != nil {
		// Keep the previous log snapshot; the status read still counts.
		log.Debugf("log poll failed: %v", err)
		logs = nil
	}

	m.mu.Lock()
	if status.Progress > m.snap.Progress {
		m.snap.Progress = status.Progress
	}
	m.snap.Stage = status.Stage
	m.snap.Active = status.Active
	if logs != nil {
		m.snap.Logs = logs
	}

	// progress >= 100 is terminal on its own, even if the service still
	// reports the build as active.
	if m.snap.Progress >= 100 {
		m.snap.Terminal = true
		m.snap.Outcome = OutcomeSucceeded
	} else if !status.Active {
		m.snap.Terminal = true
		m.snap.Outcome = OutcomeStopped
	}
	if m.snap.Terminal {
		m.snap.Active = false
	}
	snap := m.snap
	m.mu.Unlock()

	m.publish(snap)
	return snap.Terminal, true
}

func (m *Monitor) publish(snap Snapshot) {
	for {
		select {
		case m.updates <- snap:
			return
		default:
			// Drop the stale snapshot so the latest always fits.
			select {
			case <-m.updates:
			default:
			}
		}
	}
}
