// Package monitor implements the discovery run's resource watchdog:
// resident memory against a configured ceiling, wall-clock elapsed against
// a timeout, and a single cooperative cancel flag observed by every
// long-running caller. It never force-interrupts an in-flight operation —
// callers poll Cancelled() at candidate boundaries and before each SQL
// query, matching spec.md §5's cooperative-cancellation contract.
package monitor

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Trigger names which condition tripped the monitor, for the partial-
// success diagnostic spec.md §7 requires ("accepted rule count and the
// trigger: timeout or memory").
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerTimeout
	TriggerMemory
)

func (t Trigger) String() string {
	switch t {
	case TriggerTimeout:
		return "timeout"
	case TriggerMemory:
		return "memory"
	default:
		return "none"
	}
}

// Monitor polls resident memory and wall-clock elapsed time against
// configured ceilings, setting a single atomic cancel flag (never a
// channel or goroutine-based interrupt) the first time either is
// exceeded. Cancellation is idempotent and final.
type Monitor struct {
	memoryThreshold uint64
	timeout         time.Duration
	start           time.Time
	pid             int32

	cancelled atomic.Bool
	trigger   atomic.Int32
}

// New builds a Monitor for the calling process, ceilinged at
// memoryThresholdBytes resident memory and timeout wall-clock duration.
// A zero threshold or timeout disables that particular check.
func New(memoryThresholdBytes uint64, timeout time.Duration) *Monitor {
	return &Monitor{
		memoryThreshold: memoryThresholdBytes,
		timeout:         timeout,
		start:           time.Now(),
		pid:             int32(os.Getpid()),
	}
}

// Poll re-checks both ceilings and trips the cancel flag if either is
// exceeded. Cheap enough to call at every candidate boundary and before
// every SQL dispatch, per spec.md §4.6.
func (m *Monitor) Poll() {
	if m.cancelled.Load() {
		return
	}
	if m.timeout > 0 && time.Since(m.start) >= m.timeout {
		m.trip(TriggerTimeout)
		return
	}
	if m.memoryThreshold == 0 {
		return
	}
	rss, err := m.residentMemory()
	if err != nil {
		return
	}
	if rss >= m.memoryThreshold {
		m.trip(TriggerMemory)
	}
}

func (m *Monitor) residentMemory() (uint64, error) {
	proc, err := process.NewProcess(m.pid)
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}

func (m *Monitor) trip(t Trigger) {
	if m.cancelled.CompareAndSwap(false, true) {
		m.trigger.Store(int32(t))
	}
}

// Cancelled reports whether the monitor has tripped. Satisfies
// catalog.CancelChecker and enumerator.CancelChecker structurally, so
// neither package needs to import this one. Does not itself re-poll —
// callers that want a fresh reading call Poll first.
func (m *Monitor) Cancelled() bool { return m.cancelled.Load() }

// Trigger reports which condition tripped the monitor, or TriggerNone if
// it hasn't tripped.
func (m *Monitor) Trigger() Trigger { return Trigger(m.trigger.Load()) }

// Elapsed returns the wall-clock duration since the monitor was created.
func (m *Monitor) Elapsed() time.Duration { return time.Since(m.start) }
