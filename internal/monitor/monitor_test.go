package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonitor_TripsOnTimeout(t *testing.T) {
	m := New(0, time.Millisecond)
	require.False(t, m.Cancelled())

	time.Sleep(5 * time.Millisecond)
	m.Poll()

	require.True(t, m.Cancelled())
	require.Equal(t, TriggerTimeout, m.Trigger())
}

func TestMonitor_NeverTripsWhenThresholdsAreZero(t *testing.T) {
	m := New(0, 0)
	m.Poll()
	require.False(t, m.Cancelled())
	require.Equal(t, TriggerNone, m.Trigger())
}

func TestMonitor_TripsOnMemoryCeiling(t *testing.T) {
	// Any running process holds at least a few hundred KB resident; a
	// 1-byte ceiling trips on the very first poll.
	m := New(1, 0)
	m.Poll()
	require.True(t, m.Cancelled())
	require.Equal(t, TriggerMemory, m.Trigger())
}

func TestMonitor_CancellationIsIdempotent(t *testing.T) {
	m := New(0, time.Nanosecond)
	time.Sleep(time.Millisecond)
	m.Poll()
	require.True(t, m.Cancelled())
	trigger := m.Trigger()

	m.Poll()
	require.Equal(t, trigger, m.Trigger(), "a second poll must not change an already-tripped trigger")
}

func TestMonitor_ElapsedTracksWallClock(t *testing.T) {
	m := New(0, 0)
	time.Sleep(2 * time.Millisecond)
	require.GreaterOrEqual(t, m.Elapsed(), 2*time.Millisecond)
}
