package syncclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClockSyncUncalibratedBeforeThreeSamples(t *testing.T) {
	c := NewClockSync()
	require.False(t, c.Calibrated())

	c.Sample(0, 100, 50)
	c.Sample(0, 100, 50)
	require.False(t, c.Calibrated())

	c.Sample(0, 100, 50)
	require.True(t, c.Calibrated())
}

func TestClockSyncOffsetAndRTTComputation(t *testing.T) {
	c := NewClockSync()

	// clientTs=0, serverTs=110, now=100 -> rtt=100, offset=110-0-50=60
	c.Sample(0, 110, 100)
	require.InDelta(t, 100.0, c.RTT(), 1e-9)
	require.InDelta(t, 60.0, c.Offset(), 1e-9)
}

func TestClockSyncWindowEvictsOldestSample(t *testing.T) {
	c := NewClockSync()
	c.window = 2

	c.Sample(0, 100, 100) // offset=50
	c.Sample(0, 200, 100) // offset=150
	c.Sample(0, 300, 100) // offset=250, should evict the first

	require.InDelta(t, 200.0, c.Offset(), 1e-9)
}
