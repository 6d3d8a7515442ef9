package syncclient

import (
	"sync"
	"time"

	"github.com/mikemainguy/rapierphysicsplugin/config"
)

// ClockSync tracks rolling RTT and offset samples gathered from
// clock_sync round trips and derives a calibrated estimate of the
// room's wall-clock time and current tick.
type ClockSync struct {
	mu      sync.Mutex
	window  int
	rtts    []float64
	offsets []float64
}

// NewClockSync creates a clock sync tracker sized by the configured
// sample window.
func NewClockSync() *ClockSync {
	return &ClockSync{window: config.GetClockSyncSampleWindow()}
}

// Sample records one round trip: clientTs is the timestamp the client
// sent with its request, serverTs is the server's own wall clock at
// reply time, and now is the client's wall clock on receipt. All three
// are milliseconds.
func (c *ClockSync) Sample(clientTs, serverTs, now float64) {
	rtt := now - clientTs
	offset := serverTs - clientTs - rtt/2

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rtts = append(c.rtts, rtt)
	if len(c.rtts) > c.window {
		c.rtts = c.rtts[len(c.rtts)-c.window:]
	}
	c.offsets = append(c.offsets, offset)
	if len(c.offsets) > c.window {
		c.offsets = c.offsets[len(c.offsets)-c.window:]
	}
}

// Calibrated reports whether enough round trips have been observed to
// trust the offset estimate.
func (c *ClockSync) Calibrated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.offsets) >= 3
}

// RTT returns the mean round-trip time in milliseconds.
func (c *ClockSync) RTT() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mean(c.rtts)
}

// Offset returns the mean server-minus-client clock offset in
// milliseconds.
func (c *ClockSync) Offset() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mean(c.offsets)
}

// ServerTime estimates the room's current wall-clock time given the
// client's own wall-clock time now, both in milliseconds.
func (c *ClockSync) ServerTime(now float64) float64 {
	return now + c.Offset()
}

// ServerTick derives the room's current simulation tick from the
// estimated server time and the tick duration.
func (c *ClockSync) ServerTick(now float64, delta time.Duration) uint32 {
	deltaMs := float64(delta) / float64(time.Millisecond)
	if deltaMs <= 0 {
		return 0
	}
	t := c.ServerTime(now) / deltaMs
	if t < 0 {
		return 0
	}
	return uint32(t)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
