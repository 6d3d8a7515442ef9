package syncclient

import (
	"github.com/mikemainguy/rapierphysicsplugin/config"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

// RenderDelayMs returns the default render delay: three broadcast
// periods, absorbing roughly that much jitter before a body is drawn.
func RenderDelayMs() float64 {
	return 3 * (1000.0 / config.GetBroadcastRateHz())
}

// RenderTime returns the render timestamp for wall-clock time nowMs.
func RenderTime(nowMs float64) float64 {
	return nowMs - RenderDelayMs()
}

// InterpolationBuffer holds a bounded ring of timestamped states for
// one remote body and reconstructs a smoothed state at an arbitrary
// render time between, or just past, its samples.
type InterpolationBuffer struct {
	capacity int
	samples  []timedSample
}

// NewInterpolationBuffer creates a ring sized N+1, where N is the
// configured interpolation buffer size.
func NewInterpolationBuffer(n int) *InterpolationBuffer {
	if n <= 0 {
		n = 3
	}
	return &InterpolationBuffer{capacity: n + 1}
}

// Push records a new timestamped state, evicting the oldest sample
// once the ring is full.
func (b *InterpolationBuffer) Push(timestampMs float64, state BodyState) {
	b.samples = append(b.samples, timedSample{timestampMs, state})
	if len(b.samples) > b.capacity {
		b.samples = b.samples[len(b.samples)-b.capacity:]
	}
}

// Sample reconstructs the state at renderTimeMs: Hermite position and
// shortest-arc slerp orientation between the two bracketing entries,
// velocity-decay extrapolation past the newest entry, or the oldest
// entry verbatim if renderTimeMs precedes it.
func (b *InterpolationBuffer) Sample(renderTimeMs float64) BodyState {
	if len(b.samples) == 0 {
		return BodyState{}
	}

	oldest := b.samples[0]
	if renderTimeMs <= oldest.timestampMs {
		return oldest.state
	}

	newest := b.samples[len(b.samples)-1]
	if renderTimeMs >= newest.timestampMs {
		dt := float32((renderTimeMs - newest.timestampMs) / 1000.0)
		return extrapolate(newest.state, dt)
	}

	for i := 1; i < len(b.samples); i++ {
		older := b.samples[i-1]
		newer := b.samples[i]
		if renderTimeMs < older.timestampMs || renderTimeMs > newer.timestampMs {
			continue
		}
		span := newer.timestampMs - older.timestampMs
		var t float32
		if span > 0 {
			t = float32((renderTimeMs - older.timestampMs) / span)
		}
		return blendSamples(older.state, newer.state, t, float32(span/1000.0))
	}

	return newest.state
}

func blendSamples(older, newer BodyState, t, dtSeconds float32) BodyState {
	return BodyState{
		Position:        vecmath.HermitePosition(older.Position, newer.Position, older.LinearVelocity, newer.LinearVelocity, t, dtSeconds),
		Orientation:     older.Orientation.Slerp(newer.Orientation, t),
		LinearVelocity:  older.LinearVelocity.Lerp(newer.LinearVelocity, t),
		AngularVelocity: older.AngularVelocity.Lerp(newer.AngularVelocity, t),
	}
}

func extrapolate(from BodyState, dtSeconds float32) BodyState {
	decay := 1 - 2*dtSeconds
	if decay < 0 {
		decay = 0
	}
	return BodyState{
		Position:        from.Position.Add(from.LinearVelocity.Scale(dtSeconds * decay)),
		Orientation:     from.Orientation,
		LinearVelocity:  from.LinearVelocity.Scale(decay),
		AngularVelocity: from.AngularVelocity.Scale(decay),
	}
}
