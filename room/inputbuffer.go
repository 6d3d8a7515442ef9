package room

import "github.com/mikemainguy/rapierphysicsplugin/physics"

// InputBatch is one client_input message's list of actions, all
// targeted at the same tick.
type InputBatch []physics.InputAction

// InputBuffer maps tick -> ordered list of input batches targeted at
// that tick, for one client. The current policy (§9 of the
// specification this implements) maps every arriving input to the
// room's current tick at receipt time rather than honoring a
// client-supplied tick; see Room.BufferInput in room.go.
type InputBuffer struct {
	byTick  map[uint32][]InputBatch
	maxTicks uint32
}

// NewInputBuffer creates an input buffer that prunes entries older
// than maxTicks relative to the most recently added tick.
func NewInputBuffer(maxTicks int) *InputBuffer {
	if maxTicks <= 0 {
		maxTicks = 120
	}
	return &InputBuffer{
		byTick:   make(map[uint32][]InputBatch),
		maxTicks: uint32(maxTicks),
	}
}

// Add appends batch to the list at tick t and prunes entries older
// than t - maxTicks.
func (b *InputBuffer) Add(t uint32, batch InputBatch) {
	b.byTick[t] = append(b.byTick[t], batch)
	b.prune(t)
}

func (b *InputBuffer) prune(currentTick uint32) {
	if currentTick < b.maxTicks {
		return
	}
	cutoff := currentTick - b.maxTicks
	for tick := range b.byTick {
		if tick < cutoff {
			delete(b.byTick, tick)
		}
	}
}

// Take removes and returns the batch list at tick t (nil if absent).
func (b *InputBuffer) Take(t uint32) []InputBatch {
	batches, ok := b.byTick[t]
	if !ok {
		return nil
	}
	delete(b.byTick, t)
	return batches
}

// Clear discards all buffered input.
func (b *InputBuffer) Clear() {
	b.byTick = make(map[uint32][]InputBatch)
}
