package room

import (
	"time"

	"github.com/mikemainguy/rapierphysicsplugin/physics"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
	"github.com/mikemainguy/rapierphysicsplugin/wire"
)

// StateTracker maintains the per-body last-broadcast cache and the
// stable, never-reused id<->numeric-index mapping a room uses to
// build snapshots and deltas.
type StateTracker struct {
	lastBroadcast map[string]physics.BodyState
	idToIndex     map[string]uint16
	indexToID     map[uint16]string
	nextIndex     uint16

	epsilon float32
}

// NewStateTracker creates an empty tracker comparing fields against
// the given absolute-difference epsilon.
func NewStateTracker(epsilon float32) *StateTracker {
	return &StateTracker{
		lastBroadcast: make(map[string]physics.BodyState),
		idToIndex:     make(map[string]uint16),
		indexToID:     make(map[uint16]string),
		epsilon:       epsilon,
	}
}

// Reset clears all tracked state and the id<->index mapping. Used
// only on an explicit simulation reset — see room.go StartSimulation,
// which is the one place a fresh id space is warranted.
func (t *StateTracker) Reset() {
	t.lastBroadcast = make(map[string]physics.BodyState)
	t.idToIndex = make(map[string]uint16)
	t.indexToID = make(map[uint16]string)
	t.nextIndex = 0
}

// EnsureBodyIndex returns id's existing numeric index, allocating the
// next free one on first sight. Indices are never reused, even after
// RemoveTracking.
func (t *StateTracker) EnsureBodyIndex(id string) uint16 {
	if idx, ok := t.idToIndex[id]; ok {
		return idx
	}
	idx := t.nextIndex
	t.nextIndex++
	t.idToIndex[id] = idx
	t.indexToID[idx] = id
	return idx
}

// IndexOf returns id's numeric index, if it has been assigned one.
func (t *StateTracker) IndexOf(id string) (uint16, bool) {
	idx, ok := t.idToIndex[id]
	return idx, ok
}

// IDOf returns the id assigned to a numeric index, if any.
func (t *StateTracker) IDOf(idx uint16) (string, bool) {
	id, ok := t.indexToID[idx]
	return id, ok
}

// RemoveTracking deletes id's last-broadcast cache entry but keeps
// its index mapping, so a future client never reconciles a reused
// index against a different body.
func (t *StateTracker) RemoveTracking(id string) {
	delete(t.lastBroadcast, id)
}

// liveBody is the minimal view the tracker needs of a world body.
type liveBody struct {
	ID    string
	State physics.BodyState
}

// Snapshot returns every live body unconditionally, tagged with its
// numeric index, for use on join and reset frames.
func (t *StateTracker) Snapshot(world physics.World, tick uint32) wire.RoomStateFrame {
	bodies := liveBodies(world)
	entries := make([]wire.BodyEntry, 0, len(bodies))
	for _, b := range bodies {
		entries = append(entries, wire.BodyEntry{
			Index:           t.EnsureBodyIndex(b.ID),
			ID:              b.ID,
			FieldMask:       wire.FieldAll,
			Position:        b.State.Position,
			Orientation:     b.State.Orientation,
			LinearVelocity:  b.State.LinearVelocity,
			AngularVelocity: b.State.AngularVelocity,
		})
	}
	return wire.RoomStateFrame{
		Tick:        tick,
		TimestampMs: float64(time.Now().UnixMilli()),
		IsDelta:     false,
		NumericIDs:  true,
		Bodies:      entries,
	}
}

// Delta computes the field-masked change set since the last call,
// then refreshes the last-broadcast cache (including sleeping bodies,
// which are elided from the returned entries but still cached — see
// DESIGN.md on why a post-wake delta may look smaller than the true
// change since the body fell asleep).
func (t *StateTracker) Delta(world physics.World, tick uint32) wire.RoomStateFrame {
	bodies := liveBodies(world)
	liveIDs := make(map[string]bool, len(bodies))

	entries := make([]wire.BodyEntry, 0, len(bodies))
	for _, b := range bodies {
		liveIDs[b.ID] = true
		prev, known := t.lastBroadcast[b.ID]

		switch {
		case !known:
			entries = append(entries, t.fullEntry(b))
		case b.State.Sleeping:
			// skip: sleeping bodies are elided from deltas
		default:
			mask := fieldMask(prev, b.State, t.epsilon)
			if mask != 0 {
				entries = append(entries, t.maskedEntry(b, mask))
			}
		}

		t.lastBroadcast[b.ID] = b.State
	}

	for id := range t.lastBroadcast {
		if !liveIDs[id] {
			delete(t.lastBroadcast, id)
		}
	}

	return wire.RoomStateFrame{
		Tick:        tick,
		TimestampMs: float64(time.Now().UnixMilli()),
		IsDelta:     true,
		NumericIDs:  true,
		Bodies:      entries,
	}
}

func (t *StateTracker) fullEntry(b liveBody) wire.BodyEntry {
	return wire.BodyEntry{
		Index:           t.EnsureBodyIndex(b.ID),
		ID:              b.ID,
		FieldMask:       wire.FieldAll,
		Position:        b.State.Position,
		Orientation:     b.State.Orientation,
		LinearVelocity:  b.State.LinearVelocity,
		AngularVelocity: b.State.AngularVelocity,
	}
}

func (t *StateTracker) maskedEntry(b liveBody, mask byte) wire.BodyEntry {
	e := wire.BodyEntry{
		Index:     t.EnsureBodyIndex(b.ID),
		ID:        b.ID,
		FieldMask: mask,
	}
	if mask&wire.FieldPosition != 0 {
		e.Position = b.State.Position
	}
	if mask&wire.FieldRotation != 0 {
		e.Orientation = b.State.Orientation
	}
	if mask&wire.FieldLinVel != 0 {
		e.LinearVelocity = b.State.LinearVelocity
	}
	if mask&wire.FieldAngVel != 0 {
		e.AngularVelocity = b.State.AngularVelocity
	}
	return e
}

func fieldMask(prev, cur physics.BodyState, eps float32) byte {
	var mask byte
	if !prev.Position.ApproxEqual(cur.Position, eps) {
		mask |= wire.FieldPosition
	}
	if !quatApproxEqual(prev.Orientation, cur.Orientation, eps) {
		mask |= wire.FieldRotation
	}
	if !prev.LinearVelocity.ApproxEqual(cur.LinearVelocity, eps) {
		mask |= wire.FieldLinVel
	}
	if !prev.AngularVelocity.ApproxEqual(cur.AngularVelocity, eps) {
		mask |= wire.FieldAngVel
	}
	return mask
}

func quatApproxEqual(a, b vecmath.Quaternion, eps float32) bool {
	return absf32(a.X-b.X) <= eps && absf32(a.Y-b.Y) <= eps &&
		absf32(a.Z-b.Z) <= eps && absf32(a.W-b.W) <= eps
}

func absf32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func liveBodies(world physics.World) []liveBody {
	ids := world.BodyIDs()
	bodies := make([]liveBody, 0, len(ids))
	for _, id := range ids {
		state, ok := world.BodyState(id)
		if !ok {
			continue
		}
		bodies = append(bodies, liveBody{ID: id, State: state})
	}
	return bodies
}
