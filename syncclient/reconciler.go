package syncclient

import (
	"sync"

	"github.com/mikemainguy/rapierphysicsplugin/config"
	"github.com/mikemainguy/rapierphysicsplugin/physics"
)

// PendingInput is one flushed input batch awaiting acknowledgement by
// the authoritative server tick it was sent against.
type PendingInput struct {
	Tick     uint32
	Sequence uint64
	Actions  []physics.InputAction
}

// Reconciler partitions incoming server state between bodies the
// client predicts locally (its own avatar, typically) and bodies it
// merely renders via interpolation, and tracks which locally-sent
// inputs the server has already observed.
type Reconciler struct {
	mu sync.Mutex

	local         map[string]bool
	pending       []PendingInput
	interpolators map[string]*InterpolationBuffer
}

// NewReconciler creates a reconciler treating localBodyIDs as
// client-predicted bodies; every other body id is rendered remotely.
func NewReconciler(localBodyIDs []string) *Reconciler {
	local := make(map[string]bool, len(localBodyIDs))
	for _, id := range localBodyIDs {
		local[id] = true
	}
	return &Reconciler{
		local:         local,
		interpolators: make(map[string]*InterpolationBuffer),
	}
}

// MarkLocal adds a body id to the locally-predicted set.
func (r *Reconciler) MarkLocal(bodyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.local[bodyID] = true
}

// TrackInput records a flushed input batch, bounding the retained
// history to the configured input buffer depth.
func (r *Reconciler) TrackInput(p PendingInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, p)
	if max := config.GetMaxInputBufferTicks(); max > 0 && len(r.pending) > max {
		r.pending = r.pending[len(r.pending)-max:]
	}
}

// PendingCount reports how many unacknowledged input batches remain.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// AbsorbFrame drops every pending input the server tick has already
// observed, then partitions bodies: local-set bodies are returned
// verbatim as localCorrections, every other body is fed into its
// interpolation buffer and sampled at the current render time into
// remoteStates.
func (r *Reconciler) AbsorbFrame(serverTick uint32, nowMs float64, bodies map[string]BodyState) (localCorrections, remoteStates map[string]BodyState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.pending[:0]
	for _, p := range r.pending {
		if p.Tick > serverTick {
			kept = append(kept, p)
		}
	}
	r.pending = kept

	localCorrections = make(map[string]BodyState)
	remoteStates = make(map[string]BodyState)
	renderTime := RenderTime(nowMs)

	for id, state := range bodies {
		if r.local[id] {
			localCorrections[id] = state
			continue
		}
		buf, ok := r.interpolators[id]
		if !ok {
			buf = NewInterpolationBuffer(config.GetInterpolationBufferSize())
			r.interpolators[id] = buf
		}
		buf.Push(nowMs, state)
		remoteStates[id] = buf.Sample(renderTime)
	}

	return localCorrections, remoteStates
}

// NeedsCorrection reports whether predicted has drifted from
// authoritative by more than the configured reconciliation threshold.
func NeedsCorrection(predicted, authoritative BodyState) bool {
	threshold := float32(config.GetReconciliationThreshold())
	return predicted.Position.DistanceSquared(authoritative.Position) > threshold*threshold
}

// BlendBodyState smoothly moves current toward target: position lerps
// and orientation slerps by the configured blend speeds, velocities
// snap straight to the target.
func BlendBodyState(current, target BodyState) BodyState {
	posSpeed := float32(config.GetPositionLerpSpeed())
	rotSpeed := float32(config.GetRotationSlerpSpeed())
	return BodyState{
		Position:        current.Position.Lerp(target.Position, posSpeed),
		Orientation:     current.Orientation.Slerp(target.Orientation, rotSpeed),
		LinearVelocity:  target.LinearVelocity,
		AngularVelocity: target.AngularVelocity,
	}
}
