// Package syncclient implements the client-side half of room
// synchronization: clock calibration against the room's wall clock,
// per-body interpolation/extrapolation for smooth remote playback, a
// reconciler that blends local predictions with authoritative
// corrections, and the facade tying all three to a transport.
package syncclient

import "github.com/mikemainguy/rapierphysicsplugin/vecmath"

// BodyState is one body's full reconstructed state at a point in time.
type BodyState struct {
	Position        vecmath.Vector3
	Orientation     vecmath.Quaternion
	LinearVelocity  vecmath.Vector3
	AngularVelocity vecmath.Vector3
}

type timedSample struct {
	timestampMs float64
	state       BodyState
}
