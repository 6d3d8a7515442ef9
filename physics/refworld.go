package physics

import (
	"fmt"
	"math"

	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

// sleepLinearThreshold and sleepAngularThreshold bound the velocity
// below which a dynamic body is considered to have come to rest long
// enough to sleep.
const (
	sleepLinearThreshold  = 0.02
	sleepAngularThreshold = 0.02
	sleepTicksRequired     = 30
)

type body struct {
	desc  BodyDescriptor
	state BodyState

	sleepStreak int
}

// aabb returns an axis-aligned bounding box approximation of the
// body's collider at its current position. Orientation is ignored for
// broad-phase purposes — an acceptable simplification for the
// reference stand-in this package provides (the real engine is an
// external collaborator per the specification's scope).
func (b *body) aabb() (min, max vecmath.Vector3) {
	p := b.state.Position
	switch b.desc.Shape.Kind {
	case ShapeBox:
		he := b.desc.Shape.HalfExtents
		return p.Sub(he), p.Add(he)
	case ShapeSphere:
		r := vecmath.Vector3{X: b.desc.Shape.Radius, Y: b.desc.Shape.Radius, Z: b.desc.Shape.Radius}
		return p.Sub(r), p.Add(r)
	case ShapeCapsule:
		half := b.desc.Shape.HalfHeight + b.desc.Shape.Radius
		r := vecmath.Vector3{X: b.desc.Shape.Radius, Y: half, Z: b.desc.Shape.Radius}
		return p.Sub(r), p.Add(r)
	case ShapeTrimesh:
		if len(b.desc.Shape.Vertices) == 0 {
			return p, p
		}
		min, max = b.desc.Shape.Vertices[0], b.desc.Shape.Vertices[0]
		for _, v := range b.desc.Shape.Vertices[1:] {
			min = componentMin(min, v)
			max = componentMax(max, v)
		}
		return p.Add(min), p.Add(max)
	default:
		return p, p
	}
}

func componentMin(a, b vecmath.Vector3) vecmath.Vector3 {
	return vecmath.Vector3{X: minf(a.X, b.X), Y: minf(a.Y, b.Y), Z: minf(a.Z, b.Z)}
}

func componentMax(a, b vecmath.Vector3) vecmath.Vector3 {
	return vecmath.Vector3{X: maxf(a.X, b.X), Y: maxf(a.Y, b.Y), Z: maxf(a.Z, b.Z)}
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func aabbOverlap(aMin, aMax, bMin, bMax vecmath.Vector3) bool {
	return aMin.X <= bMax.X && aMax.X >= bMin.X &&
		aMin.Y <= bMax.Y && aMax.Y >= bMin.Y &&
		aMin.Z <= bMax.Z && aMax.Z >= bMin.Z
}

type contactKey struct {
	a, b string
}

// RefWorld is a minimal reference implementation of World: semi-
// implicit Euler integration under gravity, AABB broad-phase contact
// detection (orientation ignored), and impulse-based input
// application. It exists so the synchronization engine's room,
// wire-codec, and state-tracker tests can run end to end without a
// real third-party physics engine wired in — the engine itself is an
// out-of-scope external collaborator per the specification.
type RefWorld struct {
	bodies      map[string]*body
	constraints map[string]ConstraintDescriptor
	gravity     vecmath.Vector3

	activeContacts map[contactKey]bool
	pendingEvents  []CollisionEvent
}

// NewRefWorld creates an empty reference world with default Earth
// gravity.
func NewRefWorld() *RefWorld {
	return &RefWorld{
		bodies:         make(map[string]*body),
		constraints:    make(map[string]ConstraintDescriptor),
		gravity:        vecmath.Vector3{X: 0, Y: -9.81, Z: 0},
		activeContacts: make(map[contactKey]bool),
	}
}

func (w *RefWorld) AddBody(desc BodyDescriptor) error {
	if _, exists := w.bodies[desc.ID]; exists {
		return fmt.Errorf("body %q already exists", desc.ID)
	}
	orientation := desc.Orientation
	if orientation == (vecmath.Quaternion{}) {
		orientation = vecmath.IdentityQuaternion
	}
	w.bodies[desc.ID] = &body{
		desc: desc,
		state: BodyState{
			Position:    desc.Position,
			Orientation: orientation,
		},
	}
	return nil
}

func (w *RefWorld) RemoveBody(id string) error {
	if _, exists := w.bodies[id]; !exists {
		return fmt.Errorf("body %q does not exist", id)
	}
	delete(w.bodies, id)
	for key := range w.activeContacts {
		if key.a == id || key.b == id {
			delete(w.activeContacts, key)
		}
	}
	return nil
}

func (w *RefWorld) HasBody(id string) bool {
	_, exists := w.bodies[id]
	return exists
}

func (w *RefWorld) BodyIDs() []string {
	ids := make([]string, 0, len(w.bodies))
	for id := range w.bodies {
		ids = append(ids, id)
	}
	return ids
}

func (w *RefWorld) AddConstraint(desc ConstraintDescriptor) error {
	if _, exists := w.constraints[desc.ID]; exists {
		return fmt.Errorf("constraint %q already exists", desc.ID)
	}
	if _, ok := w.bodies[desc.BodyA]; !ok {
		return fmt.Errorf("constraint %q references unknown body %q", desc.ID, desc.BodyA)
	}
	if _, ok := w.bodies[desc.BodyB]; !ok {
		return fmt.Errorf("constraint %q references unknown body %q", desc.ID, desc.BodyB)
	}
	w.constraints[desc.ID] = desc
	return nil
}

func (w *RefWorld) RemoveConstraint(id string) error {
	if _, exists := w.constraints[id]; !exists {
		return fmt.Errorf("constraint %q does not exist", id)
	}
	delete(w.constraints, id)
	return nil
}

func (w *RefWorld) SetGravity(g vecmath.Vector3) {
	w.gravity = g
}

func (w *RefWorld) ApplyAction(action InputAction) error {
	b, ok := w.bodies[action.BodyID]
	if !ok {
		return fmt.Errorf("action targets unknown body %q", action.BodyID)
	}
	if b.desc.Motion == MotionStatic {
		return nil
	}

	mass := b.desc.Mass
	if mass <= 0 {
		mass = 1
	}

	switch action.Kind {
	case ActionApplyImpulse:
		b.state.LinearVelocity = b.state.LinearVelocity.Add(action.Vector.Scale(1 / mass))
		b.wake()
	case ActionApplyForce:
		// Treated as an impulse over one tick's worth of force; the
		// room applies this once per tick so force*dt is the caller's
		// responsibility if a sustained force is desired.
		b.state.LinearVelocity = b.state.LinearVelocity.Add(action.Vector.Scale(1 / mass))
		b.wake()
	case ActionSetVelocity:
		b.state.LinearVelocity = action.Vector
		b.wake()
	case ActionSetPose:
		if action.Position != nil {
			b.state.Position = *action.Position
		}
		if action.Orientation != nil {
			b.state.Orientation = *action.Orientation
		}
		b.wake()
	default:
		return fmt.Errorf("unrecognized action kind %d", action.Kind)
	}
	return nil
}

func (b *body) wake() {
	b.state.Sleeping = false
	b.sleepStreak = 0
}

// Step advances every dynamic body by dt using semi-implicit Euler
// integration, then runs AABB broad-phase contact detection and
// classifies collision/trigger transitions.
func (w *RefWorld) Step(dt float32) {
	for _, b := range w.bodies {
		if b.desc.Motion != MotionDynamic || b.state.Sleeping {
			continue
		}
		b.state.LinearVelocity = b.state.LinearVelocity.Add(w.gravity.Scale(dt))
		b.state.Position = b.state.Position.Add(b.state.LinearVelocity.Scale(dt))
		b.state.Orientation = integrateOrientation(b.state.Orientation, b.state.AngularVelocity, dt)

		if b.state.LinearVelocity.ApproxEqual(vecmath.Vector3{}, sleepLinearThreshold) &&
			b.state.AngularVelocity.ApproxEqual(vecmath.Vector3{}, sleepAngularThreshold) {
			b.sleepStreak++
			if b.sleepStreak >= sleepTicksRequired {
				b.state.Sleeping = true
			}
		} else {
			b.sleepStreak = 0
		}
	}

	w.detectContacts()
}

func integrateOrientation(q vecmath.Quaternion, angVel vecmath.Vector3, dt float32) vecmath.Quaternion {
	if angVel == (vecmath.Vector3{}) {
		return q
	}
	// First-order quaternion integration: dq/dt = 0.5 * omega * q.
	omega := vecmath.Quaternion{X: angVel.X, Y: angVel.Y, Z: angVel.Z, W: 0}
	dq := quatMul(omega, q)
	result := vecmath.Quaternion{
		X: q.X + 0.5*dq.X*dt,
		Y: q.Y + 0.5*dq.Y*dt,
		Z: q.Z + 0.5*dq.Z*dt,
		W: q.W + 0.5*dq.W*dt,
	}
	return result.Normalized()
}

func quatMul(a, b vecmath.Quaternion) vecmath.Quaternion {
	return vecmath.Quaternion{
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
	}
}

func (w *RefWorld) detectContacts() {
	ids := w.BodyIDs()
	seen := make(map[contactKey]bool, len(w.activeContacts))

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := w.bodies[ids[i]], w.bodies[ids[j]]
			aMin, aMax := a.aabb()
			bMin, bMax := b.aabb()
			if !aabbOverlap(aMin, aMax, bMin, bMax) {
				continue
			}

			key := contactKey{a: a.desc.ID, b: b.desc.ID}
			if a.desc.ID > b.desc.ID {
				key = contactKey{a: b.desc.ID, b: a.desc.ID}
			}
			seen[key] = true

			if !w.activeContacts[key] {
				w.emitStarted(a, b, key)
			}
		}
	}

	for key := range w.activeContacts {
		if !seen[key] {
			w.emitFinished(key)
		}
	}
	w.activeContacts = seen
}

func (w *RefWorld) emitStarted(a, b *body, key contactKey) {
	sensor := a.desc.IsTrigger || b.desc.IsTrigger
	evt := CollisionEvent{BodyA: key.a, BodyB: key.b}
	if sensor {
		evt.Type = TriggerEntered
	} else {
		evt.Type = CollisionStarted
		evt.Point = midpoint(a.state.Position, b.state.Position)
		evt.Normal = contactNormal(a.state.Position, b.state.Position)
		evt.Impulse = contactImpulse(a, b)
	}
	w.pendingEvents = append(w.pendingEvents, evt)
}

func (w *RefWorld) emitFinished(key contactKey) {
	a, aOK := w.bodies[key.a]
	b, bOK := w.bodies[key.b]
	sensor := (aOK && a.desc.IsTrigger) || (bOK && b.desc.IsTrigger)
	evt := CollisionEvent{BodyA: key.a, BodyB: key.b}
	if sensor {
		evt.Type = TriggerExited
	} else {
		evt.Type = CollisionFinished
	}
	w.pendingEvents = append(w.pendingEvents, evt)
}

func midpoint(a, b vecmath.Vector3) vecmath.Vector3 {
	return a.Add(b).Scale(0.5)
}

func contactNormal(a, b vecmath.Vector3) vecmath.Vector3 {
	d := a.Sub(b)
	length := float32(math.Sqrt(float64(d.X*d.X + d.Y*d.Y + d.Z*d.Z)))
	if length < 1e-6 {
		return vecmath.Vector3{X: 0, Y: 1, Z: 0}
	}
	return d.Scale(1 / length)
}

func contactImpulse(a, b *body) float32 {
	rel := a.state.LinearVelocity.Sub(b.state.LinearVelocity)
	return float32(math.Sqrt(float64(rel.X*rel.X + rel.Y*rel.Y + rel.Z*rel.Z)))
}

func (w *RefWorld) DrainCollisionEvents() []CollisionEvent {
	events := w.pendingEvents
	w.pendingEvents = nil
	return events
}

func (w *RefWorld) BodyState(id string) (BodyState, bool) {
	b, ok := w.bodies[id]
	if !ok {
		return BodyState{}, false
	}
	return b.state, true
}
