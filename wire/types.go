// Package wire implements the binary wire codec: the opcode-tagged
// ROOM_STATE binary frame (opcode 0x01) with field-mask partial
// encoding and smallest-three quaternion compression, and a
// self-describing msgpack encoding (opcode 0x02) for every other
// verb, with a raw-JSON decode fallback for older peers.
package wire

import (
	"fmt"

	"github.com/mikemainguy/rapierphysicsplugin/physics"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

// Opcodes prefixing every frame except the legacy raw-JSON fallback.
const (
	OpcodeRoomState byte = 0x01
	OpcodeMsgpack   byte = 0x02
)

// Field mask bits, as laid out in the ROOM_STATE per-body entry.
const (
	FieldPosition byte = 1 << iota
	FieldRotation
	FieldLinVel
	FieldAngVel
	FieldAll = FieldPosition | FieldRotation | FieldLinVel | FieldAngVel
)

// Vec3 is the wire representation of a Vector3.
type Vec3 struct {
	X float32 `msgpack:"x" json:"x"`
	Y float32 `msgpack:"y" json:"y"`
	Z float32 `msgpack:"z" json:"z"`
}

func vec3FromDomain(v vecmath.Vector3) Vec3  { return Vec3{v.X, v.Y, v.Z} }
func (v Vec3) toDomain() vecmath.Vector3 { return vecmath.Vector3{X: v.X, Y: v.Y, Z: v.Z} }

// Quat is the wire representation of a Quaternion.
type Quat struct {
	X float32 `msgpack:"x" json:"x"`
	Y float32 `msgpack:"y" json:"y"`
	Z float32 `msgpack:"z" json:"z"`
	W float32 `msgpack:"w" json:"w"`
}

func quatFromDomain(q vecmath.Quaternion) Quat { return Quat{q.X, q.Y, q.Z, q.W} }
func (q Quat) toDomain() vecmath.Quaternion {
	return vecmath.Quaternion{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}

// ShapeDescriptor is the tagged-union wire form of physics.ShapeDescriptor.
type ShapeDescriptor struct {
	Kind string `msgpack:"kind" json:"kind"` // box | sphere | capsule | trimesh

	HalfExtents *Vec3 `msgpack:"halfExtents,omitempty" json:"halfExtents,omitempty"`

	Radius     *float32 `msgpack:"radius,omitempty" json:"radius,omitempty"`
	HalfHeight *float32 `msgpack:"halfHeight,omitempty" json:"halfHeight,omitempty"`

	Vertices []Vec3  `msgpack:"vertices,omitempty" json:"vertices,omitempty"`
	Indices  []int32 `msgpack:"indices,omitempty" json:"indices,omitempty"`
}

func shapeKindToWire(k physics.ShapeKind) string {
	switch k {
	case physics.ShapeBox:
		return "box"
	case physics.ShapeSphere:
		return "sphere"
	case physics.ShapeCapsule:
		return "capsule"
	case physics.ShapeTrimesh:
		return "trimesh"
	default:
		return "box"
	}
}

func shapeKindFromWire(s string) (physics.ShapeKind, error) {
	switch s {
	case "box":
		return physics.ShapeBox, nil
	case "sphere":
		return physics.ShapeSphere, nil
	case "capsule":
		return physics.ShapeCapsule, nil
	case "trimesh":
		return physics.ShapeTrimesh, nil
	default:
		return 0, fmt.Errorf("unknown shape kind %q", s)
	}
}

func shapeFromDomain(s physics.ShapeDescriptor) ShapeDescriptor {
	w := ShapeDescriptor{Kind: shapeKindToWire(s.Kind)}
	switch s.Kind {
	case physics.ShapeBox:
		he := vec3FromDomain(s.HalfExtents)
		w.HalfExtents = &he
	case physics.ShapeSphere:
		r := s.Radius
		w.Radius = &r
	case physics.ShapeCapsule:
		r, h := s.Radius, s.HalfHeight
		w.Radius, w.HalfHeight = &r, &h
	case physics.ShapeTrimesh:
		w.Vertices = make([]Vec3, len(s.Vertices))
		for i, v := range s.Vertices {
			w.Vertices[i] = vec3FromDomain(v)
		}
		w.Indices = s.Indices
	}
	return w
}

func (s ShapeDescriptor) toDomain() (physics.ShapeDescriptor, error) {
	kind, err := shapeKindFromWire(s.Kind)
	if err != nil {
		return physics.ShapeDescriptor{}, err
	}
	out := physics.ShapeDescriptor{Kind: kind}
	if s.HalfExtents != nil {
		out.HalfExtents = s.HalfExtents.toDomain()
	}
	if s.Radius != nil {
		out.Radius = *s.Radius
	}
	if s.HalfHeight != nil {
		out.HalfHeight = *s.HalfHeight
	}
	if len(s.Vertices) > 0 {
		out.Vertices = make([]vecmath.Vector3, len(s.Vertices))
		for i, v := range s.Vertices {
			out.Vertices[i] = v.toDomain()
		}
	}
	out.Indices = s.Indices
	return out, nil
}

func motionToWire(m physics.MotionType) string {
	switch m {
	case physics.MotionStatic:
		return "static"
	case physics.MotionKinematicPosition:
		return "kinematic_position"
	default:
		return "dynamic"
	}
}

func motionFromWire(s string) physics.MotionType {
	switch s {
	case "static":
		return physics.MotionStatic
	case "kinematic_position":
		return physics.MotionKinematicPosition
	default:
		return physics.MotionDynamic
	}
}

// BodyDescriptor is the wire form of physics.BodyDescriptor.
type BodyDescriptor struct {
	ID     string          `msgpack:"id" json:"id"`
	Shape  ShapeDescriptor `msgpack:"shape" json:"shape"`
	Motion string          `msgpack:"motion" json:"motion"`

	Position    Vec3 `msgpack:"position" json:"position"`
	Orientation Quat `msgpack:"orientation" json:"orientation"`

	Mass         float32 `msgpack:"mass" json:"mass"`
	CenterOfMass *Vec3   `msgpack:"centerOfMass,omitempty" json:"centerOfMass,omitempty"`
	Restitution  float32 `msgpack:"restitution" json:"restitution"`
	Friction     float32 `msgpack:"friction" json:"friction"`
	IsTrigger    bool    `msgpack:"isTrigger" json:"isTrigger"`
}

// BodyDescriptorFromDomain converts a physics.BodyDescriptor to its
// wire form.
func BodyDescriptorFromDomain(b physics.BodyDescriptor) BodyDescriptor {
	w := BodyDescriptor{
		ID:          b.ID,
		Shape:       shapeFromDomain(b.Shape),
		Motion:      motionToWire(b.Motion),
		Position:    vec3FromDomain(b.Position),
		Orientation: quatFromDomain(b.Orientation),
		Mass:        b.Mass,
		Restitution: b.Restitution,
		Friction:    b.Friction,
		IsTrigger:   b.IsTrigger,
	}
	if b.CenterOfMass != nil {
		c := vec3FromDomain(*b.CenterOfMass)
		w.CenterOfMass = &c
	}
	return w
}

// ToDomain converts a wire BodyDescriptor to physics.BodyDescriptor.
func (b BodyDescriptor) ToDomain() (physics.BodyDescriptor, error) {
	shape, err := b.Shape.toDomain()
	if err != nil {
		return physics.BodyDescriptor{}, fmt.Errorf("body %q: %w", b.ID, err)
	}
	out := physics.BodyDescriptor{
		ID:          b.ID,
		Shape:       shape,
		Motion:      motionFromWire(b.Motion),
		Position:    b.Position.toDomain(),
		Orientation: b.Orientation.toDomain(),
		Mass:        b.Mass,
		Restitution: b.Restitution,
		Friction:    b.Friction,
		IsTrigger:   b.IsTrigger,
	}
	if b.CenterOfMass != nil {
		c := b.CenterOfMass.toDomain()
		out.CenterOfMass = &c
	}
	return out, nil
}

func constraintKindToWire(k physics.ConstraintKind) string {
	switch k {
	case physics.ConstraintBallAndSocket:
		return "ball_and_socket"
	case physics.ConstraintHinge:
		return "hinge"
	case physics.ConstraintDistance:
		return "distance"
	case physics.ConstraintPrismatic:
		return "prismatic"
	case physics.ConstraintSlider:
		return "slider"
	case physics.ConstraintLock:
		return "lock"
	case physics.ConstraintSpring:
		return "spring"
	case physics.ConstraintSixDOF:
		return "six_dof"
	default:
		return "ball_and_socket"
	}
}

func constraintKindFromWire(s string) (physics.ConstraintKind, error) {
	switch s {
	case "ball_and_socket":
		return physics.ConstraintBallAndSocket, nil
	case "hinge":
		return physics.ConstraintHinge, nil
	case "distance":
		return physics.ConstraintDistance, nil
	case "prismatic":
		return physics.ConstraintPrismatic, nil
	case "slider":
		return physics.ConstraintSlider, nil
	case "lock":
		return physics.ConstraintLock, nil
	case "spring":
		return physics.ConstraintSpring, nil
	case "six_dof":
		return physics.ConstraintSixDOF, nil
	default:
		return 0, fmt.Errorf("unknown constraint kind %q", s)
	}
}

// AxisLimit is the wire form of physics.AxisLimit.
type AxisLimit struct {
	Axis     int      `msgpack:"axis" json:"axis"`
	MinLimit *float32 `msgpack:"minLimit,omitempty" json:"minLimit,omitempty"`
	MaxLimit *float32 `msgpack:"maxLimit,omitempty" json:"maxLimit,omitempty"`
}

// ConstraintDescriptor is the wire form of physics.ConstraintDescriptor.
type ConstraintDescriptor struct {
	ID   string `msgpack:"id" json:"id"`
	Kind string `msgpack:"kind" json:"kind"`

	BodyA string `msgpack:"bodyA" json:"bodyA"`
	BodyB string `msgpack:"bodyB" json:"bodyB"`
	PivotA Vec3  `msgpack:"pivotA" json:"pivotA"`
	PivotB Vec3  `msgpack:"pivotB" json:"pivotB"`

	Axis     *Vec3 `msgpack:"axis,omitempty" json:"axis,omitempty"`
	PerpAxis *Vec3 `msgpack:"perpAxis,omitempty" json:"perpAxis,omitempty"`

	MaxDistance *float32 `msgpack:"maxDistance,omitempty" json:"maxDistance,omitempty"`
	Stiffness   *float32 `msgpack:"stiffness,omitempty" json:"stiffness,omitempty"`
	Damping     *float32 `msgpack:"damping,omitempty" json:"damping,omitempty"`

	Limits []AxisLimit `msgpack:"limits,omitempty" json:"limits,omitempty"`

	DisableCollision bool `msgpack:"disableCollision" json:"disableCollision"`
}

// ConstraintDescriptorFromDomain converts a physics.ConstraintDescriptor
// to its wire form.
func ConstraintDescriptorFromDomain(c physics.ConstraintDescriptor) ConstraintDescriptor {
	w := ConstraintDescriptor{
		ID:               c.ID,
		Kind:             constraintKindToWire(c.Kind),
		BodyA:            c.BodyA,
		BodyB:            c.BodyB,
		PivotA:           vec3FromDomain(c.PivotA),
		PivotB:           vec3FromDomain(c.PivotB),
		MaxDistance:      c.MaxDistance,
		Stiffness:        c.Stiffness,
		Damping:          c.Damping,
		DisableCollision: c.DisableCollision,
	}
	if c.Axis != nil {
		a := vec3FromDomain(*c.Axis)
		w.Axis = &a
	}
	if c.PerpAxis != nil {
		p := vec3FromDomain(*c.PerpAxis)
		w.PerpAxis = &p
	}
	for _, l := range c.Limits {
		w.Limits = append(w.Limits, AxisLimit{Axis: l.Axis, MinLimit: l.MinLimit, MaxLimit: l.MaxLimit})
	}
	return w
}

// ToDomain converts a wire ConstraintDescriptor to physics.ConstraintDescriptor.
func (c ConstraintDescriptor) ToDomain() (physics.ConstraintDescriptor, error) {
	kind, err := constraintKindFromWire(c.Kind)
	if err != nil {
		return physics.ConstraintDescriptor{}, fmt.Errorf("constraint %q: %w", c.ID, err)
	}
	out := physics.ConstraintDescriptor{
		ID:               c.ID,
		Kind:             kind,
		BodyA:            c.BodyA,
		BodyB:            c.BodyB,
		PivotA:           c.PivotA.toDomain(),
		PivotB:           c.PivotB.toDomain(),
		MaxDistance:      c.MaxDistance,
		Stiffness:        c.Stiffness,
		Damping:          c.Damping,
		DisableCollision: c.DisableCollision,
	}
	if c.Axis != nil {
		a := c.Axis.toDomain()
		out.Axis = &a
	}
	if c.PerpAxis != nil {
		p := c.PerpAxis.toDomain()
		out.PerpAxis = &p
	}
	for _, l := range c.Limits {
		out.Limits = append(out.Limits, physics.AxisLimit{Axis: l.Axis, MinLimit: l.MinLimit, MaxLimit: l.MaxLimit})
	}
	return out, nil
}

func actionKindToWire(k physics.ActionKind) string {
	switch k {
	case physics.ActionApplyForce:
		return "apply_force"
	case physics.ActionSetVelocity:
		return "set_velocity"
	case physics.ActionSetPose:
		return "set_pose"
	default:
		return "apply_impulse"
	}
}

func actionKindFromWire(s string) (physics.ActionKind, error) {
	switch s {
	case "apply_impulse":
		return physics.ActionApplyImpulse, nil
	case "apply_force":
		return physics.ActionApplyForce, nil
	case "set_velocity":
		return physics.ActionSetVelocity, nil
	case "set_pose":
		return physics.ActionSetPose, nil
	default:
		return 0, fmt.Errorf("unknown action kind %q", s)
	}
}

// InputAction is the wire form of physics.InputAction.
type InputAction struct {
	BodyID string `msgpack:"bodyId" json:"bodyId"`
	Kind   string `msgpack:"kind" json:"kind"`

	Vector Vec3 `msgpack:"vector" json:"vector"`

	Position    *Vec3 `msgpack:"position,omitempty" json:"position,omitempty"`
	Orientation *Quat `msgpack:"orientation,omitempty" json:"orientation,omitempty"`
}

// InputActionFromDomain converts a physics.InputAction to its wire form.
func InputActionFromDomain(a physics.InputAction) InputAction {
	w := InputAction{
		BodyID: a.BodyID,
		Kind:   actionKindToWire(a.Kind),
		Vector: vec3FromDomain(a.Vector),
	}
	if a.Position != nil {
		p := vec3FromDomain(*a.Position)
		w.Position = &p
	}
	if a.Orientation != nil {
		q := quatFromDomain(*a.Orientation)
		w.Orientation = &q
	}
	return w
}

// ToDomain converts a wire InputAction to physics.InputAction.
func (a InputAction) ToDomain() (physics.InputAction, error) {
	kind, err := actionKindFromWire(a.Kind)
	if err != nil {
		return physics.InputAction{}, err
	}
	out := physics.InputAction{BodyID: a.BodyID, Kind: kind, Vector: a.Vector.toDomain()}
	if a.Position != nil {
		p := a.Position.toDomain()
		out.Position = &p
	}
	if a.Orientation != nil {
		q := a.Orientation.toDomain()
		out.Orientation = &q
	}
	return out, nil
}

func eventTypeToWire(t physics.EventType) string {
	switch t {
	case physics.CollisionFinished:
		return "COLLISION_FINISHED"
	case physics.TriggerEntered:
		return "TRIGGER_ENTERED"
	case physics.TriggerExited:
		return "TRIGGER_EXITED"
	default:
		return "COLLISION_STARTED"
	}
}

// CollisionEvent is the wire form of physics.CollisionEvent.
type CollisionEvent struct {
	BodyA   string  `msgpack:"bodyA" json:"bodyA"`
	BodyB   string  `msgpack:"bodyB" json:"bodyB"`
	Type    string  `msgpack:"type" json:"type"`
	Point   Vec3    `msgpack:"point" json:"point"`
	Normal  Vec3    `msgpack:"normal" json:"normal"`
	Impulse float32 `msgpack:"impulse" json:"impulse"`
}

// CollisionEventFromDomain converts a physics.CollisionEvent to its
// wire form.
func CollisionEventFromDomain(e physics.CollisionEvent) CollisionEvent {
	return CollisionEvent{
		BodyA:   e.BodyA,
		BodyB:   e.BodyB,
		Type:    eventTypeToWire(e.Type),
		Point:   vec3FromDomain(e.Point),
		Normal:  vec3FromDomain(e.Normal),
		Impulse: e.Impulse,
	}
}
