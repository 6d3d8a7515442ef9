package physics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

func TestFreeFallGravity(t *testing.T) {
	w := NewRefWorld()
	require.NoError(t, w.AddBody(BodyDescriptor{
		ID:     "ball",
		Shape:  ShapeDescriptor{Kind: ShapeSphere, Radius: 0.5},
		Motion: MotionDynamic,
		Mass:   1,
	}))

	for i := 0; i < 60; i++ {
		w.Step(1.0 / 60.0)
	}

	state, ok := w.BodyState("ball")
	require.True(t, ok)
	require.Less(t, state.Position.Y, float32(0))
	require.Less(t, state.LinearVelocity.Y, float32(0))
}

func TestCollisionStartedEvent(t *testing.T) {
	w := NewRefWorld()
	w.SetGravity(vecmath.Vector3{})

	require.NoError(t, w.AddBody(BodyDescriptor{
		ID: "a", Motion: MotionStatic,
		Shape:    ShapeDescriptor{Kind: ShapeSphere, Radius: 1},
		Position: vecmath.Vector3{X: 0, Y: 0, Z: 0},
	}))
	require.NoError(t, w.AddBody(BodyDescriptor{
		ID: "b", Motion: MotionDynamic, Mass: 1,
		Shape:    ShapeDescriptor{Kind: ShapeSphere, Radius: 1},
		Position: vecmath.Vector3{X: 1.5, Y: 0, Z: 0},
	}))

	w.Step(1.0 / 60.0)

	events := w.DrainCollisionEvents()
	require.Len(t, events, 1)
	require.Equal(t, CollisionStarted, events[0].Type)
}

func TestApplyImpulseVisibleToSharedWorld(t *testing.T) {
	w := NewRefWorld()
	w.SetGravity(vecmath.Vector3{})
	require.NoError(t, w.AddBody(BodyDescriptor{
		ID: "body", Motion: MotionDynamic, Mass: 2,
		Shape: ShapeDescriptor{Kind: ShapeSphere, Radius: 0.5},
	}))

	require.NoError(t, w.ApplyAction(InputAction{
		BodyID: "body",
		Kind:   ActionApplyImpulse,
		Vector: vecmath.Vector3{X: 10, Y: 0, Z: 0},
	}))

	state, ok := w.BodyState("body")
	require.True(t, ok)
	require.InDelta(t, 5.0, float64(state.LinearVelocity.X), 1e-5)
}

func TestRemoveBodyUnknownErrors(t *testing.T) {
	w := NewRefWorld()
	require.Error(t, w.RemoveBody("missing"))
}

func TestAddConstraintRequiresKnownBodies(t *testing.T) {
	w := NewRefWorld()
	require.NoError(t, w.AddBody(BodyDescriptor{ID: "a", Shape: ShapeDescriptor{Kind: ShapeSphere, Radius: 1}}))

	err := w.AddConstraint(ConstraintDescriptor{ID: "c", Kind: ConstraintDistance, BodyA: "a", BodyB: "missing"})
	require.Error(t, err)
}
