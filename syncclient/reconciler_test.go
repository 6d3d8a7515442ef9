package syncclient

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikemainguy/rapierphysicsplugin/physics"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

func TestReconcilerPartitionsLocalAndRemoteBodies(t *testing.T) {
	r := NewReconciler([]string{"avatar"})

	bodies := map[string]BodyState{
		"avatar": {Position: vecmath.Vector3{X: 1}},
		"crate":  {Position: vecmath.Vector3{X: 2}},
	}

	local, remote := r.AbsorbFrame(10, 1000, bodies)

	require.Contains(t, local, "avatar")
	require.NotContains(t, local, "crate")
	require.Contains(t, remote, "crate")
	require.NotContains(t, remote, "avatar")
}

func TestReconcilerDropsAcknowledgedPendingInputs(t *testing.T) {
	r := NewReconciler(nil)
	r.TrackInput(PendingInput{Tick: 5})
	r.TrackInput(PendingInput{Tick: 15})
	require.Equal(t, 2, r.PendingCount())

	r.AbsorbFrame(10, 0, map[string]BodyState{})
	require.Equal(t, 1, r.PendingCount())
}

func TestReconcilerBoundsInputHistory(t *testing.T) {
	r := NewReconciler(nil)
	for i := uint32(0); i < 500; i++ {
		r.TrackInput(PendingInput{Tick: i})
	}
	require.LessOrEqual(t, r.PendingCount(), 120)
}

func TestNeedsCorrectionThreshold(t *testing.T) {
	predicted := BodyState{Position: vecmath.Vector3{X: 0}}
	closeEnough := BodyState{Position: vecmath.Vector3{X: 0.05}}
	tooFar := BodyState{Position: vecmath.Vector3{X: 1}}

	require.False(t, NeedsCorrection(predicted, closeEnough))
	require.True(t, NeedsCorrection(predicted, tooFar))
}

func TestBlendBodyStateSnapsVelocityAndEasesPosition(t *testing.T) {
	current := BodyState{Position: vecmath.Vector3{X: 0}, LinearVelocity: vecmath.Vector3{X: 0}}
	target := BodyState{Position: vecmath.Vector3{X: 10}, LinearVelocity: vecmath.Vector3{X: 3}}

	blended := BlendBodyState(current, target)

	require.InDelta(t, 3.0, float64(blended.Position.X), 1e-3) // 0.3 lerp speed
	require.Equal(t, float32(3), blended.LinearVelocity.X)
}

func TestPendingInputCarriesActions(t *testing.T) {
	p := PendingInput{Tick: 1, Actions: []physics.InputAction{{BodyID: "a", Kind: physics.ActionApplyImpulse}}}
	require.Len(t, p.Actions, 1)
}
