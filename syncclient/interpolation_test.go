package syncclient

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

func TestInterpolationBufferReturnsOldestBeforeFirstSample(t *testing.T) {
	buf := NewInterpolationBuffer(3)
	buf.Push(1000, BodyState{Position: vecmath.Vector3{X: 1}})

	got := buf.Sample(500)
	require.Equal(t, float32(1), got.Position.X)
}

func TestInterpolationBufferMidpointBlendsPosition(t *testing.T) {
	buf := NewInterpolationBuffer(3)
	buf.Push(0, BodyState{Position: vecmath.Vector3{X: 0}, Orientation: vecmath.IdentityQuaternion})
	buf.Push(1000, BodyState{Position: vecmath.Vector3{X: 10}, Orientation: vecmath.IdentityQuaternion})

	got := buf.Sample(500)
	require.InDelta(t, 5.0, float64(got.Position.X), 1e-3)
}

func TestInterpolationBufferExtrapolatesPastNewest(t *testing.T) {
	buf := NewInterpolationBuffer(3)
	buf.Push(0, BodyState{Position: vecmath.Vector3{}, LinearVelocity: vecmath.Vector3{X: 2}})

	got := buf.Sample(100) // 0.1s past newest, decay = 1-2*0.1 = 0.8
	require.InDelta(t, 2*0.1*0.8, float64(got.Position.X), 1e-3)
}

func TestInterpolationBufferExtrapolationDecaysToZero(t *testing.T) {
	buf := NewInterpolationBuffer(3)
	buf.Push(0, BodyState{LinearVelocity: vecmath.Vector3{X: 5}})

	got := buf.Sample(600) // 0.6s past newest, decay clamps to 0
	require.InDelta(t, 0, float64(got.LinearVelocity.X), 1e-6)
}

func TestInterpolationBufferEvictsBeyondCapacity(t *testing.T) {
	buf := NewInterpolationBuffer(1) // ring size 2
	buf.Push(0, BodyState{Position: vecmath.Vector3{X: 0}})
	buf.Push(100, BodyState{Position: vecmath.Vector3{X: 1}})
	buf.Push(200, BodyState{Position: vecmath.Vector3{X: 2}})

	require.Len(t, buf.samples, 2)
	require.Equal(t, float64(100), buf.samples[0].timestampMs)
}
