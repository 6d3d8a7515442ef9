package vecmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlerpUnitNorm(t *testing.T) {
	a := IdentityQuaternion
	b := Quaternion{X: 0, Y: 0.7071068, Z: 0, W: 0.7071068}

	for _, step := range []float32{0, 0.25, 0.5, 0.75, 1} {
		q := a.Slerp(b, step)
		require.InDelta(t, 1.0, float64(q.Norm()), 1e-4)
	}
}

func TestSlerpShortestArc(t *testing.T) {
	a := Quaternion{X: 0, Y: 0, Z: 0, W: 1}
	b := Quaternion{X: 0, Y: 0, Z: 0, W: -1}

	q := a.Slerp(b, 0.5)
	assert.InDelta(t, 1.0, float64(q.Norm()), 1e-4)
}

func TestHermitePositionEndpoints(t *testing.T) {
	p0 := Vector3{X: 0, Y: 0, Z: 0}
	p1 := Vector3{X: 10, Y: 0, Z: 0}
	v0 := Vector3{}
	v1 := Vector3{}

	start := HermitePosition(p0, p1, v0, v1, 0, 0.1)
	end := HermitePosition(p0, p1, v0, v1, 1, 0.1)

	assert.Equal(t, p0, start)
	assert.Equal(t, p1, end)
}

func TestHermitePositionMidpointWithoutVelocity(t *testing.T) {
	p0 := Vector3{X: 0, Y: 0, Z: 0}
	p1 := Vector3{X: 10, Y: 0, Z: 0}

	mid := HermitePosition(p0, p1, Vector3{}, Vector3{}, 0.5, 0.1)
	assert.InDelta(t, 5.0, float64(mid.X), 1e-3)
}

func TestVector3ApproxEqual(t *testing.T) {
	a := Vector3{X: 1, Y: 1, Z: 1}
	b := Vector3{X: 1.00001, Y: 1, Z: 1}

	assert.True(t, a.ApproxEqual(b, 1e-4))
	assert.False(t, a.ApproxEqual(b, 1e-8))
}
