package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

func TestQuaternionSmallestThreeRoundTrip(t *testing.T) {
	cases := []vecmath.Quaternion{
		vecmath.IdentityQuaternion,
		{X: 0.7071068, Y: 0, Z: 0, W: 0.7071068},
		{X: 0.2, Y: 0.4, Z: 0.6, W: -0.6633},
		{X: -0.5, Y: -0.5, Z: -0.5, W: 0.5},
	}

	for _, q := range cases {
		buf := make([]byte, 7)
		EncodeQuaternionSmallestThree(q, buf)
		decoded := DecodeQuaternionSmallestThree(buf)

		// The codec negates q when its largest-magnitude component is
		// negative; q and -q are the same rotation.
		want := q
		if q.Dot(decoded) < 0 {
			want = q.Negate()
		}

		assert.InDelta(t, float64(want.X), float64(decoded.X), 1e-3)
		assert.InDelta(t, float64(want.Y), float64(decoded.Y), 1e-3)
		assert.InDelta(t, float64(want.Z), float64(decoded.Z), 1e-3)
		assert.InDelta(t, float64(want.W), float64(decoded.W), 1e-3)
	}
}
