package wire

import (
	"math"

	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

// smallestThreeScale is 32767 / (1/sqrt(2)): the non-largest
// components of a unit quaternion lie within +/-1/sqrt(2), so this
// scale maps that range onto the full int16 range.
const smallestThreeScale = 32767.0 / 0.70710678118

// EncodeQuaternionSmallestThree writes the 7-byte smallest-three
// compressed form of q into dst (which must have length >= 7) and
// returns the number of bytes written.
func EncodeQuaternionSmallestThree(q vecmath.Quaternion, dst []byte) int {
	components := [4]float32{q.X, q.Y, q.Z, q.W}

	largest := 0
	largestAbs := absf32(components[0])
	for i := 1; i < 4; i++ {
		if a := absf32(components[i]); a > largestAbs {
			largest = i
			largestAbs = a
		}
	}

	if components[largest] < 0 {
		for i := range components {
			components[i] = -components[i]
		}
	}

	dst[0] = byte(largest)
	out := 1
	for i := 0; i < 4; i++ {
		if i == largest {
			continue
		}
		scaled := int16(clampInt(int32(components[i]*smallestThreeScale), -32767, 32767))
		dst[out] = byte(uint16(scaled))
		dst[out+1] = byte(uint16(scaled) >> 8)
		out += 2
	}
	return out
}

// DecodeQuaternionSmallestThree reads the 7-byte smallest-three form
// from src (which must have length >= 7) and returns the reconstructed
// quaternion.
func DecodeQuaternionSmallestThree(src []byte) vecmath.Quaternion {
	largest := int(src[0])

	var others [3]float32
	off := 1
	for i := 0; i < 3; i++ {
		v := int16(uint16(src[off]) | uint16(src[off+1])<<8)
		others[i] = float32(v) / smallestThreeScale
		off += 2
	}

	sumSquares := others[0]*others[0] + others[1]*others[1] + others[2]*others[2]
	remainder := 1 - sumSquares
	if remainder < 0 {
		remainder = 0
	}
	largestValue := float32(math.Sqrt(float64(remainder)))

	components := [4]float32{}
	oi := 0
	for i := 0; i < 4; i++ {
		if i == largest {
			components[i] = largestValue
		} else {
			components[i] = others[oi]
			oi++
		}
	}

	return vecmath.Quaternion{X: components[0], Y: components[1], Z: components[2], W: components[3]}
}

func absf32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func clampInt(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
