package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

func TestRoomStateEncodeDecodeRoundTrip(t *testing.T) {
	frame := RoomStateFrame{
		Tick:        42,
		TimestampMs: 1234.5,
		IsDelta:     true,
		NumericIDs:  true,
		Bodies: []BodyEntry{
			{
				Index:           3,
				FieldMask:       FieldPosition | FieldLinVel,
				Position:        vecmath.Vector3{X: 1, Y: 2, Z: 3},
				LinearVelocity:  vecmath.Vector3{X: 0.5, Y: 0, Z: -0.5},
			},
			{
				Index:       7,
				FieldMask:   FieldAll,
				Position:    vecmath.Vector3{X: -1, Y: 0, Z: 1},
				Orientation: vecmath.IdentityQuaternion,
			},
		},
	}

	encoded := EncodeRoomState(frame)
	require.Equal(t, OpcodeRoomState, encoded[0])

	decoded, err := DecodeRoomState(encoded)
	require.NoError(t, err)
	require.Equal(t, frame.Tick, decoded.Tick)
	require.True(t, decoded.IsDelta)
	require.True(t, decoded.NumericIDs)
	require.Len(t, decoded.Bodies, 2)

	require.Equal(t, uint16(3), decoded.Bodies[0].Index)
	require.Equal(t, FieldPosition|FieldLinVel, decoded.Bodies[0].FieldMask)
	require.InDelta(t, 1.0, float64(decoded.Bodies[0].Position.X), 1e-5)
	require.InDelta(t, 0.5, float64(decoded.Bodies[0].LinearVelocity.X), 1e-5)

	require.Equal(t, uint16(7), decoded.Bodies[1].Index)
	require.InDelta(t, 1.0, float64(decoded.Bodies[1].Orientation.W), 1e-3)
}

func TestDecodeRoomStateTruncated(t *testing.T) {
	_, err := DecodeRoomState([]byte{OpcodeRoomState, 0x01})
	require.Error(t, err)
}

func TestDecodeRoomStateWrongOpcode(t *testing.T) {
	data := make([]byte, roomStateHeaderSize)
	data[0] = OpcodeMsgpack
	_, err := DecodeRoomState(data)
	require.Error(t, err)
}
