package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeMessageRoundTrip(t *testing.T) {
	msg := JoinRoom{Type: VerbJoinRoom, RoomID: "arena-1"}

	data, err := EncodeMessage(msg)
	require.NoError(t, err)
	require.Equal(t, OpcodeMsgpack, data[0])

	decoded, err := DecodeMessage(data)
	require.NoError(t, err)

	got, ok := decoded.(*JoinRoom)
	require.True(t, ok)
	require.Equal(t, "arena-1", got.RoomID)
}

func TestDecodeMessageJSONFallback(t *testing.T) {
	raw := []byte(`{"type":"leave_room"}`)

	decoded, err := DecodeMessage(raw)
	require.NoError(t, err)

	_, ok := decoded.(*LeaveRoom)
	require.True(t, ok)
}

func TestDecodeMessageUnknownVerb(t *testing.T) {
	raw := []byte(`{"type":"not_a_real_verb"}`)

	_, err := DecodeMessage(raw)
	require.Error(t, err)
}

func TestDecodeMessageEmpty(t *testing.T) {
	_, err := DecodeMessage(nil)
	require.Error(t, err)
}
