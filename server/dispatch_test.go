package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikemainguy/rapierphysicsplugin/wire"
)

func newTestClient(m *RoomManager) *Client {
	return &Client{id: "client-1", manager: m, send: make(chan []byte, 16)}
}

func TestCreateAndJoinRoomFlow(t *testing.T) {
	m := NewRoomManager()
	t.Cleanup(m.Shutdown)

	c := newTestClient(m)

	createMsg, err := wire.EncodeMessage(wire.CreateRoom{Type: wire.VerbCreateRoom, RoomID: "arena"})
	require.NoError(t, err)
	m.dispatch(c, createMsg)

	select {
	case frame := <-c.send:
		decoded, err := wire.DecodeMessage(frame)
		require.NoError(t, err)
		_, ok := decoded.(*wire.RoomCreated)
		require.True(t, ok)
	default:
		t.Fatal("expected room_created reply")
	}

	joinMsg, err := wire.EncodeMessage(wire.JoinRoom{Type: wire.VerbJoinRoom, RoomID: "arena"})
	require.NoError(t, err)
	m.dispatch(c, joinMsg)

	select {
	case frame := <-c.send:
		decoded, err := wire.DecodeMessage(frame)
		require.NoError(t, err)
		joined, ok := decoded.(*wire.RoomJoined)
		require.True(t, ok)
		require.Equal(t, "arena", joined.RoomID)
	default:
		t.Fatal("expected room_joined reply")
	}

	require.Equal(t, "arena", c.roomID)
	require.Contains(t, m.RoomIDs(), "arena")
}

func TestJoinNonexistentRoomErrors(t *testing.T) {
	m := NewRoomManager()
	t.Cleanup(m.Shutdown)
	c := newTestClient(m)

	joinMsg, err := wire.EncodeMessage(wire.JoinRoom{Type: wire.VerbJoinRoom, RoomID: "missing"})
	require.NoError(t, err)
	m.dispatch(c, joinMsg)

	frame := <-c.send
	decoded, err := wire.DecodeMessage(frame)
	require.NoError(t, err)
	_, ok := decoded.(*wire.Error)
	require.True(t, ok)
}

func TestClockSyncEchoesClientTimestamp(t *testing.T) {
	m := NewRoomManager()
	t.Cleanup(m.Shutdown)
	c := newTestClient(m)

	req, err := wire.EncodeMessage(wire.ClockSyncRequest{Type: wire.VerbClockSyncRequest, ClientTimestamp: 555})
	require.NoError(t, err)
	m.dispatch(c, req)

	frame := <-c.send
	decoded, err := wire.DecodeMessage(frame)
	require.NoError(t, err)
	resp, ok := decoded.(*wire.ClockSyncResponse)
	require.True(t, ok)
	require.Equal(t, float64(555), resp.ClientTimestamp)
}
