package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mikemainguy/rapierphysicsplugin/physics"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
	"github.com/mikemainguy/rapierphysicsplugin/wire"
)

// TestSharedImpulseVisibleToBothClients drives two joined clients
// through a create/join/input/tick sequence and checks that an
// impulse applied by one client's input is observed by both via the
// next broadcast room_state frame.
func TestSharedImpulseVisibleToBothClients(t *testing.T) {
	m := NewRoomManager()
	t.Cleanup(m.Shutdown)

	body := wire.BodyDescriptor{
		ID:     "shared-box",
		Shape:  wire.ShapeDescriptor{Kind: "box", HalfExtents: &wire.Vec3{X: 1, Y: 1, Z: 1}},
		Motion: "dynamic",
		Mass:   1,
	}
	createMsg, err := wire.EncodeMessage(wire.CreateRoom{
		Type:          wire.VerbCreateRoom,
		RoomID:        "shared",
		InitialBodies: []wire.BodyDescriptor{body},
	})
	require.NoError(t, err)

	c1 := newTestClient(m)
	m.dispatch(c1, createMsg)
	<-c1.send // room_created

	joinMsg, err := wire.EncodeMessage(wire.JoinRoom{Type: wire.VerbJoinRoom, RoomID: "shared"})
	require.NoError(t, err)

	c2 := newTestClient(m)
	c2.id = "client-2"
	m.dispatch(c1, joinMsg)
	<-c1.send // room_joined
	m.dispatch(c2, joinMsg)
	<-c2.send // room_joined

	r, ok := m.room("shared")
	require.True(t, ok)
	r.StartSimulation()
	t.Cleanup(r.Destroy)
	drain(c1.send)
	drain(c2.send)

	inputMsg, err := wire.EncodeMessage(wire.ClientInput{
		Type: wire.VerbClientInput,
		Input: wire.InputActionFromDomain(physics.InputAction{
			BodyID: "shared-box",
			Kind:   physics.ActionApplyImpulse,
			Vector: vecmath.Vector3{X: 20},
		}),
	})
	require.NoError(t, err)
	m.dispatch(c1, inputMsg)

	time.Sleep(150 * time.Millisecond)

	frame1 := latestRoomState(t, c1.send)
	frame2 := latestRoomState(t, c2.send)

	require.Greater(t, bodyLinVelX(t, frame1, "shared-box"), float32(0))
	require.Greater(t, bodyLinVelX(t, frame2, "shared-box"), float32(0))
}

func drain(ch chan []byte) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func latestRoomState(t *testing.T, ch chan []byte) wire.RoomStateFrame {
	t.Helper()
	var last wire.RoomStateFrame
	found := false
	for {
		select {
		case data := <-ch:
			decoded, err := wire.DecodeMessage(data)
			require.NoError(t, err)
			if frame, ok := decoded.(*wire.RoomStateFrame); ok {
				last = *frame
				found = true
			}
		default:
			require.True(t, found, "expected at least one room_state frame")
			return last
		}
	}
}

func bodyLinVelX(t *testing.T, frame wire.RoomStateFrame, bodyID string) float32 {
	t.Helper()
	for _, b := range frame.Bodies {
		if b.ID == bodyID || b.Index == 0 {
			return b.LinearVelocity.X
		}
	}
	t.Fatalf("body %q not found in frame", bodyID)
	return 0
}
