package syncclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mikemainguy/rapierphysicsplugin/physics"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
	"github.com/mikemainguy/rapierphysicsplugin/wire"
)

type fakeTransport struct {
	sent [][]byte
}

func (f *fakeTransport) Send(frame []byte) error {
	f.sent = append(f.sent, frame)
	return nil
}

type fakeListener struct {
	updates []map[string]BodyState
}

func (f *fakeListener) OnStateUpdate(bodies map[string]BodyState) {
	f.updates = append(f.updates, bodies)
}

func TestClientHandleRoomJoinedInitializesState(t *testing.T) {
	tr := &fakeTransport{}
	c := NewClient(tr, nil)
	listener := &fakeListener{}
	c.AddListener(listener)
	t.Cleanup(c.Close)

	joined := wire.RoomJoined{
		Type:   wire.VerbRoomJoined,
		RoomID: "arena",
		Snapshot: wire.RoomStateSnapshot{
			Bodies: []wire.SnapshotBody{
				{ID: "ball", Index: 0, Position: wire.Vec3{X: 1, Y: 2, Z: 3}},
			},
		},
		BodyIDMap: map[string]uint16{"ball": 0},
	}
	frame, err := wire.EncodeMessage(joined)
	require.NoError(t, err)

	require.NoError(t, c.HandleIncoming(frame, 0))

	require.Len(t, listener.updates, 1)
	require.Equal(t, float32(1), listener.updates[0]["ball"].Position.X)
	require.Equal(t, uint64(len(frame)), c.BytesReceived())
}

func TestClientHandleStateFrameMergesByFieldMask(t *testing.T) {
	tr := &fakeTransport{}
	c := NewClient(tr, nil)
	listener := &fakeListener{}
	c.AddListener(listener)
	t.Cleanup(c.Close)

	joined := wire.RoomJoined{
		Type: wire.VerbRoomJoined,
		Snapshot: wire.RoomStateSnapshot{
			Bodies: []wire.SnapshotBody{
				{ID: "ball", Index: 0, Position: wire.Vec3{X: 0, Y: 0, Z: 0}, LinearVelocity: wire.Vec3{X: 1, Y: 0, Z: 0}},
			},
		},
		BodyIDMap: map[string]uint16{"ball": 0},
	}
	joinFrame, err := wire.EncodeMessage(joined)
	require.NoError(t, err)
	require.NoError(t, c.HandleIncoming(joinFrame, 0))

	delta := wire.RoomStateFrame{
		Tick:       1,
		NumericIDs: true,
		Bodies: []wire.BodyEntry{
			{Index: 0, FieldMask: wire.FieldPosition, Position: vecmath.Vector3{X: 5}},
		},
	}
	stateFrame := wire.EncodeRoomState(delta)
	require.NoError(t, c.HandleIncoming(stateFrame, 10))

	latest := listener.updates[len(listener.updates)-1]
	require.Equal(t, float32(5), latest["ball"].Position.X)
	// velocity field was not in the mask, so it survives from the join snapshot.
	require.Equal(t, float32(1), latest["ball"].LinearVelocity.X)
}

func TestClientEnqueueBeforeJoinIsHarmless(t *testing.T) {
	tr := &fakeTransport{}
	c := NewClient(tr, nil)
	t.Cleanup(c.Close)

	require.NotPanics(t, func() {
		c.Enqueue(physics.InputAction{BodyID: "ball", Kind: physics.ActionApplyImpulse})
	})
}

func TestClientStartClockSyncWaitsForFirstInterval(t *testing.T) {
	tr := &fakeTransport{}
	c := NewClient(tr, nil)
	t.Cleanup(c.Close)

	c.StartClockSync(func() float64 { return 0 })
	time.Sleep(20 * time.Millisecond)
	c.StopClockSync()

	// interval defaults to 3s, so no request should have fired yet in 20ms.
	require.Empty(t, tr.sent)
}
