package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mikemainguy/rapierphysicsplugin/physics"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

type fakeBroadcaster struct {
	frames [][]byte
}

func (f *fakeBroadcaster) Send(data []byte) {
	f.frames = append(f.frames, data)
}

func testOptions() Options {
	return Options{
		Delta:                  time.Second / 60,
		MaxCatchUpTicks:        10,
		BroadcastIntervalTicks: 3,
		MaxInputBufferTicks:    120,
		FieldEpsilon:           1e-4,
	}
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	initial := []physics.BodyDescriptor{
		{
			ID:     "ball",
			Shape:  physics.ShapeDescriptor{Kind: physics.ShapeSphere, Radius: 0.5},
			Motion: physics.MotionDynamic,
			Mass:   1,
		},
	}
	r := New("test-room", func() physics.World { return physics.NewRefWorld() }, initial, nil, vecmath.Vector3{X: 0, Y: -9.81, Z: 0}, testOptions())
	t.Cleanup(r.Destroy)
	return r
}

func TestJoinReturnsFullSnapshot(t *testing.T) {
	r := newTestRoom(t)
	client := &fakeBroadcaster{}

	snapshot, idMap, running := r.Join("client-1", client)

	require.Len(t, snapshot.Bodies, 1)
	require.Contains(t, idMap, "ball")
	require.False(t, running)
}

func TestTickStepsPhysicsAndBroadcastsOnCadence(t *testing.T) {
	r := newTestRoom(t)
	client := &fakeBroadcaster{}
	r.Join("client-1", client)

	for i := 0; i < 3; i++ {
		r.execute(r.tickLocked)
	}

	require.NotEmpty(t, client.frames)
}

func TestAddBodyAppearsInWorldAndBroadcasts(t *testing.T) {
	r := newTestRoom(t)
	client := &fakeBroadcaster{}
	r.Join("client-1", client)

	idx, err := r.AddBody(physics.BodyDescriptor{
		ID:     "crate",
		Shape:  physics.ShapeDescriptor{Kind: physics.ShapeBox, HalfExtents: vecmath.Vector3{X: 1, Y: 1, Z: 1}},
		Motion: physics.MotionStatic,
	})

	require.NoError(t, err)
	require.NotEmpty(t, client.frames)
	_ = idx
}

func TestRemoveUnknownBodyErrors(t *testing.T) {
	r := newTestRoom(t)
	require.Error(t, r.RemoveBody("does-not-exist"))
}

func TestStartSimulationResetsToInitialPose(t *testing.T) {
	r := newTestRoom(t)
	client := &fakeBroadcaster{}
	r.Join("client-1", client)

	for i := 0; i < 120; i++ {
		r.execute(r.tickLocked)
	}

	snapshot, _ := r.StartSimulation()
	require.Len(t, snapshot.Bodies, 1)
	require.InDelta(t, 0.0, float64(snapshot.Bodies[0].Position.Y), 1e-5)
}

func TestLeaveStopsLoopWhenLastClient(t *testing.T) {
	r := newTestRoom(t)
	client := &fakeBroadcaster{}
	r.Join("client-1", client)
	r.StartSimulation()
	require.True(t, r.simLoop.Running())

	r.Leave("client-1")
	require.False(t, r.simLoop.Running())
}
