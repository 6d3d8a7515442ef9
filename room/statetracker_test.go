package room

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikemainguy/rapierphysicsplugin/physics"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

func newWorldWithBall(t *testing.T) physics.World {
	t.Helper()
	w := physics.NewRefWorld()
	require.NoError(t, w.AddBody(physics.BodyDescriptor{
		ID:     "ball",
		Shape:  physics.ShapeDescriptor{Kind: physics.ShapeSphere, Radius: 0.5},
		Motion: physics.MotionDynamic,
		Mass:   1,
	}))
	return w
}

func TestSnapshotIncludesEveryBodyFullMask(t *testing.T) {
	w := newWorldWithBall(t)
	tracker := NewStateTracker(1e-4)

	snap := tracker.Snapshot(w, 0)
	require.Len(t, snap.Bodies, 1)
	require.Equal(t, byte(0x0F), snap.Bodies[0].FieldMask)
}

func TestDeltaFirstSightIsFullMask(t *testing.T) {
	w := newWorldWithBall(t)
	tracker := NewStateTracker(1e-4)

	delta := tracker.Delta(w, 1)
	require.Len(t, delta.Bodies, 1)
	require.Equal(t, byte(0x0F), delta.Bodies[0].FieldMask)
}

func TestDeltaOmitsUnchangedFields(t *testing.T) {
	w := newWorldWithBall(t)
	tracker := NewStateTracker(1e-4)
	tracker.Delta(w, 0)

	w.Step(1.0 / 60.0)
	delta := tracker.Delta(w, 1)

	require.Len(t, delta.Bodies, 1)
	mask := delta.Bodies[0].FieldMask
	require.NotZero(t, mask&wirePositionMask())
}

// wirePositionMask avoids importing the wire package twice for a single bit
// constant in the test file.
func wirePositionMask() byte { return 1 << 0 }

func TestDeltaElidesSleepingBodyButRefreshesCache(t *testing.T) {
	w := physics.NewRefWorld()
	w.SetGravity(vecmath.Vector3{})
	require.NoError(t, w.AddBody(physics.BodyDescriptor{
		ID:     "still",
		Shape:  physics.ShapeDescriptor{Kind: physics.ShapeSphere, Radius: 0.5},
		Motion: physics.MotionDynamic,
		Mass:   1,
	}))

	tracker := NewStateTracker(1e-4)
	tracker.Delta(w, 0)

	for i := 0; i < 40; i++ {
		w.Step(1.0 / 60.0)
	}

	delta := tracker.Delta(w, 40)
	require.Empty(t, delta.Bodies)

	_, tracked := tracker.IndexOf("still")
	require.True(t, tracked)

	cached, ok := tracker.lastBroadcast["still"]
	require.True(t, ok)
	require.True(t, cached.Sleeping)
}

func TestBodyIndexNeverReused(t *testing.T) {
	tracker := NewStateTracker(1e-4)
	idx := tracker.EnsureBodyIndex("a")
	tracker.RemoveTracking("a")
	again := tracker.EnsureBodyIndex("a")
	require.Equal(t, idx, again)

	otherIdx := tracker.EnsureBodyIndex("b")
	require.NotEqual(t, idx, otherIdx)
}
