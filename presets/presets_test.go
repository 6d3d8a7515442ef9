package presets

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikemainguy/rapierphysicsplugin/physics"
)

func TestLoadDropTestPreset(t *testing.T) {
	resolved, err := Load(".", "drop_test")
	require.NoError(t, err)

	require.InDelta(t, -9.81, float64(resolved.Gravity.Y), 1e-6)
	require.Len(t, resolved.Bodies, 2)

	var ball *physics.BodyDescriptor
	for i := range resolved.Bodies {
		if resolved.Bodies[i].ID == "ball" {
			ball = &resolved.Bodies[i]
		}
	}
	require.NotNil(t, ball)
	require.Equal(t, physics.MotionDynamic, ball.Motion)
	require.Equal(t, physics.ShapeSphere, ball.Shape.Kind)
}

func TestLoadPendulumPresetWithConstraint(t *testing.T) {
	resolved, err := Load(".", "pendulum")
	require.NoError(t, err)

	require.Len(t, resolved.Bodies, 2)
	require.Len(t, resolved.Constraints, 1)
	require.Equal(t, physics.ConstraintDistance, resolved.Constraints[0].Kind)
}

func TestLoadUnknownPresetErrors(t *testing.T) {
	_, err := Load(".", "does-not-exist")
	require.Error(t, err)
}
