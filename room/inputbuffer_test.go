package room

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikemainguy/rapierphysicsplugin/physics"
)

func TestInputBufferTakeRemovesEntry(t *testing.T) {
	buf := NewInputBuffer(120)
	batch := InputBatch{{BodyID: "a", Kind: physics.ActionApplyImpulse}}

	buf.Add(10, batch)
	got := buf.Take(10)

	require.Len(t, got, 1)
	require.Nil(t, buf.Take(10))
}

func TestInputBufferPrunesOldTicks(t *testing.T) {
	buf := NewInputBuffer(5)
	buf.Add(0, InputBatch{{BodyID: "a"}})
	buf.Add(10, InputBatch{{BodyID: "b"}})

	require.Nil(t, buf.Take(0))
	require.NotNil(t, buf.Take(10))
}

func TestInputBufferClear(t *testing.T) {
	buf := NewInputBuffer(120)
	buf.Add(1, InputBatch{{BodyID: "a"}})
	buf.Clear()
	require.Nil(t, buf.Take(1))
}
