package presentation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_UpsertMergesInPlace(t *testing.T) {
	reg := NewRegistry()

	e1, created, err := reg.Upsert("m1", KindMonster, Patch{X: f(0), Y: f(0), GoingX: f(100), GoingY: f(0), Speed: f(50)}, nil)
	require.NoError(t, err)
	assert.True(t, created)

	Advance(e1.State, 1000)

	e2, created, err := reg.Upsert("m1", KindMonster, Patch{Health: f(3)}, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, e1, e2)
	assert.Equal(t, 50.0, e2.State.Position.X, "интерполяция продолжается с текущей позиции")
	assert.True(t, e2.State.Moving)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_FailedSpawnLeavesNoEntry(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")

	_, _, err := reg.Upsert("m1", KindMonster, Patch{}, func(*Entity) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, ok := reg.Get("m1")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_RemoveReleasesOnce(t *testing.T) {
	reg := NewRegistry()
	node := &fakeNode{}
	_, _, err := reg.Upsert("m1", KindMonster, Patch{}, func(e *Entity) error {
		e.node = node
		e.setState(activeState{})
		return nil
	})
	require.NoError(t, err)

	assert.True(t, reg.Remove("m1"))
	assert.False(t, reg.Remove("m1"))
	assert.Equal(t, 1, node.destroyed)
}

func TestRegistry_ClearAndIDs(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"b", "a", "c"} {
		_, _, err := reg.Upsert(id, KindMonster, Patch{}, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, reg.IDs())
	assert.Equal(t, 3, reg.Clear())
	assert.Equal(t, 0, reg.Len())
}
