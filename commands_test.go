package ecs_test

import (
	"testing"

	"github.com/nortlake/ecsframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsDeferUntilFlush(t *testing.T) {
	w := newWorld()
	id := w.Spawn(Health{Current: 10, Max: 10})

	w.Commands().Set(id, Health{Current: 1, Max: 10})
	assert.Equal(t, 1, w.Commands().Len())

	h, _ := ecs.ComponentValue[Health](w, id, false)
	assert.Equal(t, 10, h.Current, "set must not apply before Flush")

	w.Commands().Flush(w)
	assert.Equal(t, 0, w.Commands().Len())

	h, _ = ecs.ComponentValue[Health](w, id, false)
	assert.Equal(t, 1, h.Current)
}

func TestCommandsApplyInRecordingOrder(t *testing.T) {
	w := newWorld()
	id := w.Spawn(Health{Current: 0, Max: 100})

	w.Commands().Set(id, Health{Current: 1, Max: 100})
	w.Commands().Set(id, Health{Current: 2, Max: 100})
	w.Commands().Set(id, Health{Current: 3, Max: 100})
	w.Commands().Flush(w)

	h, ok := ecs.ComponentValue[Health](w, id, false)
	require.True(t, ok)
	assert.Equal(t, 3, h.Current)
}

func TestDeferredAddDuringIterationIsInvisibleUntilGroupEnds(t *testing.T) {
	w := newWorld()
	velID := ecs.RegisterComponent[Velocity](w)
	id := w.Spawn(Velocity{DX: 1, DY: 1})

	plan := w.NewQuery().With(velID).Build()
	result := w.Results(plan)

	err := result.Each(func(c *ecs.RowCursor) bool {
		w.Commands().AddComponent(c.Entity(), Health{Current: 9, Max: 9})
		return true
	})
	require.NoError(t, err)

	assert.False(t, ecs.HasComponent[Health](w, id), "add must stay invisible until Flush")

	w.Commands().Flush(w)
	assert.True(t, ecs.HasComponent[Health](w, id))
	h, ok := ecs.ComponentValue[Health](w, id, false)
	require.True(t, ok)
	assert.Equal(t, 9, h.Current)
}

func TestSetDeferredOnMissingComponentAddsThenWrites(t *testing.T) {
	w := newWorld()
	velID := ecs.RegisterComponent[Velocity](w)
	id := w.Spawn(Velocity{DX: 1, DY: 1})

	plan := w.NewQuery().With(velID).Build()
	result := w.Results(plan)

	err := result.Each(func(c *ecs.RowCursor) bool {
		w.Commands().Set(c.Entity(), Health{Current: 12, Max: 12})
		return true
	})
	require.NoError(t, err)

	assert.False(t, ecs.HasComponent[Health](w, id), "set-that-adds must stay invisible until Flush")

	w.Commands().Flush(w)
	assert.True(t, ecs.HasComponent[Health](w, id))
	h, ok := ecs.ComponentValue[Health](w, id, false)
	require.True(t, ok)
	assert.Equal(t, 12, h.Current)
}

func TestCommandsAddRemoveDestroy(t *testing.T) {
	w := newWorld()
	id := w.Spawn(Position{X: 0, Y: 0})
	velID := ecs.RegisterComponent[Velocity](w)

	w.Commands().AddComponent(id, Velocity{DX: 1, DY: 1})
	w.Commands().Flush(w)
	assert.True(t, w.Storage().HasComponent(id, velID))

	w.Commands().RemoveComponent(id, velID)
	w.Commands().Flush(w)
	assert.False(t, w.Storage().HasComponent(id, velID))

	w.Commands().Destroy(id)
	w.Commands().Flush(w)
	assert.False(t, w.IsAlive(id))
}
