package ecs_test

import (
	"testing"

	"github.com/nortlake/ecsframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnAddPostsToQueue(t *testing.T) {
	w := newWorld()
	queue := w.NewEntityQueue()
	ecs.OnAdd[Health](w, queue)

	id := w.Spawn(Health{Current: 1, Max: 1})
	assert.Equal(t, 1, queue.Len())

	seen := ecs.EntityId(0)
	queue.Each(func(entity ecs.EntityId, consume func()) bool {
		seen = entity
		consume()
		return true
	})
	assert.Equal(t, id, seen)
}

func TestOnUpdateFiresOnSetNotOnSpawn(t *testing.T) {
	w := newWorld()
	queue := w.NewEntityQueue()
	ecs.OnUpdate[Health](w, queue)

	id := w.Spawn(Health{Current: 1, Max: 1})
	assert.Equal(t, 0, queue.Len(), "spawn fires on_add, not on_update")

	ecs.SetValue(w, id, Health{Current: 2, Max: 1})
	assert.Equal(t, 1, queue.Len())
}

func TestOnRemoveFiresOnComponentRemovalAndDestroy(t *testing.T) {
	w := newWorld()
	queue := w.NewEntityQueue()
	ecs.OnRemove[Velocity](w, queue)

	id := w.Spawn(Position{X: 0, Y: 0}, Velocity{DX: 1, DY: 1})
	ecs.RemoveComponent[Velocity](w, id)
	assert.Equal(t, 1, queue.Len())

	id2 := w.Spawn(Velocity{DX: 1, DY: 1})
	w.Destroy(id2)
	assert.Equal(t, 2, queue.Len())
}

func TestEntityQueueDeduplicates(t *testing.T) {
	w := newWorld()
	queue := w.NewEntityQueue()
	ecs.OnUpdate[Health](w, queue)

	id := w.Spawn(Health{Current: 1, Max: 1})
	ecs.SetValue(w, id, Health{Current: 2, Max: 1})
	ecs.SetValue(w, id, Health{Current: 3, Max: 1})

	assert.Equal(t, 1, queue.Len(), "repeated posts before compact must dedupe")
}

func TestEntityQueueCompactDropsConsumed(t *testing.T) {
	w := newWorld()
	queue := w.NewEntityQueue()
	ecs.OnAdd[Health](w, queue)

	w.Spawn(Health{Current: 1, Max: 1})
	queue.Each(func(entity ecs.EntityId, consume func()) bool {
		consume()
		return true
	})
	queue.Compact()
	assert.Equal(t, 0, queue.Len())

	id2 := w.Spawn(Health{Current: 1, Max: 1})
	assert.Equal(t, 1, queue.Len())

	got := ecs.EntityId(0)
	queue.Each(func(entity ecs.EntityId, consume func()) bool {
		got = entity
		return true
	})
	require.Equal(t, id2, got)
}
