package ecs_test

import (
	"testing"

	"github.com/nortlake/ecsframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryWithWithout(t *testing.T) {
	w := newWorld()
	posID := ecs.RegisterComponent[Position](w)
	velID := ecs.RegisterComponent[Velocity](w)
	healthID := ecs.RegisterComponent[Health](w)

	w.Spawn(Position{X: 1, Y: 2}, Velocity{DX: 0.5, DY: 0.5})
	w.Spawn(Position{X: 3, Y: 4}, Velocity{DX: 1.0, DY: 1.0})
	w.Spawn(Position{X: 5, Y: 6}, Velocity{DX: 1.5, DY: 1.5}, Health{Current: 100, Max: 100})
	w.Spawn(Position{X: 7, Y: 8})

	plan := w.NewQuery().With(posID, velID).Without(healthID).Build()
	result := w.Results(plan)
	assert.Equal(t, 2, result.Count())
}

func TestQueryExcludesPrefabsByDefault(t *testing.T) {
	w := newWorld()
	posID := ecs.RegisterComponent[Position](w)

	w.Spawn(Position{X: 1, Y: 1})
	w.Spawn(ecs.Prefab{}, Position{X: 2, Y: 2})

	plan := w.NewQuery().With(posID).Build()
	assert.Equal(t, 1, w.Results(plan).Count())

	plan2 := w.NewQuery().With(posID).IncludePrefabs().Build()
	assert.Equal(t, 2, w.Results(plan2).Count())
}

func TestQueryBackfillsExistingArchetypesAndOffersNewOnes(t *testing.T) {
	w := newWorld()
	posID := ecs.RegisterComponent[Position](w)

	w.Spawn(Position{X: 1, Y: 1})
	plan := w.NewQuery().With(posID).Build()
	assert.Equal(t, 1, w.Results(plan).Count())

	// A brand-new archetype created after Build must still be offered.
	w.Spawn(Position{X: 2, Y: 2}, Velocity{DX: 1, DY: 1})
	assert.Equal(t, 2, w.Results(plan).Count())
}

func TestQueryResultEachVisitsEveryRow(t *testing.T) {
	w := newWorld()
	ecs.RegisterComponent[Position](w)
	velID := ecs.RegisterComponent[Velocity](w)

	w.Spawn(Position{X: 0, Y: 0}, Velocity{DX: 1, DY: 1})
	w.Spawn(Position{X: 0, Y: 0}, Velocity{DX: 2, DY: 2})

	plan := w.NewQuery().With(velID).Build()
	result := w.Results(plan)

	total := 0.0
	err := result.Each(func(c *ecs.RowCursor) bool {
		v, ok := ecs.Get[Velocity](c)
		require.True(t, ok)
		total += v.DX
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, total)
}

func TestQueryResultEachStopsEarly(t *testing.T) {
	w := newWorld()
	velID := ecs.RegisterComponent[Velocity](w)
	for i := 0; i < 5; i++ {
		w.Spawn(Velocity{DX: float64(i)})
	}

	plan := w.NewQuery().With(velID).Build()
	result := w.Results(plan)

	count := 0
	err := result.Each(func(c *ecs.RowCursor) bool {
		count++
		return count < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestQueryResultInvalidatedAfterStructuralChange(t *testing.T) {
	w := newWorld()
	velID := ecs.RegisterComponent[Velocity](w)
	id := w.Spawn(Velocity{DX: 1})

	plan := w.NewQuery().With(velID).Build()
	result := w.Results(plan)

	// Structural mutation bumps the captured table's last_update stamp.
	ecs.AddComponent(w, id, Position{X: 1, Y: 1})

	err := result.Each(func(c *ecs.RowCursor) bool { return true })
	require.Error(t, err)
	var invErr ecs.InvalidatedViewError
	assert.ErrorAs(t, err, &invErr)
}

func TestQueryRelationHop(t *testing.T) {
	w := newWorld()
	childOfID := ecs.RegisterComponent[ChildOf](w)
	healthID := ecs.RegisterComponent[Health](w)

	target := w.Spawn(Health{Current: 50, Max: 100})
	holder := w.Spawn(ChildOf{ecs.Relation{Target: target}})

	plan := w.NewQuery().With(childOfID).Relation(childOfID, healthID).Build()
	result := w.Results(plan)

	seen := 0
	err := result.Each(func(c *ecs.RowCursor) bool {
		assert.Equal(t, holder, c.Entity())
		h, ok := ecs.GetConst[Health](c)
		require.True(t, ok)
		assert.Equal(t, 50, h.Current)
		seen++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestQueryRelationHopYieldsNullAfterTargetDestroyed(t *testing.T) {
	w := newWorld()
	childOfID := ecs.RegisterComponent[ChildOf](w)
	healthID := ecs.RegisterComponent[Health](w)

	target := w.Spawn(Health{Current: 7, Max: 100})
	holder := w.Spawn(ChildOf{ecs.Relation{Target: target}})

	plan := w.NewQuery().With(childOfID).Relation(childOfID, healthID).Build()

	result := w.Results(plan)
	err := result.Each(func(c *ecs.RowCursor) bool {
		_, ok := ecs.GetConst[Health](c)
		assert.True(t, ok)
		return true
	})
	require.NoError(t, err)

	w.Destroy(target)

	result = w.Results(plan)
	err = result.Each(func(c *ecs.RowCursor) bool {
		assert.Equal(t, holder, c.Entity())
		_, ok := ecs.GetConst[Health](c)
		assert.False(t, ok, "hopped component must resolve to null once the relation target is destroyed")
		return true
	})
	require.NoError(t, err)
}

func TestQueryInheritanceWriteModeNeverInherits(t *testing.T) {
	w := newWorld()
	labelID := ecs.RegisterComponent[Label](w)

	base := w.Spawn(Health{Current: 5, Max: 5})
	derived := w.Spawn(ecs.InstanceOf{Relation: ecs.Relation{Target: base}}, Label{Value: "x"})

	plan := w.NewQuery().With(labelID).Inherit().Build()
	result := w.Results(plan)

	err := result.Each(func(c *ecs.RowCursor) bool {
		assert.Equal(t, derived, c.Entity())

		h, ok := ecs.GetConst[Health](c)
		require.True(t, ok, "const read should inherit through InstanceOf")
		assert.Equal(t, 5, h.Current)

		_, ok = ecs.Get[Health](c)
		assert.False(t, ok, "write-mode request must never fall through to an inherited value")
		return true
	})
	require.NoError(t, err)
}

func TestQuerySingletonFallThrough(t *testing.T) {
	w := newWorld()
	type GlobalTime struct{ Elapsed float64 }
	ecs.AddSingleton(w, GlobalTime{Elapsed: 3})

	posID := ecs.RegisterComponent[Position](w)
	timeID := ecs.RegisterComponent[GlobalTime](w)
	w.Spawn(Position{X: 1, Y: 1})

	plan := w.NewQuery().With(posID).Singleton(timeID).Build()
	result := w.Results(plan)

	err := result.Each(func(c *ecs.RowCursor) bool {
		gt, ok := ecs.GetConst[GlobalTime](c)
		require.True(t, ok)
		assert.Equal(t, 3.0, gt.Elapsed)
		return true
	})
	require.NoError(t, err)
}
