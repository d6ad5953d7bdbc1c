package ecs_test

import (
	"testing"

	"github.com/nortlake/ecsframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepRunsQuerySystem(t *testing.T) {
	w := newWorld()
	posID := ecs.RegisterComponent[Position](w)
	velID := ecs.RegisterComponent[Velocity](w)

	id := w.Spawn(Position{X: 0, Y: 0}, Velocity{DX: 1, DY: 2})

	group := w.NewGroup(0)
	plan := w.NewQuery().With(posID, velID).Build()
	w.NewSystem().Group(group).Query(plan, func(r *ecs.QueryResult) (int, error) {
		n := 0
		err := r.Each(func(c *ecs.RowCursor) bool {
			pos, _ := ecs.Get[Position](c)
			vel, _ := ecs.GetConst[Velocity](c)
			pos.X += vel.DX
			pos.Y += vel.DY
			n++
			return true
		})
		return n, err
	}).Build()

	require.NoError(t, w.Step(1.0))

	pos, ok := ecs.ComponentValue[Position](w, id, false)
	require.True(t, ok)
	assert.Equal(t, 1.0, pos.X)
	assert.Equal(t, 2.0, pos.Y)
}

func TestStepOrdersByLabel(t *testing.T) {
	w := newWorld()
	group := w.NewGroup(0)

	var order []string
	record := func(name string) ecs.ExecuteFunc {
		return func() { order = append(order, name) }
	}

	// S1(label=A, after=B), S2(label=B), S3(label=C, after=A), S4(before=A, before=C).
	w.NewSystem().Group(group).Execute(record("s1")).Label("A").After("B").Build()
	w.NewSystem().Group(group).Execute(record("s2")).Label("B").Build()
	w.NewSystem().Group(group).Execute(record("s3")).Label("C").After("A").Build()
	w.NewSystem().Group(group).Execute(record("s4")).Before("A").Before("C").Build()

	require.NoError(t, w.Step(0.016))
	assert.Equal(t, []string{"s2", "s4", "s1", "s3"}, order)
}

func TestFixedRateGroupAccumulator(t *testing.T) {
	w := newWorld()
	runs := 0
	group := w.NewGroup(0).FixedRate(0.1)
	w.NewSystem().Group(group).Execute(func() { runs++ }).Build()

	for i := 0; i < 4; i++ {
		require.NoError(t, w.Step(0.02))
	}
	assert.Equal(t, 0, runs, "4x0.02s under a 0.1s rate should not have run yet")

	require.NoError(t, w.Step(0.021))
	assert.Equal(t, 1, runs)

	require.NoError(t, w.Step(0.21))
	assert.Equal(t, 3, runs, "a single 0.21s step should run twice more at a 0.1s rate")
}

func TestStepFlushesCommandsBetweenGroups(t *testing.T) {
	w := newWorld()
	id := w.Spawn(Health{Current: 0, Max: 10})

	early := w.NewGroup(0)
	late := w.NewGroup(1)

	w.NewSystem().Group(early).Execute(func() {
		w.Commands().Set(id, Health{Current: 5, Max: 10})
	}).Build()

	var seenAtLate int
	w.NewSystem().Group(late).Execute(func() {
		h, _ := ecs.ComponentValue[Health](w, id, false)
		seenAtLate = h.Current
	}).Build()

	require.NoError(t, w.Step(1.0))
	assert.Equal(t, 5, seenAtLate, "deferred Set from the early group must be visible by the late group")
}

func TestDisabledModuleExcludesItsSystems(t *testing.T) {
	w := newWorld()
	group := w.NewGroup(0)

	mod := w.NewModule()
	w.PushModule(mod)
	ran := false
	w.NewSystem().Group(group).Execute(func() { ran = true }).Build()
	w.PopModule()

	mod.Disable()
	require.NoError(t, w.Step(0.1))
	assert.False(t, ran)

	mod.Enable()
	require.NoError(t, w.Step(0.1))
	assert.True(t, ran)
}

func TestDeleteSystemStopsItFromRunning(t *testing.T) {
	w := newWorld()
	group := w.NewGroup(0)
	runs := 0
	sys := w.NewSystem().Group(group).Execute(func() { runs++ }).Build()

	require.NoError(t, w.Step(0.1))
	assert.Equal(t, 1, runs)

	w.DeleteSystem(sys.ID())
	require.NoError(t, w.Step(0.1))
	assert.Equal(t, 1, runs)
}
