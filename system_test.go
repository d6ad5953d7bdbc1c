package ecs_test

import (
	"testing"

	"github.com/nortlake/ecsframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemBuildRequiresGroup(t *testing.T) {
	w := newWorld()
	assert.Panics(t, func() {
		w.NewSystem().Execute(func() {}).Build()
	})
}

func TestSystemBuildRequiresExactlyOneKind(t *testing.T) {
	w := newWorld()
	group := w.NewGroup(0)
	assert.Panics(t, func() {
		w.NewSystem().Group(group).Build()
	}, "no execution kind populated")
}

func TestGroupExecutionSequenceReflectsActualRun(t *testing.T) {
	w := newWorld()
	group := w.NewGroup(0)
	s1 := w.NewSystem().Group(group).Execute(func() {}).Build()
	s2 := w.NewSystem().Group(group).Execute(func() {}).Build()

	require.NoError(t, w.Step(0.1))
	assert.Equal(t, []ecs.EntityId{s1.ID(), s2.ID()}, group.ExecutionSequence())
}

func TestSystemSetDisablesMembers(t *testing.T) {
	w := newWorld()
	group := w.NewGroup(0)
	set := w.NewSystemSet()

	ran := false
	w.NewSystem().Group(group).Set(set).Execute(func() { ran = true }).Build()

	set.Disable()
	require.NoError(t, w.Step(0.1))
	assert.False(t, ran)

	set.Enable()
	require.NoError(t, w.Step(0.1))
	assert.True(t, ran)
}

func TestSystemIntervalGatesExecution(t *testing.T) {
	w := newWorld()
	group := w.NewGroup(0)
	runs := 0
	w.NewSystem().Group(group).Interval(0.5).Execute(func() { runs++ }).Build()

	require.NoError(t, w.Step(0.2))
	assert.Equal(t, 0, runs)
	require.NoError(t, w.Step(0.3))
	assert.Equal(t, 1, runs)
}

func TestExecuteIfNoneRunsOnEmptyQueryResult(t *testing.T) {
	w := newWorld()
	velID := ecs.RegisterComponent[Velocity](w)
	group := w.NewGroup(0)
	plan := w.NewQuery().With(velID).Build()

	queryRan, fallbackRan := false, false
	w.NewSystem().Group(group).Query(plan, func(r *ecs.QueryResult) (int, error) {
		queryRan = true
		return r.Count(), nil
	}).ExecuteIfNone(func() { fallbackRan = true }).Build()

	require.NoError(t, w.Step(0.1))
	assert.False(t, queryRan)
	assert.True(t, fallbackRan)
}
