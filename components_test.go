package ecs_test

import "github.com/nortlake/ecsframe"

// Shared component fixtures for the test suite below, following the
// teacher's pattern of centralizing test component types in one file.

type Position struct {
	X, Y float64
}

type Velocity struct {
	DX, DY float64
}

type Health struct {
	Current, Max int
}

type Label struct {
	Value string
}

type ChildOf struct {
	ecs.Relation
}

type Damage struct {
	Amount int
}

// newWorld registers every shared fixture type up front, since Spawn and
// Storage.AddComponent only accept already-registered component types.
func newWorld() *ecs.World {
	w := ecs.NewWorld(ecs.DefaultConfig())
	ecs.RegisterComponent[Position](w)
	ecs.RegisterComponent[Velocity](w)
	ecs.RegisterComponent[Health](w)
	ecs.RegisterComponent[Label](w)
	ecs.RegisterComponent[ChildOf](w)
	ecs.RegisterComponent[Damage](w)
	return w
}
