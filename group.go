package ecs

// SystemGroup is the tick-scoped bucket of systems from §3: ordered by
// sequence among its siblings, optionally fixed-rate (accumulator-driven),
// holding both its static member list and the order it actually ran in
// last tick.
type SystemGroup struct {
	id       EntityId
	sequence uint32
	fixed    bool
	rate     float64

	accumulator float64

	members           []EntityId
	executionSequence []EntityId

	lastExecTime  float64
	deferredCount int

	onBegin func()
	onEnd   func()
}

// NewGroup creates a group entity with the given scheduling sequence. A
// fixed-rate group accumulates delta_time and runs at a fixed step; a
// non-fixed group runs once per tick with the real delta.
func (w *World) NewGroup(sequence uint32) *SystemGroup {
	id := w.storage.dir.allocate()
	g := &SystemGroup{id: id, sequence: sequence}
	w.groups[id] = g
	w.groupOrder = append(w.groupOrder, id)
	return g
}

// FixedRate marks the group fixed-rate at the given step, in seconds.
func (g *SystemGroup) FixedRate(rate float64) *SystemGroup {
	g.fixed = true
	g.rate = rate
	return g
}

// OnBegin/OnEnd fire once per actual group run, before/after its systems.
func (g *SystemGroup) OnBegin(fn func()) *SystemGroup { g.onBegin = fn; return g }
func (g *SystemGroup) OnEnd(fn func()) *SystemGroup   { g.onEnd = fn; return g }

// ExecutionSequence returns the order systems actually ran in during the
// group's most recent run.
func (g *SystemGroup) ExecutionSequence() []EntityId { return g.executionSequence }
