package ecs

import "sync"

// command is one recorded deferred mutation, applied in recording order
// when Commands.Flush runs between groups.
type command interface {
	apply(w *World)
}

type cmdAdd struct {
	entity    EntityId
	component any
}

func (c cmdAdd) apply(w *World) { w.storage.AddComponent(c.entity, c.component) }

type cmdRemove struct {
	entity    EntityId
	component ComponentId
}

func (c cmdRemove) apply(w *World) { w.storage.RemoveComponent(c.entity, c.component) }

type cmdSet struct {
	entity    EntityId
	component any
}

func (c cmdSet) apply(w *World) { SetComponent[any](w.storage, c.entity, c.component) }

type cmdDestroy struct {
	entity EntityId
}

func (c cmdDestroy) apply(w *World) { w.storage.Destroy(c.entity) }

// Commands is the thread-safe buffer of add/remove/set/destroy actions
// recorded during iteration (§3's Deferred Command Log). Recording takes a
// mutex (§9: "Recording is mutex-guarded; application is single-threaded
// between groups"); Flush runs with no lock held by the recorder since the
// scheduler only flushes between groups, when no system is executing.
type Commands struct {
	mu      sync.Mutex
	pending []command
}

func newCommands() *Commands {
	return &Commands{}
}

// AddComponent defers attaching component to entity.
func (c *Commands) AddComponent(entity EntityId, component any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, cmdAdd{entity, component})
}

// RemoveComponent defers detaching comp from entity.
func (c *Commands) RemoveComponent(entity EntityId, comp ComponentId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, cmdRemove{entity, comp})
}

// Set defers overwriting entity's value of component's type.
func (c *Commands) Set(entity EntityId, component any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, cmdSet{entity, component})
}

// Destroy defers destroying entity.
func (c *Commands) Destroy(entity EntityId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, cmdDestroy{entity})
}

// Flush applies every recorded command, in recording order, then empties
// the buffer. Deferred commands never fail (§7): apply panics only surface
// InvariantViolation-class programmer errors, same as the direct API.
func (c *Commands) Flush(w *World) {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, cmd := range batch {
		cmd.apply(w)
	}
}

// Len reports the number of commands currently buffered, unapplied.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
