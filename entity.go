package ecs

import "fmt"

// EntityId is a 64-bit handle packing a 32-bit slot index in the low bits
// and a 32-bit generation counter in the high bits. Index 0 is reserved:
// the zero EntityId is never alive.
type EntityId uint64

// NewEntityId packs a slot index and generation into an EntityId.
func NewEntityId(index, generation uint32) EntityId {
	return EntityId(uint64(generation)<<32 | uint64(index))
}

// Index returns the slot index encoded in the id.
func (id EntityId) Index() uint32 {
	return uint32(id & 0xFFFFFFFF)
}

// Generation returns the generation counter encoded in the id.
func (id EntityId) Generation() uint32 {
	return uint32(id >> 32)
}

func (id EntityId) String() string {
	return fmt.Sprintf("Entity(%d#%d)", id.Index(), id.Generation())
}

// ComponentId is the EntityId of the entity that carries this component's
// Component record. Components are entities: the same id space is reused
// (RegisterComponent allocates each component's id from the entity
// directory), which is why ComponentId is a distinct name for
// EntityId rather than a separate integer space.
type ComponentId = EntityId
