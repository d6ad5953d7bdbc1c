package ecs

import (
	"reflect"
	"unsafe"
)

// Relation is embedded in a component struct to mark it as a relation: its
// Target field carries the entity the relation points at. Embedding is the
// Go analogue of the original engine's `struct SetForSystem : Relation {}`
// (original_source/src/System.h) — RegisterComponent detects the embedded
// field by type and records its byte offset the way view.go records
// per-field offsets for its unsafe.Pointer fills.
type Relation struct {
	Target EntityId
}

var relationType = reflect.TypeOf(Relation{})

// componentRecord is the Type Registry's per-component record: size,
// alignment, the operator closures a Column needs, and the trigger queues
// bound to add/update/remove. Per §4.1 the record is itself attached to an
// entity (componentRecord.id), collapsing the component registry and the
// entity directory into one id space.
type componentRecord struct {
	id         ComponentId
	typ        reflect.Type
	size       uintptr
	align      uintptr
	isRelation bool
	targetOff  uintptr
	maskBit    int // -1 if this component didn't get a fast-path bit

	newColumn func() columnImpl
	newStream func() streamImpl

	onAdd    []EntityId // entity-queue ids
	onUpdate []EntityId
	onRemove []EntityId
}

// maxMaskBits bounds the fast-path bitset (TheBitDrifter/mask's Mask256):
// components beyond this count still work, they just fall back to the
// authoritative map-based containment check instead of the mask
// short-circuit — see QueryPlan.matches in query.go.
const maxMaskBits = 256

// componentIndex is the Type Registry. One lives per World.
type componentIndex struct {
	byType  map[reflect.Type]*componentRecord
	byID    map[ComponentId]*componentRecord
	nextBit int
}

func newComponentIndex() *componentIndex {
	return &componentIndex{
		byType: make(map[reflect.Type]*componentRecord),
		byID:   make(map[ComponentId]*componentRecord),
	}
}

func (c *componentIndex) recordFor(t reflect.Type) *componentRecord {
	return c.byType[t]
}

func (c *componentIndex) recordByID(id ComponentId) *componentRecord {
	return c.byID[id]
}

// register installs a componentRecord for type T under the given id,
// closing over T's zero-value semantics for the column factory. Go's GC
// makes explicit destruct/copy/move operators unnecessary at the value
// level (assignment and zeroing already do the right thing); the
// closure's job, per the design notes in §9, is purely to specialise the
// *storage strategy* per type without the caller ever touching a generic
// container directly.
func registerComponentRecord[T any](c *componentIndex, id ComponentId) *componentRecord {
	var zero T
	t := reflect.TypeOf(zero)

	rec := &componentRecord{
		id:      id,
		typ:     t,
		size:    unsafe.Sizeof(zero),
		align:   uintptr(t.Align()),
		maskBit: -1,
		newColumn: func() columnImpl {
			return newGenericColumn[T]()
		},
		newStream: func() streamImpl {
			return newGenericStream[T]()
		},
	}
	if c.nextBit < maxMaskBits {
		rec.maskBit = c.nextBit
		c.nextBit++
	}

	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous && f.Type == relationType {
				rec.isRelation = true
				rec.targetOff = f.Offset
				break
			}
		}
	}

	c.byType[t] = rec
	c.byID[id] = rec
	return rec
}

// relationTarget reads the Target field out of a relation component value
// using the offset recorded at registration, mirroring view.go's unsafe
// field access.
func relationTarget(rec *componentRecord, ptr unsafe.Pointer) EntityId {
	return *(*EntityId)(unsafe.Pointer(uintptr(ptr) + rec.targetOff))
}
