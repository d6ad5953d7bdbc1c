package ecs

import (
	"reflect"

	"github.com/TheBitDrifter/mask"
)

// triggerPoster is the narrow seam Storage uses to notify on_add/on_update/
// on_remove queues without importing entityqueue.go directly; World wires
// the concrete implementation in after both sides exist. A nil poster means
// triggers are simply not dispatched (used by tests that exercise Storage
// in isolation).
type triggerPoster interface {
	post(queueID EntityId, entity EntityId)
}

// Storage is the component-data half of a World: entity directory, archetype
// index, and the structural operations (Spawn/Destroy/AddComponent/
// RemoveComponent/Set) that move rows between archetype tables. Grounded on
// plus3-ooftn/ecs/storage.go's World-embedded storage methods, reshaped
// around the stable-id directory from directory.go instead of an
// archetype-embedded id.
type Storage struct {
	dir        *entityDirectory
	archetypes *ArchetypeIndex
	components *componentIndex
	triggers   triggerPoster

	tick uint64

	// locked/lockedOverflow guard against structural mutation of an
	// archetype currently pinned through Lock, with the same mask/map split
	// as Archetype.bits: a Mask256 for
	// the first 256 archetypes, a map fallback beyond that. Mutating a
	// component's *value* in place (Set) never touches this guard since it
	// never appends or removes a row.
	locked         mask.Mask256
	lockedOverflow map[ArchetypeId]bool
}

func newStorage(components *componentIndex, cfg Config) *Storage {
	return &Storage{
		dir:        newEntityDirectory(cfg.InitialEntityCapacity),
		archetypes: newArchetypeIndex(components, cfg.InitialArchetypeHashCapacity),
		components: components,
	}
}

// Lock pins an archetype against structural mutation: until Unlock, any
// direct structural change to it panics in guardStructural. TableViews do
// not call Lock themselves. Locks do not nest: a second Lock of the same
// archetype is absorbed, and the first Unlock releases it.
func (s *Storage) Lock(id ArchetypeId) {
	if int(id) < maxMaskBits {
		s.locked.Mark(uint32(id))
		return
	}
	if s.lockedOverflow == nil {
		s.lockedOverflow = make(map[ArchetypeId]bool)
	}
	s.lockedOverflow[id] = true
}

// Unlock releases a previous Lock.
func (s *Storage) Unlock(id ArchetypeId) {
	if int(id) < maxMaskBits {
		s.locked.Unmark(uint32(id))
		return
	}
	delete(s.lockedOverflow, id)
}

// IsLocked reports whether id is currently pinned by Lock.
func (s *Storage) IsLocked(id ArchetypeId) bool {
	if int(id) < maxMaskBits {
		var probe mask.Mask256
		probe.Mark(uint32(id))
		return s.locked.ContainsAny(probe)
	}
	return s.lockedOverflow[id]
}

func (s *Storage) guardStructural(id ArchetypeId) {
	if s.IsLocked(id) {
		fatalf("ecs: structural mutation of archetype %d while a view holds it open; use Commands instead", id)
	}
}

// Tick returns the current update stamp, bumped once per structural change
// and once per value write through SetComponent or UpdateValue. Archetype
// lastUpdate stamps are taken from it, and views compare those against the
// stamp they captured to detect invalidation per §3.
func (s *Storage) Tick() uint64 { return s.tick }

func (s *Storage) advanceTick() uint64 {
	s.tick++
	return s.tick
}

func (s *Storage) recordForValue(v any) *componentRecord {
	rec := s.components.recordFor(reflect.TypeOf(v))
	if rec == nil {
		fatalf("ecs: component type %s not registered", reflect.TypeOf(v))
	}
	return rec
}

// Spawn creates a new entity carrying the given component values, placing
// it directly into the archetype matching that exact component set.
func (s *Storage) Spawn(components ...any) EntityId {
	ids := make([]ComponentId, 0, len(components))
	values := make(map[ComponentId]any, len(components))
	for _, c := range components {
		rec := s.recordForValue(c)
		ids = append(ids, rec.id)
		values[rec.id] = c
	}

	arch := s.archetypes.GetOrCreate(ids)
	s.guardStructural(arch.id)

	id := s.dir.allocate()
	row := s.placeNew(arch, id, values)
	s.dir.setLocation(id, arch.id, uint32(row))
	tick := s.advanceTick()
	s.dir.touch(id, tick)
	arch.touch(tick)

	s.fireOnAdd(ids, id)
	return id
}

func (s *Storage) placeNew(arch *Archetype, id EntityId, values map[ComponentId]any) int {
	row := len(arch.entities)
	for _, c := range arch.components {
		col := arch.columns[c]
		if v, ok := values[c]; ok {
			col.PushCopy(v)
		} else {
			col.PushDefault()
		}
	}
	arch.entities = append(arch.entities, id)
	return row
}

// Destroy removes an entity and all its component data, bumping the slot's
// generation so outstanding EntityId copies are invalidated. A no-op on an
// already-dead or unknown id.
func (s *Storage) Destroy(id EntityId) {
	e := s.dir.get(id)
	if e == nil {
		return
	}
	arch := s.archetypes.Archetype(e.archetype)
	s.guardStructural(arch.id)

	s.fireOnRemove(arch.components, id)
	s.removeRow(arch, e.row)
	s.dir.free(id)
	arch.touch(s.advanceTick())
}

// removeRow deletes row via swap-with-last on every column and repairs the
// directory entry of whichever entity was swapped into its place.
func (s *Storage) removeRow(arch *Archetype, row uint32) {
	for _, c := range arch.components {
		arch.columns[c].RemoveSwap(int(row))
	}
	n := len(arch.entities)
	last := n - 1
	if int(row) != last {
		moved := arch.entities[last]
		arch.entities[row] = moved
		s.dir.setLocation(moved, arch.id, row)
	}
	arch.entities = arch.entities[:last]
}

// HasComponent reports whether id is alive and carries comp.
func (s *Storage) HasComponent(id EntityId, comp ComponentId) bool {
	e := s.dir.get(id)
	if e == nil {
		return false
	}
	return s.archetypes.Archetype(e.archetype).Has(comp)
}

// AddComponent attaches component to id, moving it to the archetype reached
// by the memoised add-transition. If id already carries a value of this
// type, AddComponent overwrites it in place instead (no transition).
func (s *Storage) AddComponent(id EntityId, component any) {
	e := s.dir.get(id)
	if e == nil {
		fatalf("ecs: AddComponent on dead entity %s", id)
	}
	rec := s.recordForValue(component)
	from := s.archetypes.Archetype(e.archetype)
	if from.Has(rec.id) {
		SetComponent[any](s, id, component)
		return
	}
	s.guardStructural(from.id)

	tr := s.archetypes.StartTransition(from.id)
	s.archetypes.Compose(tr, rec.id, Add)
	to := s.archetypes.Archetype(tr.To)
	s.guardStructural(to.id)
	s.moveEntity(id, from, to, tr, map[ComponentId]any{rec.id: component})
	s.fireOnAdd([]ComponentId{rec.id}, id)
}

// RemoveComponent detaches comp from id, moving it to the archetype reached
// by the memoised remove-transition. A no-op if id doesn't carry comp.
func (s *Storage) RemoveComponent(id EntityId, comp ComponentId) {
	e := s.dir.get(id)
	if e == nil {
		fatalf("ecs: RemoveComponent on dead entity %s", id)
	}
	from := s.archetypes.Archetype(e.archetype)
	if !from.Has(comp) {
		return
	}
	s.guardStructural(from.id)

	tr := s.archetypes.StartTransition(from.id)
	s.archetypes.Compose(tr, comp, Remove)
	to := s.archetypes.Archetype(tr.To)
	s.guardStructural(to.id)
	s.fireOnRemove([]ComponentId{comp}, id)
	s.moveEntity(id, from, to, tr, nil)
}

// moveEntity drives the column plan directly from tr's composed
// Preserve/Add triples (§4.4: "a multi-step transition applied to a single
// entity move still produces a correct column plan"), appends the row to
// `to`, then deletes the old row from `from`.
func (s *Storage) moveEntity(id EntityId, from, to *Archetype, tr *Transition, overrides map[ComponentId]any) {
	e := s.dir.get(id)
	oldRow := e.row
	newRow := len(to.entities)

	for _, c := range tr.Preserve {
		to.columns[c].PushCopy(from.columns[c].Get(int(oldRow)))
	}
	for _, c := range tr.Add {
		v, ok := overrides[c]
		if !ok {
			fatalf("ecs: transition add of component %s has no override value", c)
		}
		to.columns[c].PushCopy(v)
	}
	to.entities = append(to.entities, id)

	s.removeRow(from, oldRow)

	s.dir.setLocation(id, to.id, uint32(newRow))
	tick := s.advanceTick()
	s.dir.touch(id, tick)
	from.touch(tick)
	to.touch(tick)
}

// GetComponent returns a pointer into the live column slot for T on id, or
// (nil, false) if id is dead or doesn't carry T. The pointer is only valid
// until the next structural change to id's archetype.
func GetComponent[T any](s *Storage, id EntityId) (*T, bool) {
	e := s.dir.get(id)
	if e == nil {
		return nil, false
	}
	var zero T
	rec := s.components.recordFor(reflect.TypeOf(zero))
	if rec == nil {
		return nil, false
	}
	arch := s.archetypes.Archetype(e.archetype)
	col, ok := arch.columns[rec.id]
	if !ok {
		return nil, false
	}
	v, ok := col.Get(int(e.row)).(*T)
	return v, ok
}

// SetComponent writes id's value of T, adding the component first if id
// doesn't already carry it (original_source/src/World.cpp's World::set:
// "if the archetype lacks the component, add it, then write"). The add is
// itself a structural mutation and is deferred like any other when called
// mid-iteration through Commands. Returns false only if id is dead.
func SetComponent[T any](s *Storage, id EntityId, value T) bool {
	e := s.dir.get(id)
	if e == nil {
		return false
	}
	rec := s.recordForValue(value)
	arch := s.archetypes.Archetype(e.archetype)
	if !arch.Has(rec.id) {
		s.AddComponent(id, value)
		return true
	}
	col := arch.columns[rec.id]
	col.Set(int(e.row), value)
	s.dir.touch(id, s.advanceTick())
	s.fireOnUpdate([]ComponentId{rec.id}, id)
	return true
}

func (s *Storage) fireOnAdd(comps []ComponentId, entity EntityId)    { s.fire(comps, entity, onAddEvent) }
func (s *Storage) fireOnUpdate(comps []ComponentId, entity EntityId) { s.fire(comps, entity, onUpdateEvent) }
func (s *Storage) fireOnRemove(comps []ComponentId, entity EntityId) { s.fire(comps, entity, onRemoveEvent) }

type triggerEvent int

const (
	onAddEvent triggerEvent = iota
	onUpdateEvent
	onRemoveEvent
)

func (s *Storage) fire(comps []ComponentId, entity EntityId, ev triggerEvent) {
	if s.triggers == nil {
		return
	}
	for _, c := range comps {
		rec := s.components.recordByID(c)
		if rec == nil {
			continue
		}
		var queues []EntityId
		switch ev {
		case onAddEvent:
			queues = rec.onAdd
		case onUpdateEvent:
			queues = rec.onUpdate
		case onRemoveEvent:
			queues = rec.onRemove
		}
		for _, q := range queues {
			s.triggers.post(q, entity)
		}
	}
}
