package ecs

import "reflect"

// Prefab marks an entity as a template for Instantiate; queries exclude it
// implicitly unless built with IncludePrefabs.
type Prefab struct{}

// PendingDelete marks an entity queued for removal by some external
// convention; queries exclude it implicitly unless built with
// IncludePendingDelete.
type PendingDelete struct{}

// Name optionally labels an entity; stripped by Instantiate along with
// Prefab so instances don't inherit the template's identity.
type Name struct {
	Value string
}

// InstanceOf is the built-in inheritance relation consulted by read-only
// fall-through (§4.5 rule 3) and by the direct ComponentValue accessor's
// inherit flag.
type InstanceOf struct {
	Relation
}

// World owns every table, column, stream, queue, and directory entry for
// one independent ECS instance (§6: "Process-wide state: None — a World
// owns all state and is independently destructible"). Grounded on
// plus3-ooftn/ecs's World, restructured around this package's stable-id
// Storage and the separate query/scheduler/trigger registries built out
// above it.
type World struct {
	config     Config
	components *componentIndex
	storage    *Storage
	singletons *singletonStore
	commands   *Commands
	scheduler  *Scheduler

	streams map[ComponentId]*Stream
	queues  map[EntityId]*EntityQueue
	queries []*QueryPlan

	systems    map[EntityId]*System
	groups     map[EntityId]*SystemGroup
	groupOrder []EntityId

	modules     map[EntityId]*Module
	sets        map[EntityId]*SystemSet
	moduleStack []EntityId

	prefabID         ComponentId
	pendingDeleteID  ComponentId
	nameID           ComponentId
	instanceOfID     ComponentId
	instanceOfRecord *componentRecord
}

// NewWorld constructs an independent World. Component bootstrap order
// matters only in the literal C++ sense of installing the Component-of-
// Component record before anything else; Go's reflection-driven
// registerComponentRecord has no such self-reference to guard, so the only ordering requirement here is registering the
// built-in Prefab/PendingDelete/Name/InstanceOf components before any
// query is built, which NewWorld does unconditionally.
func NewWorld(cfg Config) *World {
	components := newComponentIndex()
	storage := newStorage(components, cfg)

	w := &World{
		config:     cfg,
		components: components,
		storage:    storage,
		singletons: newSingletonStore(),
		commands:   newCommands(),
		streams:    make(map[ComponentId]*Stream),
		queues:     make(map[EntityId]*EntityQueue),
		systems:    make(map[EntityId]*System),
		groups:     make(map[EntityId]*SystemGroup),
		modules:    make(map[EntityId]*Module),
		sets:       make(map[EntityId]*SystemSet),
	}
	storage.triggers = worldTriggerPoster{world: w}
	storage.archetypes.onNewArchetype = func(a *Archetype) {
		for _, p := range w.queries {
			p.offerArchetype(a)
		}
	}

	w.prefabID = RegisterComponent[Prefab](w)
	w.pendingDeleteID = RegisterComponent[PendingDelete](w)
	w.nameID = RegisterComponent[Name](w)
	w.instanceOfID = RegisterComponent[InstanceOf](w)
	w.instanceOfRecord = components.recordByID(w.instanceOfID)

	w.scheduler = newScheduler(w, cfg.JobRunner)
	return w
}

// Storage exposes the low-level column/archetype API for callers that want
// GetComponent/SetComponent's Storage-scoped generics directly.
func (w *World) Storage() *Storage { return w.storage }

// Commands exposes the deferred command log so systems can record
// mutations legal during iteration (§6).
func (w *World) Commands() *Commands { return w.commands }

// Step advances the scheduler by one tick of wall-clock delta dt, in
// seconds.
func (w *World) Step(dt float64) error { return w.scheduler.Step(dt) }

// RegisterComponent returns T's stable component id, installing its
// Component record on first call (§4.1). Creating a second component of
// the same static type returns the same id.
func RegisterComponent[T any](w *World) ComponentId {
	var zero T
	t := reflect.TypeOf(zero)
	if rec := w.components.recordFor(t); rec != nil {
		return rec.id
	}
	id := w.storage.dir.allocate()
	registerComponentRecord[T](w.components, id)
	return id
}

// Spawn creates a new entity carrying the given already-registered
// component values.
func (w *World) Spawn(components ...any) EntityId {
	return w.storage.Spawn(components...)
}

// Destroy removes an entity and all its component data.
func (w *World) Destroy(id EntityId) { w.storage.Destroy(id) }

// IsAlive reports whether id refers to a currently live entity.
func (w *World) IsAlive(id EntityId) bool { return w.storage.dir.isAlive(id) }

// AddComponent attaches a value of T to id, registering T on first use.
func AddComponent[T any](w *World, id EntityId, v T) {
	idOf[T](w)
	w.storage.AddComponent(id, v)
}

// RemoveComponent detaches T from id; a no-op if id doesn't carry it.
func RemoveComponent[T any](w *World, id EntityId) {
	w.storage.RemoveComponent(id, idOf[T](w))
}

// HasComponent reports whether id carries a value of T.
func HasComponent[T any](w *World, id EntityId) bool {
	return w.storage.HasComponent(id, idOf[T](w))
}

// ComponentValue resolves T directly on id, optionally following its
// InstanceOf chain when inherit is set — the direct-access counterpart of
// the query-time fall-through (§6: "get(entity, comp, inherit)").
func ComponentValue[T any](w *World, id EntityId, inherit bool) (*T, bool) {
	v, ok := w.getComponentDepth(id, idOf[T](w), inherit, 0)
	if !ok {
		return nil, false
	}
	ptr, ok := v.(*T)
	return ptr, ok
}

// SetValue overwrites id's value of T in place and fires on_update
// triggers (§6: "set(entity, comp, value)"). When id lacks T it adds T
// instead, which fires on_add rather than on_update.
func SetValue[T any](w *World, id EntityId, v T) bool {
	idOf[T](w)
	return SetComponent[T](w.storage, id, v)
}

// UpdateValue calls fn with a mutable pointer to id's value of T, then
// stamps the directory's update_sequence and fires on_update triggers
// (§6: "update(entity, comp, fn)"). Returns false if id doesn't carry T.
func UpdateValue[T any](w *World, id EntityId, fn func(*T)) bool {
	comp := idOf[T](w)
	ptr, ok := GetComponent[T](w.storage, id)
	if !ok {
		return false
	}
	fn(ptr)
	w.storage.dir.touch(id, w.storage.advanceTick())
	w.storage.fireOnUpdate([]ComponentId{comp}, id)
	return true
}

// Instantiate copies a Prefab-tagged entity into a fresh, independent one,
// stripping the Prefab and Name components from the copy per §4.4 so
// instances are ordinary queryable entities. Relation targets (including
// InstanceOf) are copied verbatim.
func (w *World) Instantiate(prefab EntityId) EntityId {
	e := w.storage.dir.get(prefab)
	if e == nil {
		fatalf("ecs: Instantiate on dead prefab %s", prefab)
	}
	fromArch := w.storage.archetypes.Archetype(e.archetype)

	targetComponents := make([]ComponentId, 0, len(fromArch.components))
	for _, c := range fromArch.components {
		if c == w.prefabID || c == w.nameID {
			continue
		}
		targetComponents = append(targetComponents, c)
	}
	toArch := w.storage.archetypes.GetOrCreate(targetComponents)
	w.storage.guardStructural(toArch.id)

	newID := w.storage.dir.allocate()
	row := len(toArch.entities)
	for _, c := range toArch.components {
		toArch.columns[c].PushCopy(fromArch.columns[c].Get(int(e.row)))
	}
	toArch.entities = append(toArch.entities, newID)
	w.storage.dir.setLocation(newID, toArch.id, uint32(row))
	tick := w.storage.advanceTick()
	w.storage.dir.touch(newID, tick)
	toArch.touch(tick)
	w.storage.fireOnAdd(toArch.components, newID)
	return newID
}

// streamFor returns (creating if necessary) the Stream backing component.
func (w *World) streamFor(component ComponentId) *Stream {
	if st, ok := w.streams[component]; ok {
		return st
	}
	rec := w.components.recordByID(component)
	if rec == nil {
		return nil
	}
	st := newStream(rec)
	w.streams[component] = st
	return st
}

// StreamFor returns T's tick-scoped stream, creating it on first use.
func StreamFor[T any](w *World) *Stream {
	return w.streamFor(idOf[T](w))
}
