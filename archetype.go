package ecs

import (
	"sort"

	"github.com/TheBitDrifter/mask"
	"github.com/kamstrup/intmap"
)

// ArchetypeId numbers archetypes; 0 is always the empty archetype.
type ArchetypeId uint32

// Archetype is an immutable ordered set of component-ids plus the dense
// per-archetype storage for every live entity carrying that exact set:
// one Column per component and a parallel slice of entity ids. Combining
// "Table" into Archetype follows TheBitDrifter/warehouse's archetype.go,
// which wraps a single table.Table directly rather than keeping the two
// as separate indirections.
type Archetype struct {
	id         ArchetypeId
	components []ComponentId // sorted ascending; canonical set
	hash       uint64

	columns    map[ComponentId]*Column
	entities   []EntityId
	lastUpdate uint64

	// bits/bitsComplete back the mask.Mask256 fast-path query pre-check in
	// query.go: bitsComplete is false when any member component didn't get
	// a stable bit (see maxMaskBits in component.go), in which case callers
	// must fall back to the authoritative component-set check.
	bits         mask.Mask256
	bitsComplete bool
}

// Has reports whether the archetype's component set contains c.
func (a *Archetype) Has(c ComponentId) bool {
	_, ok := a.columns[c]
	return ok
}

// Len returns the number of live entities in this archetype's table.
func (a *Archetype) Len() int { return len(a.entities) }

// Components returns the archetype's canonical, sorted component set.
func (a *Archetype) Components() []ComponentId { return a.components }

// LastUpdate returns the stamp bumped on every structural change to this
// archetype's table, the sole view-invalidation key per §3.
func (a *Archetype) LastUpdate() uint64 { return a.lastUpdate }

func (a *Archetype) touch(tick uint64) { a.lastUpdate = tick }

// transitionKey memoizes single-component add/remove transitions.
type transitionKey struct {
	at   ArchetypeId
	comp ComponentId
}

// ArchetypeIndex canonicalises component sets into archetype ids and caches
// single-component transitions, per §4.2. Hash→id lookup uses
// kamstrup/intmap the way plus3-ooftn/ecs/archetype.go already leans on
// intmap for its own hot entity-ref map.
type ArchetypeIndex struct {
	registry    *componentIndex
	byHash      *intmap.Map[uint64, ArchetypeId]
	archetypes  []*Archetype
	addCache    map[transitionKey]ArchetypeId
	removeCache map[transitionKey]ArchetypeId

	// onNewArchetype is invoked once, right after a brand-new archetype is
	// built (never on a cache hit). World wires this to offer the
	// archetype to every live query plan, per §4.5's table-list
	// maintenance: "every new table offers itself to every plan".
	onNewArchetype func(*Archetype)
}

func newArchetypeIndex(registry *componentIndex, hashCapacity int) *ArchetypeIndex {
	if hashCapacity <= 0 {
		hashCapacity = 64
	}
	idx := &ArchetypeIndex{
		registry:    registry,
		byHash:      intmap.New[uint64, ArchetypeId](hashCapacity),
		addCache:    make(map[transitionKey]ArchetypeId),
		removeCache: make(map[transitionKey]ArchetypeId),
	}
	empty := idx.build(nil)
	if empty.id != 0 {
		fatalf("ecs: empty archetype must be id 0, got %d", empty.id)
	}
	return idx
}

// hashSet computes a content hash over a sorted component set using FNV-1a
// 64-bit, combined the way original_source/src/ArchetypeManager.h's Hasher
// folds each component id in: one u64 mix per member, order-independent
// because the set is always sorted first.
func hashSet(sorted []ComponentId) uint64 {
	var h uint64 = 14695981039346656037
	const prime uint64 = 1099511628211
	for _, c := range sorted {
		h ^= uint64(c)
		h *= prime
	}
	return h
}

func sortedCopy(components []ComponentId) []ComponentId {
	out := make([]ComponentId, len(components))
	copy(out, components)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// build creates (or returns the existing) archetype for an already-sorted
// component set.
func (idx *ArchetypeIndex) build(sorted []ComponentId) *Archetype {
	h := hashSet(sorted)
	if id, ok := idx.byHash.Get(h); ok {
		return idx.archetypes[id]
	}

	cols := make(map[ComponentId]*Column, len(sorted))
	var bits mask.Mask256
	bitsComplete := true
	for _, c := range sorted {
		rec := idx.registry.recordByID(c)
		if rec == nil {
			fatalf("ecs: component %s not registered", c)
		}
		cols[c] = newColumn(rec)
		if rec.maskBit >= 0 {
			bits.Mark(uint32(rec.maskBit))
		} else {
			bitsComplete = false
		}
	}

	a := &Archetype{
		id:           ArchetypeId(len(idx.archetypes)),
		components:   sorted,
		hash:         h,
		columns:      cols,
		bits:         bits,
		bitsComplete: bitsComplete,
	}
	idx.archetypes = append(idx.archetypes, a)
	idx.byHash.Put(h, a.id)
	if idx.onNewArchetype != nil {
		idx.onNewArchetype(a)
	}
	return a
}

// GetOrCreate canonicalises an arbitrary (unsorted, possibly duplicated)
// component list into its archetype.
func (idx *ArchetypeIndex) GetOrCreate(components []ComponentId) *Archetype {
	dedup := dedupeSorted(components)
	return idx.build(dedup)
}

func dedupeSorted(components []ComponentId) []ComponentId {
	sorted := sortedCopy(components)
	out := sorted[:0:0]
	for i, c := range sorted {
		if i == 0 || c != sorted[i-1] {
			out = append(out, c)
		}
	}
	return out
}

// Archetype looks up an existing archetype by id. Programmer error if out
// of range.
func (idx *ArchetypeIndex) Archetype(id ArchetypeId) *Archetype {
	if int(id) >= len(idx.archetypes) {
		fatalf("ecs: archetype id %d out of range", id)
	}
	return idx.archetypes[id]
}

// Empty returns the archetype with no components.
func (idx *ArchetypeIndex) Empty() *Archetype { return idx.archetypes[0] }

// All returns every archetype currently known, including empty ones.
func (idx *ArchetypeIndex) All() []*Archetype { return idx.archetypes }

// AddTransition returns the archetype reached by adding comp to from,
// memoised per (from, comp).
func (idx *ArchetypeIndex) AddTransition(from ArchetypeId, comp ComponentId) ArchetypeId {
	key := transitionKey{from, comp}
	if to, ok := idx.addCache[key]; ok {
		return to
	}
	fromArch := idx.Archetype(from)
	if fromArch.Has(comp) {
		idx.addCache[key] = from
		return from
	}
	newSet := append(append([]ComponentId{}, fromArch.components...), comp)
	to := idx.build(sortedCopy(newSet)).id
	idx.addCache[key] = to
	return to
}

// RemoveTransition returns the archetype reached by removing comp from
// from, memoised per (from, comp).
func (idx *ArchetypeIndex) RemoveTransition(from ArchetypeId, comp ComponentId) ArchetypeId {
	key := transitionKey{from, comp}
	if to, ok := idx.removeCache[key]; ok {
		return to
	}
	fromArch := idx.Archetype(from)
	if !fromArch.Has(comp) {
		idx.removeCache[key] = from
		return from
	}
	newSet := make([]ComponentId, 0, len(fromArch.components)-1)
	for _, c := range fromArch.components {
		if c != comp {
			newSet = append(newSet, c)
		}
	}
	to := idx.build(newSet).id
	idx.removeCache[key] = to
	return to
}

// TransitionOp distinguishes add from remove when composing a Transition.
type TransitionOp int

const (
	Add TransitionOp = iota
	Remove
)

// Transition is the (add, remove, preserve) plan produced by one or more
// composed steps, consumed by Storage.moveEntity to drive column
// operations in one pass even when several components changed at once.
type Transition struct {
	From, To ArchetypeId
	Add      []ComponentId
	Remove   []ComponentId
	Preserve []ComponentId
}

// StartTransition seeds an empty transition at `at`, with every current
// component of `at` starting out "preserved".
func (idx *ArchetypeIndex) StartTransition(at ArchetypeId) *Transition {
	arch := idx.Archetype(at)
	return &Transition{
		From:     at,
		To:       at,
		Preserve: append([]ComponentId{}, arch.components...),
	}
}

// Compose mutates tr in place to additionally add-or-remove comp, per the
// cancellation rules in §4.2: removing a component already slated for add
// cancels the add outright (it is dropped from `add`, never queued for
// removal), and re-adding a component already slated for removal cancels
// that removal and leaves it preserved.
func (idx *ArchetypeIndex) Compose(tr *Transition, comp ComponentId, op TransitionOp) {
	switch op {
	case Add:
		tr.To = idx.AddTransition(tr.To, comp)
		if i := indexOf(tr.Remove, comp); i >= 0 {
			tr.Remove = removeAt(tr.Remove, i)
			tr.Preserve = append(tr.Preserve, comp)
			return
		}
		tr.Add = append(tr.Add, comp)
	case Remove:
		tr.To = idx.RemoveTransition(tr.To, comp)
		if i := indexOf(tr.Preserve, comp); i >= 0 {
			tr.Preserve = removeAt(tr.Preserve, i)
			tr.Remove = append(tr.Remove, comp)
			return
		}
		if i := indexOf(tr.Add, comp); i >= 0 {
			tr.Add = removeAt(tr.Add, i)
			return
		}
		fatalf("ecs: remove of component %s not present in transition from %d", comp, tr.From)
	}
}

func indexOf(s []ComponentId, v ComponentId) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func removeAt(s []ComponentId, i int) []ComponentId {
	return append(s[:i:i], s[i+1:]...)
}
