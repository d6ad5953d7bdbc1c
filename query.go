package ecs

import "github.com/TheBitDrifter/mask"

// QueryPlan is a persistent filter over archetypes: with-set, without-set,
// relation hops, singleton reads, and the inherit/thread flags. Its table
// list is maintained incrementally — the ArchetypeIndex.onNewArchetype hook
// that NewWorld installs calls offerArchetype on every live plan whenever a
// new archetype is created; a
// plan built later catches up in one pass over every archetype that exists.
// Grounded on TheBitDrifter/warehouse's query.go, which drives identical
// with/without matching through mask.Mask ContainsAll/ContainsAny.
type QueryPlan struct {
	world *World

	with      []ComponentId
	without   []ComponentId
	relations map[ComponentId][]ComponentId
	singletons []ComponentId
	inherit   bool
	thread    bool

	withMask      mask.Mask256
	withComplete  bool
	withoutMask   mask.Mask256
	withoutComplete bool

	tables []*Archetype
	seen   map[ArchetypeId]bool
}

func containsComponent(set []ComponentId, c ComponentId) bool {
	for _, x := range set {
		if x == c {
			return true
		}
	}
	return false
}

// matches is the authoritative with/without test; the mask comparison above
// it is a pure fast-reject short-circuit and never the sole source of
// truth, so correctness holds even past the 256-component mask horizon.
func (p *QueryPlan) matches(a *Archetype) bool {
	if p.withComplete && a.bitsComplete && !a.bits.ContainsAll(p.withMask) {
		return false
	}
	if p.withoutComplete && a.bitsComplete && !a.bits.ContainsNone(p.withoutMask) {
		return false
	}
	for _, c := range p.with {
		if !a.Has(c) {
			return false
		}
	}
	for _, c := range p.without {
		if a.Has(c) {
			return false
		}
	}
	return true
}

func (p *QueryPlan) offerArchetype(a *Archetype) {
	if p.seen[a.id] {
		return
	}
	p.seen[a.id] = true
	if p.matches(a) {
		p.tables = append(p.tables, a)
	}
}

// QueryBuilder accumulates with/without/relation/singleton/inherit/thread
// predicates before Build() registers the resulting plan with the world.
type QueryBuilder struct {
	world   *World
	plan    *QueryPlan
	skipPrefabFilter, skipPendingDeleteFilter bool
}

// NewQuery starts a query builder against w.
func (w *World) NewQuery() *QueryBuilder {
	return &QueryBuilder{
		world: w,
		plan: &QueryPlan{
			world:     w,
			relations: make(map[ComponentId][]ComponentId),
			seen:      make(map[ArchetypeId]bool),
		},
	}
}

func (b *QueryBuilder) With(ids ...ComponentId) *QueryBuilder {
	b.plan.with = append(b.plan.with, ids...)
	return b
}

func (b *QueryBuilder) Without(ids ...ComponentId) *QueryBuilder {
	b.plan.without = append(b.plan.without, ids...)
	return b
}

// Relation declares that targets are reachable by hopping through holder's
// relation target (§4.5 rule 2).
func (b *QueryBuilder) Relation(holder ComponentId, targets ...ComponentId) *QueryBuilder {
	b.plan.relations[holder] = append(b.plan.relations[holder], targets...)
	return b
}

func (b *QueryBuilder) Singleton(ids ...ComponentId) *QueryBuilder {
	b.plan.singletons = append(b.plan.singletons, ids...)
	return b
}

// Inherit enables InstanceOf fall-through for read-only component access.
func (b *QueryBuilder) Inherit() *QueryBuilder {
	b.plan.inherit = true
	return b
}

// Thread marks the plan eligible for per-view job dispatch in EachParallel.
func (b *QueryBuilder) Thread() *QueryBuilder {
	b.plan.thread = true
	return b
}

// IncludePrefabs opts out of the implicit Prefab exclusion.
func (b *QueryBuilder) IncludePrefabs() *QueryBuilder {
	b.skipPrefabFilter = true
	return b
}

// IncludePendingDelete opts out of the implicit PendingDelete exclusion.
func (b *QueryBuilder) IncludePendingDelete() *QueryBuilder {
	b.skipPendingDeleteFilter = true
	return b
}

// Build finalises the plan: applies the implicit Prefab/PendingDelete
// exclusion, computes the fast-path masks, registers the plan with the
// world so future archetypes are offered to it, and backfills it against
// every archetype that already exists.
func (b *QueryBuilder) Build() *QueryPlan {
	p := b.plan
	if !b.skipPrefabFilter {
		p.without = append(p.without, b.world.prefabID)
	}
	if !b.skipPendingDeleteFilter {
		p.without = append(p.without, b.world.pendingDeleteID)
	}

	p.withComplete = true
	for _, c := range p.with {
		rec := b.world.components.recordByID(c)
		if rec == nil || rec.maskBit < 0 {
			p.withComplete = false
			continue
		}
		p.withMask.Mark(uint32(rec.maskBit))
	}
	p.withoutComplete = true
	for _, c := range p.without {
		rec := b.world.components.recordByID(c)
		if rec == nil || rec.maskBit < 0 {
			p.withoutComplete = false
			continue
		}
		p.withoutMask.Mark(uint32(rec.maskBit))
	}

	b.world.queries = append(b.world.queries, p)
	for _, a := range b.world.storage.archetypes.All() {
		p.offerArchetype(a)
	}
	return p
}
