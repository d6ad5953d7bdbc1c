package ecs

// directoryEntry is the per-slot record described in spec §3: generation,
// current row within the owning table, current archetype, liveness, and the
// storage tick at which the entity was last touched, structurally or by a
// value write.
type directoryEntry struct {
	generation uint32
	row        uint32
	archetype  ArchetypeId
	alive      bool
	updateSeq  uint64
}

// entityDirectory is the array-indexed-by-slot store backing EntityId
// resolution. It never shrinks; destroyed slots are recycled through a
// freelist, the way lazyecs' Resources reuses freed ids (resources.go's
// freeIds stack) rather than compacting the backing slice.
type entityDirectory struct {
	entries  []directoryEntry
	freeList []uint32
}

func newEntityDirectory(capacityHint int) *entityDirectory {
	d := &entityDirectory{
		entries: make([]directoryEntry, 1, max(capacityHint, 1)),
	}
	// slot 0 is reserved: the zero EntityId is never alive.
	return d
}

// allocate reserves a slot, either recycled or freshly appended, and
// returns the EntityId for it at its current generation.
func (d *entityDirectory) allocate() EntityId {
	if n := len(d.freeList); n > 0 {
		idx := d.freeList[n-1]
		d.freeList = d.freeList[:n-1]
		e := &d.entries[idx]
		e.alive = true
		return NewEntityId(idx, e.generation)
	}
	idx := uint32(len(d.entries))
	d.entries = append(d.entries, directoryEntry{alive: true})
	return NewEntityId(idx, 0)
}

// free bumps the slot's generation (invalidating previously issued ids)
// and returns it to the freelist.
func (d *entityDirectory) free(id EntityId) {
	idx := id.Index()
	if int(idx) >= len(d.entries) {
		return
	}
	e := &d.entries[idx]
	if !e.alive || e.generation != id.Generation() {
		return
	}
	e.alive = false
	e.generation++
	e.row = 0
	e.archetype = 0
	d.freeList = append(d.freeList, idx)
}

// isAlive requires index-in-range, matching generation, and alive flag.
func (d *entityDirectory) isAlive(id EntityId) bool {
	idx := id.Index()
	if idx == 0 || int(idx) >= len(d.entries) {
		return false
	}
	e := &d.entries[idx]
	return e.alive && e.generation == id.Generation()
}

// get returns the directory entry for an alive id, or nil.
func (d *entityDirectory) get(id EntityId) *directoryEntry {
	if !d.isAlive(id) {
		return nil
	}
	return &d.entries[id.Index()]
}

// setLocation updates the archetype/row pointer for a live entity, used by
// table moves and by initial spawn placement.
func (d *entityDirectory) setLocation(id EntityId, arch ArchetypeId, row uint32) {
	e := d.get(id)
	if e == nil {
		fatalf("ecs: setLocation on dead entity %s", id)
	}
	e.archetype = arch
	e.row = row
}

// touch stamps the entity's update sequence, used when a component value
// changes under it (see SetComponent and UpdateValue) and on spawn or
// archetype moves.
func (d *entityDirectory) touch(id EntityId, tick uint64) {
	if e := d.get(id); e != nil {
		e.updateSeq = tick
	}
}
