package ecs

// QuerySystemFunc processes a query system's QueryResult, returning the
// number of entities it touched. A non-nil error is almost always an
// InvalidatedViewError surfacing up from Each/Iter.
type QuerySystemFunc func(*QueryResult) (int, error)

// StreamSystemFunc processes a stream system's live entries.
type StreamSystemFunc func(*Stream)

// QueueSystemFunc drains an entity-queue system's posted entities.
type QueueSystemFunc func(*EntityQueue)

// ExecuteFunc is a plain-execute system body.
type ExecuteFunc func()

// System is the scheduled unit from §3: exactly one of {query, stream,
// queue, execute} is populated, plus the read/write/label/ordering
// metadata the scheduler's dispatch loop consults.
type System struct {
	id     EntityId
	group  EntityId
	module EntityId
	set    EntityId

	query         *QueryPlan
	queryProc     QuerySystemFunc
	executeIfNone ExecuteFunc

	hasStream       bool
	streamComponent ComponentId
	streamProc      StreamSystemFunc

	queue     *EntityQueue
	queueProc QueueSystemFunc

	execute ExecuteFunc

	reads, writes             map[ComponentId]bool
	streamReads, streamWrites map[ComponentId]bool
	labels, befores, afters   map[string]bool

	interval      float64
	intervalAccum float64
	enabled       bool
	thread        bool
	updatesOnly   bool

	lastRunSequence uint64
	execTimeEMA     float64
}

// ID returns the entity id this system was registered under, the value
// DeleteSystem expects.
func (s *System) ID() EntityId { return s.id }

func (s *System) kindCount() int {
	n := 0
	if s.query != nil {
		n++
	}
	if s.hasStream {
		n++
	}
	if s.queue != nil {
		n++
	}
	if s.execute != nil {
		n++
	}
	return n
}

// SystemBuilder accumulates a System's fields before Build() registers it
// with its group.
type SystemBuilder struct {
	world *World
	sys   *System
}

// NewSystem starts a system builder. The system inherits the world's
// current module scope (§2: Module Scope) as it stands when NewSystem is
// called.
func (w *World) NewSystem() *SystemBuilder {
	id := w.storage.dir.allocate()
	return &SystemBuilder{
		world: w,
		sys: &System{
			id:            id,
			module:        w.currentModule(),
			reads:         make(map[ComponentId]bool),
			writes:        make(map[ComponentId]bool),
			streamReads:   make(map[ComponentId]bool),
			streamWrites:  make(map[ComponentId]bool),
			labels:        make(map[string]bool),
			befores:       make(map[string]bool),
			afters:        make(map[string]bool),
			enabled:       true,
		},
	}
}

func (b *SystemBuilder) Group(g *SystemGroup) *SystemBuilder {
	b.sys.group = g.id
	return b
}

func (b *SystemBuilder) Query(plan *QueryPlan, proc QuerySystemFunc) *SystemBuilder {
	b.sys.query = plan
	b.sys.queryProc = proc
	return b
}

// ExecuteIfNone runs when a query system's result has zero rows.
func (b *SystemBuilder) ExecuteIfNone(fn ExecuteFunc) *SystemBuilder {
	b.sys.executeIfNone = fn
	return b
}

func (b *SystemBuilder) Stream(component ComponentId, proc StreamSystemFunc) *SystemBuilder {
	b.sys.hasStream = true
	b.sys.streamComponent = component
	b.sys.streamProc = proc
	return b
}

func (b *SystemBuilder) Queue(q *EntityQueue, proc QueueSystemFunc) *SystemBuilder {
	b.sys.queue = q
	b.sys.queueProc = proc
	return b
}

func (b *SystemBuilder) Execute(fn ExecuteFunc) *SystemBuilder {
	b.sys.execute = fn
	return b
}

func (b *SystemBuilder) Reads(ids ...ComponentId) *SystemBuilder {
	for _, id := range ids {
		b.sys.reads[id] = true
	}
	return b
}

func (b *SystemBuilder) Writes(ids ...ComponentId) *SystemBuilder {
	for _, id := range ids {
		b.sys.writes[id] = true
	}
	return b
}

func (b *SystemBuilder) StreamReads(ids ...ComponentId) *SystemBuilder {
	for _, id := range ids {
		b.sys.streamReads[id] = true
	}
	return b
}

func (b *SystemBuilder) StreamWrites(ids ...ComponentId) *SystemBuilder {
	for _, id := range ids {
		b.sys.streamWrites[id] = true
	}
	return b
}

func (b *SystemBuilder) Label(labels ...string) *SystemBuilder {
	for _, l := range labels {
		b.sys.labels[l] = true
	}
	return b
}

func (b *SystemBuilder) Before(labels ...string) *SystemBuilder {
	for _, l := range labels {
		b.sys.befores[l] = true
	}
	return b
}

func (b *SystemBuilder) After(labels ...string) *SystemBuilder {
	for _, l := range labels {
		b.sys.afters[l] = true
	}
	return b
}

func (b *SystemBuilder) Interval(seconds float64) *SystemBuilder {
	b.sys.interval = seconds
	return b
}

func (b *SystemBuilder) Thread() *SystemBuilder {
	b.sys.thread = true
	return b
}

func (b *SystemBuilder) UpdatesOnly() *SystemBuilder {
	b.sys.updatesOnly = true
	return b
}

func (b *SystemBuilder) Set(set *SystemSet) *SystemBuilder {
	b.sys.set = set.id
	return b
}

// Build validates and registers the system. A system built without a group
// is a MissingGroup error (§7: fatal at registration); a system populating
// zero or more than one of {query, stream, queue, execute} is an
// InvariantViolation.
func (b *SystemBuilder) Build() *System {
	s := b.sys
	if s.group == 0 {
		fatalf("ecs: system %s built without a group", s.id)
	}
	if n := s.kindCount(); n != 1 {
		fatalf("ecs: system %s must populate exactly one of query/stream/queue/execute, got %d", s.id, n)
	}
	b.world.systems[s.id] = s
	group := b.world.groups[s.group]
	if group == nil {
		fatalf("ecs: system %s references unknown group %s", s.id, s.group)
	}
	group.members = append(group.members, s.id)
	return s
}

// DeleteSystem removes a system from its group and from the world's system
// table; subsequent ticks no longer consider it.
func (w *World) DeleteSystem(id EntityId) {
	sys, ok := w.systems[id]
	if !ok {
		return
	}
	if group := w.groups[sys.group]; group != nil {
		for i, m := range group.members {
			if m == id {
				group.members = append(group.members[:i], group.members[i+1:]...)
				break
			}
		}
	}
	delete(w.systems, id)
}
