package ecs

import (
	"reflect"
	"unsafe"
)

// TableView is a stable snapshot over one contiguous sub-range of an
// archetype's table, capturing the table's last_update stamp at
// construction time. Any access after the table's stamp has moved raises
// InvalidatedViewError.
type TableView struct {
	table          *Archetype
	startRow       int
	count          int
	capturedUpdate uint64
}

func (v *TableView) valid() bool { return v.table.lastUpdate == v.capturedUpdate }

func (v *TableView) checkValid() error {
	if !v.valid() {
		return InvalidatedViewError{
			TableArchetype: v.table.id,
			CapturedStamp:  v.capturedUpdate,
			CurrentStamp:   v.table.lastUpdate,
		}
	}
	return nil
}

// Count returns the number of rows this view covers.
func (v *TableView) Count() int { return v.count }

// Entity returns the entity at row (0-based, relative to the view).
func (v *TableView) Entity(row int) EntityId { return v.table.entities[v.startRow+row] }

// viewChunkSize implements §4.5's chunk = max(|entities|/40, 1024).
func viewChunkSize(n int) int {
	c := n / 40
	if c < 1024 {
		c = 1024
	}
	return c
}

// QueryResult is the vector of TableViews returned by World.Results, plus
// the plan and optional updates_only watermark needed to resolve fall-
// through component access while iterating.
type QueryResult struct {
	world        *World
	plan         *QueryPlan
	views        []TableView
	minUpdateSeq uint64
}

// Results snapshots plan's current table list into a QueryResult. Two
// results from the same table may coexist; each captures its own
// last_update stamp independently.
func (w *World) Results(plan *QueryPlan) *QueryResult {
	return w.resultsSince(plan, 0)
}

// resultsSince is Results filtered by the updates_only watermark: only rows
// whose directory update_sequence exceeds since are yielded by Each.
func (w *World) resultsSince(plan *QueryPlan, since uint64) *QueryResult {
	r := &QueryResult{world: w, plan: plan, minUpdateSeq: since}
	for _, a := range plan.tables {
		n := len(a.entities)
		if n == 0 {
			continue
		}
		chunk := viewChunkSize(n)
		for start := 0; start < n; start += chunk {
			count := chunk
			if start+count > n {
				count = n - start
			}
			r.views = append(r.views, TableView{
				table:          a,
				startRow:       start,
				count:          count,
				capturedUpdate: a.lastUpdate,
			})
		}
	}
	return r
}

// Count returns the total number of rows across every view.
func (r *QueryResult) Count() int {
	n := 0
	for i := range r.views {
		n += r.views[i].count
	}
	return n
}

// Views exposes the raw view list for low-level/parallel consumers.
func (r *QueryResult) Views() []TableView { return r.views }

// Iter walks every view, invoking fn once per view; fn returns false to
// stop early. This is the low-level counterpart of Each for callers that
// want to drive their own per-view loop (e.g. chunked SIMD-style access via
// ColumnSlice). Returns InvalidatedViewError (§7: Observable failure,
// caller should refetch) the moment a view fails its stamp check.
func (r *QueryResult) Iter(fn func(*TableView) bool) error {
	for i := range r.views {
		v := &r.views[i]
		if err := v.checkValid(); err != nil {
			return err
		}
		if !fn(v) {
			return nil
		}
	}
	return nil
}

// EachParallel runs fn once per view, dispatching through jobs when the
// plan is thread-enabled, the result holds more than 1000 entities total,
// and spans more than two views — mirroring §4.5's parallel iteration
// mode. fn returns the number of entities it processed; EachParallel
// returns their sum. Falls back to serial execution otherwise.
func (r *QueryResult) EachParallel(jobs JobRunner, fn func(*TableView) int) (int, error) {
	if jobs != nil && r.plan != nil && r.plan.thread && r.Count() > 1000 && len(r.views) > 2 {
		handles := make([]JobHandle, len(r.views))
		for i := range r.views {
			v := &r.views[i]
			if err := v.checkValid(); err != nil {
				return 0, err
			}
			handles[i] = jobs.Create(func() uint32 { return uint32(fn(v)) })
			jobs.Schedule(handles[i])
		}
		total := 0
		for _, h := range handles {
			jobs.AwaitCompletion(h)
			total += int(jobs.Result(h))
		}
		return total, nil
	}
	total := 0
	for i := range r.views {
		if err := r.views[i].checkValid(); err != nil {
			return total, err
		}
		total += fn(&r.views[i])
	}
	return total, nil
}

// RowCursor is handed to Each's callback for one row at a time. Get
// requests mutable access (disables inheritance fall-through, queues an
// on_update trigger); GetConst requests read-only access (enables
// inheritance fall-through, never triggers). This substitutes for the
// distilled spec's compile-time-derived parameter mutability, which Go's
// type system cannot express directly — see DESIGN.md.
type RowCursor struct {
	world           *World
	view            *TableView
	row             int
	plan            *QueryPlan
	pendingTriggers []ComponentId
}

// Entity returns the entity backing the cursor's current row.
func (c *RowCursor) Entity() EntityId { return c.view.Entity(c.row) }

// Each iterates every row of every view in order, filtered by the
// updates_only watermark if one was requested via resultsSince. fn returns
// false to stop iteration early. On_update triggers queued by Get calls
// during the row are fired once the row's callback returns. Returns
// InvalidatedViewError if a view fails its stamp check before iteration
// reaches it.
func (r *QueryResult) Each(fn func(*RowCursor) bool) error {
	for vi := range r.views {
		v := &r.views[vi]
		if err := v.checkValid(); err != nil {
			return err
		}
		for row := 0; row < v.count; row++ {
			if r.minUpdateSeq > 0 {
				entity := v.Entity(row)
				e := r.world.storage.dir.get(entity)
				if e == nil || e.updateSeq <= r.minUpdateSeq {
					continue
				}
			}
			cur := &RowCursor{world: r.world, view: v, row: row, plan: r.plan}
			cont := fn(cur)
			if len(cur.pendingTriggers) > 0 {
				r.world.storage.fireOnUpdate(cur.pendingTriggers, cur.Entity())
			}
			if !cont {
				return nil
			}
		}
	}
	return nil
}

// idOf returns T's stable component id, registering it on first use per
// §4.1's component_id_for<T>() contract.
func idOf[T any](w *World) ComponentId {
	return RegisterComponent[T](w)
}

// Get resolves T at the cursor's row as a mutable pointer, per the §4.5
// fall-through order with the instance-of step skipped: direct column,
// relation hop, then singleton (writes never land on an inherited store).
func Get[T any](c *RowCursor) (*T, bool) {
	comp := idOf[T](c.world)
	v, ok := resolveComponent(c.world, c.view, c.row, comp, true, c.plan)
	if !ok {
		return nil, false
	}
	ptr, ok := v.(*T)
	if ok {
		c.pendingTriggers = append(c.pendingTriggers, comp)
	}
	return ptr, ok
}

// GetConst resolves T at the cursor's row read-only, enabling relation and
// (if the plan requested it) instance-of inheritance fall-through.
func GetConst[T any](c *RowCursor) (*T, bool) {
	comp := idOf[T](c.world)
	v, ok := resolveComponent(c.world, c.view, c.row, comp, false, c.plan)
	if !ok {
		return nil, false
	}
	ptr, ok := v.(*T)
	return ptr, ok
}

// resolveComponent implements the four-step fall-through from §4.5:
// direct column, relation hop, instance-of inheritance (read-only only),
// singleton, else nil.
func resolveComponent(w *World, view *TableView, row int, comp ComponentId, mutate bool, plan *QueryPlan) (any, bool) {
	if col, ok := view.table.columns[comp]; ok {
		return col.Get(view.startRow + row), true
	}

	if plan != nil {
		for holder, targets := range plan.relations {
			if !containsComponent(targets, comp) {
				continue
			}
			holderCol, ok := view.table.columns[holder]
			if !ok {
				continue
			}
			holderRec := w.components.recordByID(holder)
			if holderRec == nil || !holderRec.isRelation {
				continue
			}
			target := relationTarget(holderRec, ptrOfAny(holderCol.Get(view.startRow+row)))
			if !w.storage.dir.isAlive(target) {
				return nil, false
			}
			return w.getComponentDepth(target, comp, !mutate, 0)
		}
	}

	if !mutate && plan != nil && plan.inherit {
		if instCol, ok := view.table.columns[w.instanceOfID]; ok {
			target := relationTarget(w.instanceOfRecord, ptrOfAny(instCol.Get(view.startRow+row)))
			if w.storage.dir.isAlive(target) {
				if v, ok := w.getComponentDepth(target, comp, true, 1); ok {
					return v, true
				}
			}
		}
	}

	if plan != nil && containsComponent(plan.singletons, comp) {
		if v, ok := w.singletons.get(comp); ok {
			return v, true
		}
	}

	return nil, false
}

// maxInheritDepth bounds InstanceOf recursion. The original engine leaves
// cycle handling unspecified (§9 open question); we bound recursion depth
// rather than reject cycles at set-time, since a depth bound needs no
// extra bookkeeping on every relation write.
const maxInheritDepth = 32

// getComponentDepth resolves comp directly on entity, or — when
// allowInherit is set and the depth bound hasn't been hit — recurses
// through entity's InstanceOf target, implementing chained inheritance
// (x instance-of y instance-of z). allowInherit is independent of mutate:
// a relation-hop target still honors the original request's mutability,
// while instance-of fall-through is always read-only once entered.
func (w *World) getComponentDepth(entity EntityId, comp ComponentId, allowInherit bool, depth int) (any, bool) {
	if depth > maxInheritDepth {
		return nil, false
	}
	e := w.storage.dir.get(entity)
	if e == nil {
		return nil, false
	}
	arch := w.storage.archetypes.Archetype(e.archetype)
	if col, ok := arch.columns[comp]; ok {
		return col.Get(int(e.row)), true
	}
	if !allowInherit {
		return nil, false
	}
	if instCol, ok := arch.columns[w.instanceOfID]; ok {
		target := relationTarget(w.instanceOfRecord, ptrOfAny(instCol.Get(int(e.row))))
		if w.storage.dir.isAlive(target) {
			return w.getComponentDepth(target, comp, true, depth+1)
		}
	}
	return nil, false
}

// ptrOfAny extracts the unsafe.Pointer backing a boxed *T value, the way
// plus3-ooftn/ecs/view.go reaches into a generic column's element without
// knowing T at the call site.
func ptrOfAny(v any) unsafe.Pointer {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		fatalf("ecs: ptrOfAny expected a pointer, got %T", v)
	}
	return unsafe.Pointer(rv.Pointer())
}
