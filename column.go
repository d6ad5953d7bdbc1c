package ecs

// columnImpl is the type-erased dispatch record a Column drives per §4.3 and
// the design note in §9: one small interface implemented by a generic type
// specialised at registration time, instead of a truly generic container.
// Grounded on plus3-ooftn/ecs/generic_component_storage.go's
// genericComponentStorage[T], reshaped around dense push/remove-swap rather
// than a free-slot block pool, since the spec's Column is a packed array
// compacted by swap-with-last, not a sparse pool.
type columnImpl interface {
	pushDefault() int
	pushCopy(src any) int
	pushMove(src any) int
	removeSwap(row int) (lastRow int, swapped bool)
	clear()
	get(row int) any
	set(row int, src any)
	len() int
}

// Column is the exported, type-erased handle a Table keeps one of per
// component. It owns the dense buffer for that (archetype, component) pair.
type Column struct {
	component ComponentId
	impl      columnImpl
}

func newColumn(rec *componentRecord) *Column {
	return &Column{
		component: rec.id,
		impl:      rec.newColumn(),
	}
}

// PushDefault appends a zero value and returns its row.
func (c *Column) PushDefault() int { return c.impl.pushDefault() }

// PushCopy appends a copy of src (a *T or T) and returns its row.
func (c *Column) PushCopy(src any) int { return c.impl.pushCopy(src) }

// PushMove appends src's value and returns its row; per spec this also
// "destroys the source slot", which in a GC'd language means nothing more
// than letting the caller drop its own reference. Storage.moveEntity gets
// the same effect with PushCopy followed by removing the source row.
func (c *Column) PushMove(src any) int { return c.impl.pushMove(src) }

// RemoveSwap removes row by swapping the last live element into it,
// destroying the vacated tail slot, and returns the row that used to hold
// the last element (so the caller can fix up that entity's directory row),
// and whether a swap actually moved anything (false when row was already
// last).
func (c *Column) RemoveSwap(row int) (lastRow int, swapped bool) { return c.impl.removeSwap(row) }

// Clear empties the column, destroying every live value.
func (c *Column) Clear() { c.impl.clear() }

// Get returns a pointer to the value at row, as `any` holding *T.
func (c *Column) Get(row int) any { return c.impl.get(row) }

// Set overwrites the value at row.
func (c *Column) Set(row int, src any) { c.impl.set(row, src) }

// Len returns the number of live rows.
func (c *Column) Len() int { return c.impl.len() }

// genericColumn is a dense typed buffer with explicit 3/2+1 geometric
// growth, per §4.3's growth policy ("new_cap = old_cap * 3/2 + 1"). Go's
// append() already grows geometrically but with a different, unspecified
// ratio; implementing ensureCap explicitly keeps the growth policy the
// spec names testable.
type genericColumn[T any] struct {
	data []T
}

func newGenericColumn[T any]() *genericColumn[T] {
	return &genericColumn[T]{}
}

func (c *genericColumn[T]) ensureCap(n int) {
	if cap(c.data) >= n {
		return
	}
	newCap := cap(c.data)*3/2 + 1
	if newCap < n {
		newCap = n
	}
	grown := make([]T, len(c.data), newCap)
	copy(grown, c.data)
	c.data = grown
}

func (c *genericColumn[T]) pushDefault() int {
	c.ensureCap(len(c.data) + 1)
	var zero T
	c.data = append(c.data, zero)
	return len(c.data) - 1
}

func (c *genericColumn[T]) pushCopy(src any) int {
	c.ensureCap(len(c.data) + 1)
	c.data = append(c.data, valueOf[T](src))
	return len(c.data) - 1
}

func (c *genericColumn[T]) pushMove(src any) int {
	return c.pushCopy(src)
}

func (c *genericColumn[T]) removeSwap(row int) (int, bool) {
	n := len(c.data)
	if row < 0 || row >= n {
		fatalf("ecs: column remove-swap row %d out of range [0,%d)", row, n)
	}
	last := n - 1
	if row != last {
		c.data[row] = c.data[last]
	}
	var zero T
	c.data[last] = zero
	c.data = c.data[:last]
	return last, row != last
}

func (c *genericColumn[T]) clear() {
	var zero T
	for i := range c.data {
		c.data[i] = zero
	}
	c.data = c.data[:0]
}

func (c *genericColumn[T]) get(row int) any {
	if row < 0 || row >= len(c.data) {
		fatalf("ecs: column get row %d out of range [0,%d)", row, len(c.data))
	}
	return &c.data[row]
}

func (c *genericColumn[T]) set(row int, src any) {
	if row < 0 || row >= len(c.data) {
		fatalf("ecs: column set row %d out of range [0,%d)", row, len(c.data))
	}
	c.data[row] = valueOf[T](src)
}

func (c *genericColumn[T]) len() int { return len(c.data) }

// valueOf accepts either T or *T (the shapes Spawn/Set calls arrive in) and
// returns the T value, panicking with a TypeMismatch-class error otherwise.
func valueOf[T any](src any) T {
	switch v := src.(type) {
	case T:
		return v
	case *T:
		return *v
	default:
		var zero T
		fatalf("ecs: type mismatch, expected %T got %T", zero, src)
		return zero
	}
}

// ColumnSlice returns a zero-copy typed view over a column's live values,
// the Go shape of the original engine's Column::getComponentData<T>() span
// accessor (original_source/src/Column.h), supplemented into this spec per
// SPEC_FULL §2.
func ColumnSlice[T any](c *Column) []T {
	gc, ok := c.impl.(*genericColumn[T])
	if !ok {
		var zero T
		fatalf("ecs: ColumnSlice type mismatch, column holds a different type than %T", zero)
	}
	return gc.data
}
