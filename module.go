package ecs

// Module is the Module Scope unit from §2: a stack of "current module"
// lives on World; systems created while a module is pushed inherit it, and
// disabling the module filters every member system out of ordering.
type Module struct {
	id      EntityId
	enabled bool
}

// NewModule creates a disabled-by-default-false (i.e. enabled) module.
func (w *World) NewModule() *Module {
	id := w.storage.dir.allocate()
	m := &Module{id: id, enabled: true}
	w.modules[id] = m
	return m
}

func (m *Module) Enable()  { m.enabled = true }
func (m *Module) Disable() { m.enabled = false }
func (m *Module) Enabled() bool { return m.enabled }

// PushModule makes m the current module; systems built afterward inherit
// it until PopModule.
func (w *World) PushModule(m *Module) { w.moduleStack = append(w.moduleStack, m.id) }

// PopModule pops the current module scope, if any.
func (w *World) PopModule() {
	if n := len(w.moduleStack); n > 0 {
		w.moduleStack = w.moduleStack[:n-1]
	}
}

func (w *World) currentModule() EntityId {
	if n := len(w.moduleStack); n > 0 {
		return w.moduleStack[n-1]
	}
	return 0
}

// SystemSet is the supplemented enable/disable grouping from
// original_source/src/System.h's SetForSystem relation: orthogonal to
// Module, a system may belong to one module and one set at once. Disabling
// a set filters its members out of ordering exactly like a disabled
// module, independently of which module they belong to.
type SystemSet struct {
	id      EntityId
	enabled bool
}

// NewSystemSet creates an enabled-by-default system set.
func (w *World) NewSystemSet() *SystemSet {
	id := w.storage.dir.allocate()
	s := &SystemSet{id: id, enabled: true}
	w.sets[id] = s
	return s
}

func (s *SystemSet) Enable()  { s.enabled = true }
func (s *SystemSet) Disable() { s.enabled = false }
func (s *SystemSet) Enabled() bool { return s.enabled }

// systemActive reports whether sys should be considered for ordering this
// tick: its own enabled flag, its module's, and its set's must all hold.
func (w *World) systemActive(sys *System) bool {
	if !sys.enabled {
		return false
	}
	if sys.module != 0 {
		if m, ok := w.modules[sys.module]; ok && !m.enabled {
			return false
		}
	}
	if sys.set != 0 {
		if s, ok := w.sets[sys.set]; ok && !s.enabled {
			return false
		}
	}
	return true
}
