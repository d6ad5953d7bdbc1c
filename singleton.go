package ecs

import "sync"

// singletonStore backs the Singleton API: a process-scoped component value
// with no owning entity, kept in its own map rather than tied to a
// sentinel entity — the Design Notes in §9 recommend this over the source
// engine's mixed scheme, and it sidesteps the entity-duality bootstrap
// entirely for values that never need to be queried structurally.
type singletonStore struct {
	mu     sync.Mutex
	values map[ComponentId]any
}

func newSingletonStore() *singletonStore {
	return &singletonStore{values: make(map[ComponentId]any)}
}

func (s *singletonStore) add(id ComponentId, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[id]; exists {
		return
	}
	s.values[id] = v
}

func (s *singletonStore) set(id ComponentId, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[id] = v
}

func (s *singletonStore) get(id ComponentId) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[id]
	return v, ok
}

func (s *singletonStore) remove(id ComponentId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, id)
}

func (s *singletonStore) has(id ComponentId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[id]
	return ok
}

// AddSingleton installs T's singleton value if one isn't already present.
// Stored as *T, not T, so query fall-through (resolveComponent) can hand
// back the same *T the direct-column and relation-hop paths yield.
func AddSingleton[T any](w *World, v T) {
	w.singletons.add(idOf[T](w), &v)
}

// SetSingleton installs or overwrites T's singleton value.
func SetSingleton[T any](w *World, v T) {
	w.singletons.set(idOf[T](w), &v)
}

// GetSingleton returns T's singleton value, or (zero, false) if absent.
func GetSingleton[T any](w *World) (T, bool) {
	v, ok := w.singletons.get(idOf[T](w))
	if !ok {
		var zero T
		return zero, false
	}
	return *v.(*T), true
}

// RemoveSingleton deletes T's singleton value, if any.
func RemoveSingleton[T any](w *World) {
	w.singletons.remove(idOf[T](w))
}

// HasSingleton reports whether T's singleton value is installed.
func HasSingleton[T any](w *World) bool {
	return w.singletons.has(idOf[T](w))
}
