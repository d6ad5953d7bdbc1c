package ecs

// worldTriggerPoster adapts World's entity-queue registry to the
// triggerPoster seam Storage calls into (storage.go), keeping Storage
// itself ignorant of how queues are registered.
type worldTriggerPoster struct {
	world *World
}

func (p worldTriggerPoster) post(queueID EntityId, entity EntityId) {
	if q, ok := p.world.queues[queueID]; ok {
		q.post(entity)
	}
}

// NewEntityQueue allocates a fresh, empty EntityQueue and registers it with
// the world under its own entity id, so it can be named as a trigger
// target or looked up by systems.
func (w *World) NewEntityQueue() *EntityQueue {
	id := w.storage.dir.allocate()
	q := newEntityQueue(id)
	w.queues[id] = q
	return q
}

// Queue looks up a previously created entity queue by id.
func (w *World) Queue(id EntityId) (*EntityQueue, bool) {
	q, ok := w.queues[id]
	return q, ok
}

// OnAdd binds queue to fire whenever T is added to an entity (§4.7).
func OnAdd[T any](w *World, queue *EntityQueue) {
	rec := w.components.recordByID(idOf[T](w))
	rec.onAdd = append(rec.onAdd, queue.id)
}

// OnUpdate binds queue to fire whenever T is set/updated on an entity.
func OnUpdate[T any](w *World, queue *EntityQueue) {
	rec := w.components.recordByID(idOf[T](w))
	rec.onUpdate = append(rec.onUpdate, queue.id)
}

// OnRemove binds queue to fire whenever T is removed from an entity.
func OnRemove[T any](w *World, queue *EntityQueue) {
	rec := w.components.recordByID(idOf[T](w))
	rec.onRemove = append(rec.onRemove, queue.id)
}
