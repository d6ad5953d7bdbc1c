// Package jobpool is a reference JobRunner, exercised by this package's own
// tests (including a parallel QueryResult.EachParallel run). It is explicitly not the engine's production worker
// pool — per the spec's Non-goals, the scheduler only ever consumes a
// JobRunner from outside; this package is one concrete way to supply it,
// built on golang.org/x/sync/errgroup the way plus3-ooftn's go.sum already
// carries errgroup as an indirect dependency.
package jobpool

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	ecs "github.com/nortlake/ecsframe"
)

// Pool runs jobs on an errgroup.Group with a fixed concurrency cap,
// satisfying ecs.JobRunner.
type Pool struct {
	sem   chan struct{}
	group *errgroup.Group
	ctx   context.Context

	mu      sync.Mutex
	results map[*job]uint32
}

type job struct {
	done chan struct{}
	fn   func() uint32
}

// New returns a Pool allowing up to maxConcurrent jobs to run at once.
// maxConcurrent <= 0 means unbounded.
func New(maxConcurrent int) *Pool {
	group, ctx := errgroup.WithContext(context.Background())
	p := &Pool{
		group:   group,
		ctx:     ctx,
		results: make(map[*job]uint32),
	}
	if maxConcurrent > 0 {
		p.sem = make(chan struct{}, maxConcurrent)
	}
	return p
}

// Create implements ecs.JobRunner.
func (p *Pool) Create(fn func() uint32) ecs.JobHandle {
	return &job{done: make(chan struct{}), fn: fn}
}

// Schedule implements ecs.JobRunner.
func (p *Pool) Schedule(h ecs.JobHandle) {
	j := h.(*job)
	p.group.Go(func() error {
		if p.sem != nil {
			p.sem <- struct{}{}
			defer func() { <-p.sem }()
		}
		result := j.fn()
		p.mu.Lock()
		p.results[j] = result
		p.mu.Unlock()
		close(j.done)
		return nil
	})
}

// IsComplete implements ecs.JobRunner.
func (p *Pool) IsComplete(h ecs.JobHandle) bool {
	j := h.(*job)
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// AwaitCompletion implements ecs.JobRunner.
func (p *Pool) AwaitCompletion(h ecs.JobHandle) {
	j := h.(*job)
	<-j.done
}

// Result implements ecs.JobRunner. Must only be called after completion.
func (p *Pool) Result(h ecs.JobHandle) uint32 {
	j := h.(*job)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results[j]
}

// Wait blocks until every scheduled job has completed, surfacing the
// first error recorded by the underlying errgroup (job closures in this
// package never return one, but a caller embedding this pool in a larger
// errgroup tree might).
func (p *Pool) Wait() error {
	return p.group.Wait()
}
