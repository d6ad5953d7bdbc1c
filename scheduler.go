package ecs

import "sort"

// Scheduler drives one tick across every group in sequence order,
// implementing §4.6's per-group ordering and dispatch-FIFO rules. Grounded
// on plus3-ooftn/ecs/scheduler.go's group-loop shape, reworked around this
// package's label/read-write accounting and the JobRunner seam from job.go
// instead of a built-in pool.
type Scheduler struct {
	world        *World
	jobs         JobRunner
	tickSequence uint64
}

func newScheduler(world *World, jobs JobRunner) *Scheduler {
	return &Scheduler{world: world, jobs: jobs}
}

// Step advances one tick: for every group in sequence order, fixed-rate
// groups consume their accumulator (running zero or more times at the
// fixed rate), non-fixed groups run once with the real delta; the deferred
// command log is flushed between every group; streams are cleared after
// the last one.
func (s *Scheduler) Step(dt float64) error {
	s.tickSequence++

	order := append([]EntityId{}, s.world.groupOrder...)
	sort.Slice(order, func(i, j int) bool {
		return s.world.groups[order[i]].sequence < s.world.groups[order[j]].sequence
	})

	for _, gid := range order {
		g := s.world.groups[gid]
		if g.fixed {
			g.accumulator += dt
			for g.accumulator >= g.rate {
				if err := s.runGroup(g, g.rate); err != nil {
					return err
				}
				g.accumulator -= g.rate
			}
		} else {
			if err := s.runGroup(g, dt); err != nil {
				return err
			}
		}
		s.world.commands.Flush(s.world)
	}

	for _, st := range s.world.streams {
		st.Clear()
	}
	return nil
}

type inflightJob struct {
	sys    *System
	handle JobHandle
}

// runGroup implements the §4.6 dispatch loop for one group run.
func (s *Scheduler) runGroup(g *SystemGroup, dt float64) error {
	if g.onBegin != nil {
		g.onBegin()
	}
	if g.onEnd != nil {
		defer g.onEnd()
	}

	active := make([]EntityId, 0, len(g.members))
	for _, id := range g.members {
		if sys := s.world.systems[id]; sys != nil && s.world.systemActive(sys) {
			active = append(active, id)
		}
	}

	labelCount := make(map[string]int)
	labelPreCount := make(map[string]int)
	writeCount := make(map[ComponentId]int)
	streamWriteCount := make(map[ComponentId]int)
	for _, id := range active {
		sys := s.world.systems[id]
		for l := range sys.labels {
			labelCount[l]++
		}
		for l := range sys.befores {
			labelPreCount[l]++
		}
		for c := range sys.writes {
			writeCount[c]++
		}
		for c := range sys.streamWrites {
			streamWriteCount[c]++
		}
	}

	fifo := make([]EntityId, 0, len(active))
	for _, id := range active {
		if s.world.systems[id].thread {
			fifo = append(fifo, id)
		}
	}
	for _, id := range active {
		if !s.world.systems[id].thread {
			fifo = append(fifo, id)
		}
	}

	var inFlight []inflightJob

	canRun := func(sys *System) bool {
		for l := range sys.afters {
			if labelCount[l] > 0 {
				return false
			}
		}
		for l := range sys.labels {
			if labelPreCount[l] > 0 {
				return false
			}
		}
		for c := range sys.reads {
			if sys.writes[c] {
				continue
			}
			if writeCount[c] > 0 {
				return false
			}
		}
		for c := range sys.writes {
			for _, f := range inFlight {
				if f.sys.writes[c] {
					return false
				}
			}
		}
		for c := range sys.streamReads {
			if streamWriteCount[c] > 0 {
				return false
			}
		}
		return true
	}

	decrementFor := func(sys *System) {
		for l := range sys.labels {
			labelCount[l]--
		}
		for l := range sys.befores {
			labelPreCount[l]--
		}
		for c := range sys.writes {
			writeCount[c]--
		}
		for c := range sys.streamWrites {
			streamWriteCount[c]--
		}
	}

	drainCompleted := func() {
		kept := inFlight[:0]
		for _, f := range inFlight {
			if s.jobs != nil && s.jobs.IsComplete(f.handle) {
				decrementFor(f.sys)
			} else {
				kept = append(kept, f)
			}
		}
		inFlight = kept
	}

	execOrder := make([]EntityId, 0, len(active))
	rotations := 0
	var runErr error

	for len(fifo) > 0 {
		drainCompleted()
		id := fifo[0]
		sys := s.world.systems[id]
		if canRun(sys) {
			fifo = fifo[1:]
			if sys.thread && s.jobs != nil {
				handle := s.jobs.Create(func() uint32 {
					s.runSystemBody(sys, dt)
					return 1
				})
				s.jobs.Schedule(handle)
				inFlight = append(inFlight, inflightJob{sys, handle})
			} else if err := s.runSystemBody(sys, dt); err != nil {
				runErr = err
				decrementFor(sys)
			} else {
				decrementFor(sys)
			}
			execOrder = append(execOrder, id)
			rotations = 0
			if runErr != nil {
				break
			}
		} else {
			fifo = append(fifo[1:], id)
			rotations++
			if rotations > len(fifo) {
				if len(inFlight) == 0 {
					pending := make([]string, len(fifo))
					for i, pid := range fifo {
						pending[i] = pid.String()
					}
					return SchedulingCycleError{Group: g.id, Pending: pending}
				}
				s.jobs.AwaitCompletion(inFlight[0].handle)
				drainCompleted()
				rotations = 0
			}
		}
	}

	for _, f := range inFlight {
		s.jobs.AwaitCompletion(f.handle)
		decrementFor(f.sys)
	}

	g.executionSequence = execOrder
	for _, id := range execOrder {
		s.world.systems[id].lastRunSequence = s.tickSequence
	}
	return runErr
}

// runSystemBody dispatches one of the four execution variants from
// §4.6: query, stream, entity-queue, or plain execute. A system carrying
// an interval skips its body (but still "ran" for FIFO bookkeeping
// purposes) until its accumulator clears the interval.
//
// Errors surfacing from a threaded system's query iteration cannot be
// reported back through the job capability, which per §6 only returns a
// uint32 — a fixed constraint of the consumed interface, not something
// this scheduler can work around. They are dropped; see DESIGN.md.
func (s *Scheduler) runSystemBody(sys *System, dt float64) error {
	if sys.interval > 0 {
		sys.intervalAccum += dt
		if sys.intervalAccum < sys.interval {
			return nil
		}
		sys.intervalAccum -= sys.interval
	}

	switch {
	case sys.query != nil:
		var result *QueryResult
		if sys.updatesOnly {
			result = s.world.resultsSince(sys.query, sys.lastRunSequence)
		} else {
			result = s.world.Results(sys.query)
		}
		if result.Count() > 0 {
			if sys.queryProc != nil {
				if _, err := sys.queryProc(result); err != nil {
					return err
				}
			}
		} else if sys.executeIfNone != nil {
			sys.executeIfNone()
		}
	case sys.hasStream:
		if st := s.world.streamFor(sys.streamComponent); st != nil && sys.streamProc != nil {
			sys.streamProc(st)
		}
	case sys.queue != nil:
		if sys.queueProc != nil {
			sys.queueProc(sys.queue)
		}
	case sys.execute != nil:
		sys.execute()
	}
	return nil
}
