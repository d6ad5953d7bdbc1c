package ecs

// JobHandle identifies one submitted unit of work. Its concrete type is
// owned entirely by the JobRunner implementation; the scheduler and
// QueryResult.EachParallel only ever pass it back to the same runner.
type JobHandle any

// JobRunner is the job-submission capability §6 says the scheduler
// consumes rather than implements: "the scheduler consumes a job-
// submission capability from outside" (§1 Non-goals). Create accepts a
// closure returning a uint32 (the count of entities/units processed);
// Schedule starts it; IsComplete is non-blocking; AwaitCompletion blocks;
// Result must only be called after completion.
type JobRunner interface {
	Create(fn func() uint32) JobHandle
	Schedule(h JobHandle)
	IsComplete(h JobHandle) bool
	AwaitCompletion(h JobHandle)
	Result(h JobHandle) uint32
}
