package ecs

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
)

// InvalidatedViewError is returned when a TableView (or an iterator over
// one) is accessed after the table it references has undergone a
// structural change. The caller must refetch QueryResult.
type InvalidatedViewError struct {
	TableArchetype ArchetypeId
	CapturedStamp  uint64
	CurrentStamp   uint64
}

func (e InvalidatedViewError) Error() string {
	return fmt.Sprintf(
		"ecs: view over archetype %d invalidated (captured update %d, table now at %d)",
		e.TableArchetype, e.CapturedStamp, e.CurrentStamp,
	)
}

// ComponentNotFoundError mirrors the SilentNoOp error kind for lookups:
// callers that want to distinguish "missing" from "present but zero"
// can check for it with errors.As. No lookup in this package returns it:
// they all return a nil pointer or false instead.
type ComponentNotFoundError struct {
	Component ComponentId
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("ecs: component %s not present on entity", e.Component)
}

// fatalf panics with a traced error for InvariantViolation-class failures:
// programmer errors that the engine cannot recover from. bark.AddTrace
// attaches a stack trace to the error the way TheBitDrifter/warehouse does
// at its own panic sites.
func fatalf(format string, args ...any) {
	panic(bark.AddTrace(fmt.Errorf(format, args...)))
}

// SchedulingCycleError reports a group whose dispatch FIFO could not make
// progress: the remaining systems are named for diagnosis per §7.
type SchedulingCycleError struct {
	Group   EntityId
	Pending []string
}

func (e SchedulingCycleError) Error() string {
	return fmt.Sprintf("ecs: scheduling cycle in group %s, pending systems: %v", e.Group, e.Pending)
}
