package world

import (
	"fmt"

	"github.com/miki-przygoda/World-Sim/core"
	"github.com/miki-przygoda/World-Sim/model"
)

// EventType indicates what kind of change happened in the world.
type EventType int

const (
	// EventBodySpawned fires after a body is added, by a caller or by
	// scenario loading.
	EventBodySpawned EventType = iota
	// EventBodyRemoved fires after a body leaves the world without
	// merging: an explicit RemoveBody or an escape-radius cull.
	EventBodyRemoved
	// EventBodiesMerged fires once per merge performed during a step.
	EventBodiesMerged
	// EventPaused and EventResumed fire on actual state transitions
	// only; idempotent repeat calls stay silent.
	EventPaused
	EventResumed
	// EventReset fires after the world is restored to its initial state.
	EventReset
	// EventStepped fires after each completed step, so renderers can
	// redraw without polling.
	EventStepped
)

// String returns a short name suitable for metric labels.
func (t EventType) String() string {
	switch t {
	case EventBodySpawned:
		return "spawned"
	case EventBodyRemoved:
		return "removed"
	case EventBodiesMerged:
		return "merged"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventReset:
		return "reset"
	case EventStepped:
		return "stepped"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is emitted to subscribers when something interesting happens.
// Payload fields are value copies; holding on to them is safe.
type Event struct {
	Type    EventType
	SimTime float64

	// Body is set for EventBodySpawned and EventBodyRemoved.
	Body model.Body
	// Merge is set for EventBodiesMerged.
	Merge core.Merge
}
