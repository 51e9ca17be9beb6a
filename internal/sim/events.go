package sim

import (
	"fmt"

	"ridesim/internal/ride"
)

// EventKind classifies a notable transition.
type EventKind uint8

const (
	EventArrival EventKind = iota
	EventDeparture
	EventCollision
	EventDerailed
	EventTrackDiscontinuity
	EventCrashed
	EventStalledProgress
	EventBreakdownStop
	EventBreakdownPending
	EventRaceWon
)

var eventNames = [...]string{
	"arrival", "departure", "collision", "derailed", "track_discontinuity",
	"crashed", "stalled_progress", "breakdown_stop", "breakdown_pending", "race_won",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", k)
}

// Event is one entry of the notification feed.
type Event struct {
	Tick    uint64
	Kind    EventKind
	Ride    ride.ID
	Train   int32
	Other   int32 // the other train of a collision, ride.NoTrain otherwise
	Station int   // berth index, -1 when not at a station

	// Before and After hold the velocities of Train and Other around a collision.
	Before [2]int32
	After  [2]int32

	Detail string
}

// EventSink receives events as they happen, in addition to the drained queue.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Publish(ev Event) { f(ev) }

func (e *Engine) emit(ev Event) {
	ev.Tick = e.tick
	e.events = append(e.events, ev)
	if e.sink != nil {
		e.sink.Publish(ev)
	}
	if e.metrics != nil {
		e.metrics.Event(ev.Kind.String())
	}
	l := e.log.Info()
	switch ev.Kind {
	case EventCollision, EventDerailed, EventCrashed, EventStalledProgress, EventTrackDiscontinuity:
		l = e.log.Warn()
	}
	l.Uint64("tick", ev.Tick).
		Int32("ride", int32(ev.Ride)).
		Int32("train", ev.Train).
		Str("event", ev.Kind.String()).
		Str("detail", ev.Detail).
		Msg("ride event")
}

// trainEvent is an event about one train and nothing else.
func trainEvent(kind EventKind, tc *tickContext, detail string) Event {
	return Event{
		Kind:    kind,
		Ride:    tc.ride.id,
		Train:   tc.train.ID,
		Other:   ride.NoTrain,
		Station: tc.train.Berth,
		Detail:  detail,
	}
}

// Outcome flags summarise what happened to a train during one tick.
type Outcome uint16

const (
	AtStation Outcome = 1 << iota
	OnLiftHill
	RanOffTrack
	Collided
	BlockHeld
	Discontinuity
	Splash
	OnBrakes
	PassedPhoto
	JunctionHeld
	OnCableLift
	StopReached
	Doors
)

// Has reports whether all of f are set.
func (o Outcome) Has(f Outcome) bool { return o&f == f }
