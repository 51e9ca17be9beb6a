package sim

import (
	"fmt"

	"ridesim/internal/ride"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

// tickContext carries the train being processed through the integrator and the
// state machine for one pass. Nothing about the current train lives anywhere else.
type tickContext struct {
	tick    uint64
	ride    *rideState
	train   *vehicle.Train
	handles []vehicle.Handle
	cars    []*vehicle.Vehicle

	outcome      Outcome
	stop         *stopPoint
	enteredBerth int
	crashed      bool
}

// stopPoint is where the leading car must come to rest this tick.
type stopPoint struct {
	seg      track.SegmentID
	progress int
}

func (tc *tickContext) velocity() int32 { return tc.cars[0].Velocity }

func (tc *tickContext) setVelocity(v, a int32) {
	for _, c := range tc.cars {
		c.Velocity = v
		c.Acceleration = a
	}
}

// leader is the car walked first: the head going forward, the tail going backward.
func (tc *tickContext) leader() *vehicle.Vehicle {
	if tc.velocity() < 0 {
		return tc.cars[len(tc.cars)-1]
	}
	return tc.cars[0]
}

// AdvanceAllTrains moves every train once. Rides are visited in ascending id
// and trains in the order they were added, so two engines fed the same inputs
// stay identical.
func (e *Engine) AdvanceAllTrains(tick uint64) {
	e.inTick = true
	defer func() { e.inTick = false }()
	e.tick = tick
	e.rebuildIndex()

	for _, rid := range e.rideOrder {
		rs := e.rides[rid]
		e.refreshOccupancy(rs)
		rs.layout.UpdateBlocks(rs.owners)
		for _, tid := range rs.trains {
			t := e.trains[tid]
			tc, err := e.context(rs, t)
			if err != nil {
				e.log.Error().Err(err).Int32("ride", int32(rid)).Int32("train", tid).Msg("skipping train")
				continue
			}
			before := t.Status
			e.step(tc)
			e.watchdog(tc)
			e.animate(tc)
			e.sound(tc)
			if t.Status != before {
				e.log.Debug().Uint64("tick", tick).Int32("ride", int32(rid)).Int32("train", tid).
					Str("from", before.String()).Str("to", t.Status.String()).Msg("status")
			}
			e.refreshOccupancy(rs)
			rs.layout.UpdateBlocks(rs.owners)
		}
	}
	e.releaseContacts()
	e.publishFrame()
}

func (e *Engine) rebuildIndex() {
	e.grid.clear()
	for _, rid := range e.rideOrder {
		for _, tid := range e.rides[rid].trains {
			for _, h := range e.trains[tid].Cars {
				if v, err := e.arena.Get(h); err == nil {
					e.grid.add(h, v.Snapshot.Pos)
				}
			}
		}
	}
}

// TrainView is the status of a train as shown in a ride window.
type TrainView struct {
	ID           int32
	Ride         ride.ID
	Status       vehicle.Status
	StatusTicks  uint32
	Velocity     int32
	Berth        int
	CircuitsLeft int
	Cars         int
}

// CarPosition is the committed pose of one car.
type CarPosition struct {
	Train    int32
	Index    int
	Segment  track.SegmentID
	Progress int
	vehicle.Snapshot
}

// TrainStatus reports a train's status without changing anything.
func (e *Engine) TrainStatus(id int32) (TrainView, error) {
	t, ok := e.trains[id]
	if !ok {
		return TrainView{}, fmt.Errorf("train %d: %w", id, ErrUnknownTrain)
	}
	head, err := e.arena.Get(t.Head())
	if err != nil {
		return TrainView{}, fmt.Errorf("train %d: %w", id, err)
	}
	return TrainView{
		ID:           t.ID,
		Ride:         t.Ride,
		Status:       t.Status,
		StatusTicks:  t.StatusTicks,
		Velocity:     head.Velocity,
		Berth:        t.Berth,
		CircuitsLeft: t.CircuitsLeft,
		Cars:         len(t.Cars),
	}, nil
}

// TrainPositions returns the last committed pose of every car, head first.
func (e *Engine) TrainPositions(id int32) ([]CarPosition, error) {
	t, ok := e.trains[id]
	if !ok {
		return nil, fmt.Errorf("train %d: %w", id, ErrUnknownTrain)
	}
	out := make([]CarPosition, 0, len(t.Cars))
	for i, h := range t.Cars {
		v, err := e.arena.Get(h)
		if err != nil {
			return nil, fmt.Errorf("train %d: %w", id, err)
		}
		out = append(out, CarPosition{Train: id, Index: i, Segment: v.Segment, Progress: v.Progress, Snapshot: v.Snapshot})
	}
	return out, nil
}

// Trains lists train ids in processing order.
func (e *Engine) Trains() []int32 {
	var out []int32
	for _, rid := range e.rideOrder {
		out = append(out, e.rides[rid].trains...)
	}
	return out
}

// Rides lists ride ids in processing order.
func (e *Engine) Rides() []ride.ID { return append([]ride.ID(nil), e.rideOrder...) }

// StatusCounts counts trains per status.
func (e *Engine) StatusCounts() map[vehicle.Status]int {
	out := make(map[vehicle.Status]int)
	for _, t := range e.trains {
		out[t.Status]++
	}
	return out
}

// Layout returns the current layout of a ride.
func (e *Engine) Layout(id ride.ID) (*track.Layout, error) {
	rs, ok := e.rides[id]
	if !ok {
		return nil, fmt.Errorf("ride %d: %w", id, ErrUnknownRide)
	}
	return rs.layout, nil
}
