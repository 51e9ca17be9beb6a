package sim

import (
	"ridesim/internal/fixed"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

// distanceScale converts velocity into the distance budget of one tick.
const distanceScale = 42

func budgetFor(v int32) int32 { return (v >> 10) * distanceScale }

// cursor is a position on the track while a car is being walked.
type cursor struct {
	seg      track.SegmentID
	progress int
	step     track.WorldStep
}

func cursorAt(l *track.Layout, id track.SegmentID, progress int) (cursor, error) {
	ws, err := l.WorldStep(id, progress)
	if err != nil {
		return cursor{}, err
	}
	return cursor{seg: id, progress: progress, step: ws}, nil
}

// neighbour returns the step after c in dir, crossing into the next segment
// when c is the last step of its own.
func neighbour(l *track.Layout, c cursor, dir track.Direction, train int32) (cursor, track.Obstruction) {
	seg, err := l.Segment(c.seg)
	if err != nil {
		return c, track.DeadEnd
	}
	p := c.progress + int(dir)
	if p >= 0 && p < seg.Steps() {
		n, err := cursorAt(l, c.seg, p)
		if err != nil {
			return c, track.DeadEnd
		}
		return n, track.Clear
	}
	id, obs := l.NextSegment(c.seg, dir, train)
	if obs != track.Clear {
		return c, obs
	}
	ns, err := l.Segment(id)
	if err != nil {
		return c, track.DeadEnd
	}
	p = 0
	if dir == track.Backward {
		p = ns.Steps() - 1
	}
	n, err := cursorAt(l, id, p)
	if err != nil {
		return c, track.DeadEnd
	}
	return n, track.Clear
}

// wants reports whether remaining pushes the car in dir.
func wants(remaining int32, dir track.Direction) bool {
	if dir == track.Forward {
		return remaining > 0
	}
	return remaining < 0
}

// travel runs one tick of track motion: acceleration, velocity, then the walk.
// adjust, when set, overrides the new velocity for station and brake handling.
func (e *Engine) travel(tc *tickContext, adjust func(int32) int32) {
	a := e.acceleration(tc)
	v := e.integrateVelocity(tc, a, adjust)
	e.walkTrain(tc, budgetFor(v))
	if tc.outcome&(BlockHeld|JunctionHeld) != 0 {
		tc.setVelocity(0, 0)
	}
	if tc.stop != nil && e.atStop(tc) {
		tc.outcome |= StopReached
	}
}

// walkTrain spends budget on every car. The leader goes first; when it is held
// the followers only get what the leader managed to spend so spacing holds.
func (e *Engine) walkTrain(tc *tickContext, budget int32) {
	dir := track.Forward
	if budget < 0 || (budget == 0 && tc.velocity() < 0) {
		dir = track.Backward
	}
	var held bool
	var leftover int32
	for n, i := range tc.train.Order(dir) {
		car := tc.cars[i]
		share := budget
		if n > 0 && held {
			share = fixed.SatSub(budget, leftover)
			if (dir == track.Forward && share < 0) || (dir == track.Backward && share > 0) {
				share = 0
			}
		}
		car.Remaining = fixed.SatAdd(car.Remaining, share)
		stopped := e.walkCar(tc, i, dir, n == 0)
		if stopped {
			if n == 0 {
				held = true
				leftover = car.Remaining
			}
			car.Remaining = 0
		}
	}
}

// walkCar steps car i while its remaining distance covers the next step and
// commits the final position once. It reports whether the car was stopped
// early by something other than running out of distance.
func (e *Engine) walkCar(tc *tickContext, i int, dir track.Direction, leader bool) bool {
	car := tc.cars[i]
	l := tc.ride.layout
	cur, err := cursorAt(l, car.Segment, car.Progress)
	if err != nil {
		tc.outcome |= Discontinuity
		return true
	}
	stopped := false
	for {
		if leader && tc.stop != nil && cur.seg == tc.stop.seg && cur.progress == tc.stop.progress && wants(car.Remaining, dir) {
			stopped = true
			break
		}
		next, obs := neighbour(l, cur, dir, tc.train.ID)
		if obs != track.Clear {
			if wants(car.Remaining, dir) {
				if leader {
					tc.outcome |= obstructionOutcome(obs)
				}
				stopped = true
			}
			break
		}
		cost := track.StepCost(cur.step, next.step)
		if dir == track.Forward && car.Remaining < cost {
			break
		}
		if dir == track.Backward && car.Remaining > -cost {
			break
		}
		if next.seg != cur.seg && !l.Continuous(cur.seg, next.seg, dir) {
			tc.outcome |= Discontinuity
			stopped = true
			break
		}
		if leader && e.contact(tc, i, cur.step.Pos, next.step.Pos) {
			stopped = true
			break
		}
		car.Remaining -= int32(dir) * cost
		e.crossed(tc, car, cur, next, dir, leader)
		cur = next
	}
	e.commit(tc, i, cur)
	return stopped
}

func obstructionOutcome(o track.Obstruction) Outcome {
	switch o {
	case track.BlockClosed:
		return BlockHeld
	case track.JunctionBlocked:
		return JunctionHeld
	}
	return RanOffTrack
}

// crossed applies the effects of moving from one step to the next: reverser
// bogie swaps for every car, and piece entry triggers for the leader.
func (e *Engine) crossed(tc *tickContext, car *vehicle.Vehicle, from, to cursor, dir track.Direction, leader bool) {
	l := tc.ride.layout
	seg, err := l.Segment(to.seg)
	if err != nil {
		return
	}
	d := seg.Describe()
	if from.seg == to.seg {
		if d.Has(track.FlagReverser) {
			pt := seg.Type.ReverserPoint()
			if (dir == track.Forward && to.progress == pt) || (dir == track.Backward && from.progress == pt) {
				car.Reversed = !car.Reversed
			}
		}
		return
	}
	if !leader {
		return
	}
	covered := seg.Type.SuppressesSound()
	if d.Has(track.FlagSplash) && !covered {
		tc.outcome |= Splash
	}
	if d.Has(track.FlagDoors) && !covered {
		tc.outcome |= Doors
	}
	if d.Has(track.FlagPhoto) {
		tc.outcome |= PassedPhoto
	}
	if d.Has(track.FlagCableLift) && dir == track.Forward {
		tc.outcome |= OnCableLift
	}
	if seg.Station >= 0 {
		prev, err := l.Segment(from.seg)
		if err == nil && prev.Station != seg.Station {
			tc.outcome |= AtStation
			tc.enteredBerth = seg.Station
		}
	}
}

// commit writes the car's segment, progress and snapshot for this tick and
// moves it in the spatial index.
func (e *Engine) commit(tc *tickContext, i int, c cursor) {
	car := tc.cars[i]
	seg, err := tc.ride.layout.Segment(c.seg)
	if err != nil {
		return
	}
	car.Place(seg, c.progress)
	old := car.Snapshot.Pos
	pose(car, c.step)
	e.grid.relocate(tc.handles[i], old, car.Snapshot.Pos)
}

// pose sets the snapshot of a car standing on ws. Reversed cars face backwards.
func pose(car *vehicle.Vehicle, ws track.WorldStep) {
	yaw := ws.Yaw
	if car.Reversed {
		yaw = (yaw + track.YawSteps/2) % track.YawSteps
	}
	car.Snapshot.Pos = ws.Pos
	car.Snapshot.Yaw = yaw
	car.Snapshot.Pitch = ws.Pitch
	car.Snapshot.Bank = ws.Bank
	car.Snapshot.Sprite = yaw
}

// atStop reports whether the leading car stands on the stop point.
func (e *Engine) atStop(tc *tickContext) bool {
	if tc.stop == nil {
		return false
	}
	l := tc.leader()
	return l.Segment == tc.stop.seg && l.Progress == tc.stop.progress
}

// berthStop is the last step of a berth's end piece, where forward trains halt.
func (e *Engine) berthStop(rs *rideState, berth int) *stopPoint {
	if berth < 0 || berth >= len(rs.berths) {
		return nil
	}
	end := rs.berths[berth].End()
	seg, err := rs.layout.Segment(end)
	if err != nil {
		return nil
	}
	return &stopPoint{seg: end, progress: seg.Steps() - 1}
}
