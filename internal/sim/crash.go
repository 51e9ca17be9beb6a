package sim

import (
	"ridesim/internal/fixed"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

const (
	crashGravity = 1
	// crashScatter spreads the cars of a crashing train apart.
	crashScatter = 3
	groundZ      = 0
)

// startCrash throws every car of the train off the track. The train stops
// taking part in block sections and station occupancy from here on.
func (e *Engine) startCrash(tc *tickContext) {
	t := tc.train
	if t.Status == vehicle.StatusCrashing || t.Status.Terminal() {
		return
	}
	v := tc.velocity()
	speed := budgetFor(fixed.Abs(v))/track.HorizontalCost + 1
	for _, c := range tc.cars {
		angle := c.Snapshot.Yaw * (fixed.AngleSteps / track.YawSteps)
		if v < 0 {
			angle += fixed.AngleSteps / 2
		}
		vel := track.Position{
			X: fixed.Cos(angle)*speed>>fixed.Shift + int32(e.rng.Intn(2*crashScatter+1)-crashScatter),
			Y: fixed.Sin(angle)*speed>>fixed.Shift + int32(e.rng.Intn(2*crashScatter+1)-crashScatter),
			Z: 2 + int32(e.rng.Intn(3)),
		}
		c.Crash = vehicle.Crash{Velocity: vel}
	}
	if t.Berth >= 0 && t.Berth < len(tc.ride.berths) {
		tc.ride.berths[t.Berth].Vacate(t.ID)
	}
	t.SetStatus(vehicle.StatusCrashing)
	t.CrashSoundPending = true
	tc.crashed = true
	e.log.Warn().Int32("ride", int32(tc.ride.id)).Int32("train", t.ID).Int32("velocity", v).Msg("train crashing")
}

// crashing flies every car until it lands. Once all cars are down the train is
// a wreck and reported once.
func (e *Engine) crashing(tc *tickContext) {
	t := tc.train
	landed := true
	for i, c := range tc.cars {
		if c.Crash.Landed {
			continue
		}
		old := c.Snapshot.Pos
		p := old.Add(c.Crash.Velocity)
		c.Crash.Velocity.Z -= crashGravity
		if p.Z <= groundZ {
			p.Z = groundZ
			c.Crash.Landed = true
		} else {
			landed = false
		}
		c.Snapshot.Pos = p
		c.Snapshot.Sprite = (c.Snapshot.Sprite + 1) % track.YawSteps
		e.grid.relocate(tc.handles[i], old, p)
	}
	if !landed {
		return
	}
	tc.setVelocity(0, 0)
	t.SetStatus(vehicle.StatusCrashed)
	if !t.CrashReported {
		t.CrashReported = true
		e.emit(trainEvent(EventCrashed, tc, ""))
	}
}
