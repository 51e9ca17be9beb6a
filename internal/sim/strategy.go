package sim

import (
	"ridesim/internal/fixed"
	"ridesim/internal/ride"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

// mover is the part of the ride cycle that differs by ride type: how a loaded
// train leaves the platform and what it does until it comes back.
type mover interface {
	depart(e *Engine, tc *tickContext)
	operate(e *Engine, tc *tickContext)
}

func moverFor(s ride.Strategy) mover {
	switch s {
	case ride.StrategyBoat:
		return boatMover{}
	case ride.StrategyBumper:
		return bumperMover{}
	case ride.StrategyFlat:
		return flatMover{}
	}
	return trackMover{}
}

type trackMover struct{}

func (trackMover) depart(e *Engine, tc *tickContext) { e.departTrack(tc) }

// operate is never reached: track trains run on the shared statuses.
func (trackMover) operate(*Engine, *tickContext) {}

// Rect is an axis-aligned floor area.
type Rect struct {
	Min, Max track.Position
}

// Contains reports whether p lies inside r, ignoring height.
func (r Rect) Contains(p track.Position) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Surface answers where free-roaming vehicles may go.
type Surface interface {
	IsWater(t track.Tile) bool
	Floor(id ride.ID) (Rect, bool)
}

// OpenWater treats the whole map as water and knows no arena floors.
type OpenWater struct{}

func (OpenWater) IsWater(track.Tile) bool     { return true }
func (OpenWater) Floor(ride.ID) (Rect, bool) { return Rect{}, false }

// MapSurface is a Surface backed by explicit tables.
type MapSurface struct {
	Water  map[track.Tile]bool
	Floors map[ride.ID]Rect
}

func (m MapSurface) IsWater(t track.Tile) bool { return m.Water[t] }

func (m MapSurface) Floor(id ride.ID) (Rect, bool) {
	r, ok := m.Floors[id]
	return r, ok
}

// octants are the unit moves of a free-roaming car, indexed by heading/4.
var octants = [8]track.Position{
	{X: 1}, {X: 1, Y: 1}, {Y: 1}, {X: -1, Y: 1},
	{X: -1}, {X: -1, Y: -1}, {Y: -1}, {X: 1, Y: -1},
}

func octantStep(heading uint8) track.Position {
	return octants[((heading+2)/4)%8]
}

// headingTo is the octant heading that best points from a to b.
func headingTo(a, b track.Position) uint8 {
	d := b.Sub(a)
	sx, sy := fixed.Sign(d.X), fixed.Sign(d.Y)
	ax, ay := fixed.Abs(d.X), fixed.Abs(d.Y)
	if ax > 2*ay {
		sy = 0
	}
	if ay > 2*ax {
		sx = 0
	}
	for i, o := range octants {
		if o.X == sx && o.Y == sy {
			return uint8(i * 4)
		}
	}
	return 0
}

// roam spends car i's distance on unit moves along its heading. blocked is
// called when the next move would leave the allowed area.
func (e *Engine) roam(tc *tickContext, i int, allowed func(track.Position) bool, blocked func(*vehicle.Vehicle, track.Position)) {
	car := tc.cars[i]
	car.Remaining = fixed.SatAdd(car.Remaining, budgetFor(fixed.Abs(car.Velocity)))
	for {
		next := car.Free.Add(octantStep(car.Heading))
		cost := track.StepCost(track.WorldStep{Pos: car.Free}, track.WorldStep{Pos: next})
		if car.Remaining < cost {
			break
		}
		if !allowed(next) {
			blocked(car, next)
			car.Remaining = 0
			break
		}
		if e.contact(tc, i, car.Free, next) {
			car.Remaining = 0
			break
		}
		car.Free = next
		car.Remaining -= cost
	}
	e.commitFree(tc, i)
}

func (e *Engine) commitFree(tc *tickContext, i int) {
	car := tc.cars[i]
	old := car.Snapshot.Pos
	car.Snapshot.Pos = car.Free
	car.Snapshot.Yaw = car.Heading
	car.Snapshot.Sprite = car.Heading
	e.grid.relocate(tc.handles[i], old, car.Free)
}

// dock is the loading point of a free-roaming ride.
func dock(rs *rideState, berth int) track.Position {
	if berth < 0 || berth >= len(rs.berths) {
		berth = 0
	}
	ws, err := rs.layout.WorldStep(rs.berths[berth].Start(), 0)
	if err != nil {
		return track.Position{}
	}
	return ws.Pos
}

// slot is where car i of a free-roaming train rests at its dock. Cars line up
// one footprint apart so a docked train never overlaps itself.
func slot(rs *rideState, berth, i int) track.Position {
	p := dock(rs, berth)
	p.X += int32(i) * rs.desc.Footprint
	return p
}

func cruise(d *ride.Descriptor, v int32) int32 {
	return towards(v, speedOr(d.MaxPoweredSpeed, 2<<16), max(d.PoweredAccel, 1))
}

const (
	boatHireTicks   = 256
	boatReturnTicks = 2048
	dockRadius      = 4
)

// boatMover runs hired boats: they cruise on water for the hire time, turning
// away from land, then steer back to the dock.
type boatMover struct{}

func (boatMover) depart(e *Engine, tc *tickContext) {
	t := tc.train
	if t.Berth >= 0 {
		tc.ride.berths[t.Berth].Vacate(t.ID)
	}
	t.SetStatus(vehicle.StatusTravellingBoat)
}

func (boatMover) operate(e *Engine, tc *tickContext) {
	rs, t := tc.ride, tc.train
	hire := uint32(max(t.Operations, 1)) * boatHireTicks
	returning := t.StatusTicks >= hire
	if returning && t.StatusTicks >= hire+boatReturnTicks {
		// towed back
		e.moor(tc)
		return
	}
	tc.setVelocity(cruise(rs.desc, tc.velocity()), 0)
	turn := func(c *vehicle.Vehicle, _ track.Position) {
		if e.rng.Chance(1, 2) {
			c.Heading = (c.Heading + 8) % track.YawSteps
		} else {
			c.Heading = (c.Heading + track.YawSteps - 8) % track.YawSteps
		}
	}
	docked := true
	for i, c := range tc.cars {
		home := slot(rs, t.Berth, i)
		allowed := func(p track.Position) bool {
			return e.surface.IsWater(p.Tile()) || (returning && p.Tile() == home.Tile())
		}
		if returning {
			c.Heading = headingTo(c.Free, home)
		}
		e.roam(tc, i, allowed, turn)
		d := home.Sub(c.Free)
		if fixed.Abs(d.X) > dockRadius || fixed.Abs(d.Y) > dockRadius {
			docked = false
		}
	}
	if returning && docked {
		e.moor(tc)
	}
}

// moor puts every boat of the train on its slot at the dock.
func (e *Engine) moor(tc *tickContext) {
	for i, c := range tc.cars {
		c.Free = slot(tc.ride, tc.train.Berth, i)
		e.commitFree(tc, i)
	}
	tc.setVelocity(0, 0)
	tc.train.SetStatus(vehicle.StatusArriving)
}

const (
	bumperTicks  = 256
	bumperArena  = 2 * track.TileSize
	bumperWander = 24
)

// bumperMover runs bumper cars inside their arena floor. Cars wander at random
// and bounce off walls and each other.
type bumperMover struct{}

func (bumperMover) depart(e *Engine, tc *tickContext) {
	tc.train.SetStatus(vehicle.StatusTravellingBumper)
}

func (bumperMover) operate(e *Engine, tc *tickContext) {
	rs, t := tc.ride, tc.train
	if t.StatusTicks >= uint32(max(t.Operations, 1))*bumperTicks {
		tc.setVelocity(0, 0)
		t.SetStatus(vehicle.StatusArriving)
		return
	}
	floor, ok := e.surface.Floor(rs.id)
	if !ok {
		c := dock(rs, 0)
		floor = Rect{
			Min: track.Position{X: c.X - bumperArena, Y: c.Y - bumperArena},
			Max: track.Position{X: c.X + bumperArena, Y: c.Y + bumperArena},
		}
	}
	tc.setVelocity(cruise(rs.desc, tc.velocity()), 0)
	bounce := func(c *vehicle.Vehicle, next track.Position) {
		if next.X < floor.Min.X || next.X > floor.Max.X {
			c.Heading = (track.YawSteps/2 + track.YawSteps - c.Heading) % track.YawSteps
		}
		if next.Y < floor.Min.Y || next.Y > floor.Max.Y {
			c.Heading = (track.YawSteps - c.Heading) % track.YawSteps
		}
	}
	for i, c := range tc.cars {
		if e.rng.Chance(1, bumperWander) {
			if e.rng.Chance(1, 2) {
				c.Heading = (c.Heading + 4) % track.YawSteps
			} else {
				c.Heading = (c.Heading + track.YawSteps - 4) % track.YawSteps
			}
		}
		e.roam(tc, i, floor.Contains, bounce)
	}
}
