package sim

import (
	"ridesim/internal/fixed"
	"ridesim/internal/ride"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

const (
	// contactHeight is the vertical reach of a car.
	contactHeight = 16
	// maxFootprint bounds every ride's car length, for index queries.
	maxFootprint = 32
	// separation is how far apart two trains must be before a latched contact
	// can fire again.
	separation = 8
)

// trainPair is an unordered pair of trains in contact.
type trainPair struct{ a, b int32 }

func pairOf(x, y int32) trainPair {
	if x > y {
		x, y = y, x
	}
	return trainPair{a: x, b: y}
}

// contact checks car i's candidate step from -> to against other cars. Track
// cars only meet other trains; free-roaming cars also meet the rest of their
// own train. When a car is in the way the step is rejected and the contact
// resolved; it reports whether the step was rejected.
func (e *Engine) contact(tc *tickContext, i int, from, to track.Position) bool {
	self := tc.handles[i]
	roaming := tc.ride.desc.Strategy != ride.StrategyTrack
	fa := tc.ride.desc.Footprint
	heading := to.Sub(from)
	var hit *vehicle.Vehicle
	e.grid.near(to, (fa+maxFootprint)/2+1, func(h vehicle.Handle) bool {
		if h == self {
			return true
		}
		ov, err := e.arena.Get(h)
		if err != nil || (ov.Train == tc.train.ID && !roaming) {
			return true
		}
		ors, ok := e.rides[ov.Ride]
		if !ok {
			return true
		}
		if !touching(to, ov.Snapshot.Pos, fa, ors.desc.Footprint) {
			return true
		}
		rel := ov.Snapshot.Pos.Sub(from)
		if int64(heading.X)*int64(rel.X)+int64(heading.Y)*int64(rel.Y)+int64(heading.Z)*int64(rel.Z) <= 0 {
			return true
		}
		hit = ov
		return false
	})
	if hit == nil {
		return false
	}
	if hit.Train == tc.train.ID {
		e.bump(tc, tc.cars[i])
		return true
	}
	e.collide(tc, hit)
	return true
}

// bump turns a free-roaming car away from a car of its own train. The train
// keeps its speed and no event fires.
func (e *Engine) bump(tc *tickContext, car *vehicle.Vehicle) {
	tc.outcome |= Collided
	if tc.ride.desc.Collision == ride.CollisionHold {
		return
	}
	car.Heading = (car.Heading + track.YawSteps/2) % track.YawSteps
}

// touching reports whether two cars of footprints fa and fb at a and b overlap.
func touching(a, b track.Position, fa, fb int32) bool {
	d := b.Sub(a)
	if fixed.Abs(d.Z) > contactHeight {
		return false
	}
	r := int64(fa+fb) / 2
	return int64(d.X)*int64(d.X)+int64(d.Y)*int64(d.Y) < r*r
}

// collide resolves a contact between the moving train and the train owning
// hit. An event fires once per contact, while the trains are closing.
func (e *Engine) collide(tc *tickContext, hit *vehicle.Vehicle) {
	tc.outcome |= Collided
	ot, ok := e.trains[hit.Train]
	if !ok {
		return
	}
	otc, err := e.context(e.rides[hit.Ride], ot)
	if err != nil {
		return
	}
	key := pairOf(tc.train.ID, ot.ID)
	_, latched := e.contacts[key]
	e.contacts[key] = struct{}{}

	vm, vo := tc.velocity(), otc.velocity()
	if latched || !closing(tc, otc, vm, vo) {
		if tc.ride.desc.Strategy == ride.StrategyTrack && otc.ride == tc.ride && fixed.Sign(vm) == fixed.Sign(vo) &&
			fixed.Abs(vm) > fixed.Abs(vo) {
			tc.setVelocity(vo, 0)
		}
		return
	}

	before := [2]int32{vm, vo}
	tc.setVelocity(fixed.Halve(vm), tc.cars[0].Acceleration)
	otc.setVelocity(fixed.Halve(vo), otc.cars[0].Acceleration)
	response := tc.ride.desc.Collision
	e.emit(Event{
		Tick:    e.tick,
		Kind:    EventCollision,
		Ride:    tc.ride.id,
		Train:   tc.train.ID,
		Other:   ot.ID,
		Station: -1,
		Before:  before,
		After:   [2]int32{tc.velocity(), otc.velocity()},
		Detail:  response.String(),
	})
	if e.maint != nil {
		e.maint.MarkCollided(tc.ride.id, tc.train.ID)
	}

	switch response {
	case ride.CollisionCrash:
		e.startCrash(tc)
		e.startCrash(otc)
	case ride.CollisionRebound:
		if tc.ride.desc.Strategy == ride.StrategyTrack {
			tc.setVelocity(-tc.velocity(), 0)
			break
		}
		for _, c := range tc.cars {
			c.Heading = (c.Heading + track.YawSteps/2) % track.YawSteps
		}
	case ride.CollisionHold:
		tc.setVelocity(0, 0)
	}
}

// closing reports whether the mover is gaining on the other train. Trains of
// the same track ride share a direction axis; anything else closes while the
// mover moves at all.
func closing(tc, otc *tickContext, vm, vo int32) bool {
	if vm == 0 {
		return false
	}
	if tc.ride == otc.ride && tc.ride.desc.Strategy == ride.StrategyTrack {
		return int64(fixed.Sign(vm))*(int64(vm)-int64(vo)) > 0
	}
	return true
}

// releaseContacts forgets contacts between trains that have drawn apart, so a
// later impact fires a new event.
func (e *Engine) releaseContacts() {
	for p := range e.contacts {
		if !e.trainsNear(p.a, p.b) {
			delete(e.contacts, p)
		}
	}
}

func (e *Engine) trainsNear(a, b int32) bool {
	ta, okA := e.trains[a]
	tb, okB := e.trains[b]
	if !okA || !okB {
		return false
	}
	fa := e.rides[ta.Ride].desc.Footprint + separation
	fb := e.rides[tb.Ride].desc.Footprint + separation
	for _, h := range ta.Cars {
		va, err := e.arena.Get(h)
		if err != nil {
			continue
		}
		near := false
		e.grid.near(va.Snapshot.Pos, (fa+fb)/2+1, func(o vehicle.Handle) bool {
			vb, err := e.arena.Get(o)
			if err != nil || vb.Train != tb.ID {
				return true
			}
			if touching(va.Snapshot.Pos, vb.Snapshot.Pos, fa, fb) {
				near = true
				return false
			}
			return true
		})
		if near {
			return true
		}
	}
	return false
}
