package sim

import (
	"ridesim/internal/ride"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

const cableLiftWaitTicks = 32

// step runs one tick of the train's current status. Each body moves the train
// if it should move and turns the integrator outcome into the next status.
func (e *Engine) step(tc *tickContext) {
	t := tc.train
	t.StatusTicks++
	switch t.Status {
	case vehicle.StatusMovingToEndOfStation:
		e.moveToEndOfStation(tc)
	case vehicle.StatusWaitingForPassengers:
		e.waitForPassengers(tc)
	case vehicle.StatusWaitingToDepart:
		e.waitToDepart(tc)
	case vehicle.StatusDeparting:
		tc.ride.mover.depart(e, tc)
	case vehicle.StatusTravelling:
		e.travelling(tc)
	case vehicle.StatusArriving:
		e.arriving(tc)
	case vehicle.StatusUnloadingPassengers:
		e.unloading(tc)
	case vehicle.StatusWaitingForCableLift:
		e.waitForCableLift(tc)
	case vehicle.StatusTravellingCableLift:
		e.cableLift(tc)
	case vehicle.StatusStoppedByBlockBrakes:
		e.heldAtBlock(tc)
	case vehicle.StatusCrashing:
		e.crashing(tc)
	case vehicle.StatusCrashed:
	default:
		if t.Status.Operating() {
			tc.ride.mover.operate(e, tc)
		}
	}
}

func (e *Engine) pending(id ride.ID) ride.Breakdown {
	if e.maint == nil {
		return ride.BreakdownNone
	}
	return e.maint.Pending(id)
}

// breakdownHold keeps a train at the platform while a breakdown that affects
// loading is pending, reporting it once.
func (e *Engine) breakdownHold(tc *tickContext) bool {
	t := tc.train
	b := e.pending(tc.ride.id)
	if !b.HoldsStation() {
		t.BreakdownNotified = false
		return false
	}
	tc.setVelocity(0, 0)
	if !t.BreakdownNotified {
		t.BreakdownNotified = true
		e.emit(trainEvent(EventBreakdownPending, tc, b.String()))
	}
	return true
}

func (e *Engine) moveToEndOfStation(tc *tickContext) {
	rs, t := tc.ride, tc.train
	if t.Berth < 0 {
		t.SetStatus(vehicle.StatusTravelling)
		return
	}
	if rs.desc.Strategy != ride.StrategyTrack {
		tc.setVelocity(0, 0)
		if rs.berths[t.Berth].Occupy(t.ID) {
			t.SetStatus(vehicle.StatusWaitingForPassengers)
		}
		return
	}
	tc.stop = e.berthStop(rs, t.Berth)
	e.travel(tc, crawlTo(stationCrawl, track.Forward, stationAccel, stationBrake))
	if e.resolveCommon(tc) {
		return
	}
	if tc.outcome.Has(StopReached) {
		tc.setVelocity(0, 0)
		if rs.berths[t.Berth].Occupy(t.ID) {
			t.SetStatus(vehicle.StatusWaitingForPassengers)
		}
	}
}

// load sums passengers and seats over the cars. Without a manifest every car
// counts as full.
func (e *Engine) load(tc *tickContext) (passengers, capacity int) {
	if e.manifest == nil {
		return len(tc.cars), len(tc.cars)
	}
	for _, c := range tc.cars {
		passengers += e.manifest.Passengers(c.Manifest)
		capacity += e.manifest.Capacity(c.Manifest)
	}
	return passengers, capacity
}

func (e *Engine) waitForPassengers(tc *tickContext) {
	rs, t := tc.ride, tc.train
	tc.setVelocity(0, 0)
	if e.breakdownHold(tc) {
		return
	}
	cfg := rs.cfg
	p, c := e.load(tc)
	minOK := cfg.MinWait == 0 || t.StatusTicks >= cfg.MinWait
	maxHit := cfg.MaxWait > 0 && t.StatusTicks >= cfg.MaxWait
	loaded := cfg.WaitFor.Satisfied(p, c)
	if (loaded && minOK) || maxHit || (cfg.LeaveWhenAnotherArrives && e.anotherArriving(tc)) {
		t.SetStatus(vehicle.StatusWaitingToDepart)
	}
}

func (e *Engine) anotherArriving(tc *tickContext) bool {
	for _, tid := range tc.ride.trains {
		if tid == tc.train.ID {
			continue
		}
		switch e.trains[tid].Status {
		case vehicle.StatusArriving, vehicle.StatusMovingToEndOfStation:
			return true
		}
	}
	return false
}

func (e *Engine) waitToDepart(tc *tickContext) {
	rs, t := tc.ride, tc.train
	tc.setVelocity(0, 0)
	if e.breakdownHold(tc) {
		return
	}
	if rs.desc.Strategy == ride.StrategyTrack && rs.cfg.Mode.BlockSectioned() && !e.sectionClear(tc) {
		return
	}
	if rs.cfg.Synchronised && !e.syncReady(tc) {
		t.SyncWait++
		return
	}
	t.SyncWait = 0
	if t.Berth >= 0 {
		rs.berths[t.Berth].Release = 0
	}
	e.beginCycle(tc)
	t.SetStatus(vehicle.StatusDeparting)
	e.emit(trainEvent(EventDeparture, tc, rs.cfg.Mode.String()))
}

// sectionClear reports whether the block section after the platform holds no
// other train.
func (e *Engine) sectionClear(tc *tickContext) bool {
	rs, t := tc.ride, tc.train
	if t.Berth < 0 {
		return true
	}
	for _, o := range rs.layout.SectionOwners(rs.berths[t.Berth].End(), rs.owners) {
		if o != t.ID {
			return false
		}
	}
	return true
}

func (e *Engine) beginCycle(tc *tickContext) {
	rs, t := tc.ride, tc.train
	t.CircuitsLeft = rs.cfg.Circuits
	if rs.cfg.Mode == ride.ModePoweredLaunchPassthrough {
		t.CircuitsLeft++
	}
	t.Operations = max(rs.cfg.Operations, 1)
	t.Reversals = 0
	t.Heading = track.Forward
	t.Phase = 0
	if rs.cfg.Mode == ride.ModeRace && !e.anyMoving(rs, t.ID) {
		rs.raceWon = false
	}
}

// departTrack runs the platform exit of a track train: launched modes leave at
// launch speed, the rest accelerate to departure speed.
func (e *Engine) departTrack(tc *tickContext) {
	rs, t := tc.ride, tc.train
	if e.breakdownHold(tc) {
		return
	}
	var adjust func(int32) int32
	if rs.cfg.Mode.Launched() {
		launch := rs.cfg.LaunchSpeed
		adjust = func(v int32) int32 { return max(v, launch) }
	} else {
		adjust = func(v int32) int32 {
			if v < departSpeed {
				return min(v+stationAccel, departSpeed)
			}
			return v
		}
	}
	e.travel(tc, adjust)
	if e.resolveCommon(tc) {
		return
	}
	if !e.onBerth(tc) {
		if t.Berth >= 0 {
			rs.berths[t.Berth].Vacate(t.ID)
		}
		t.SetStatus(vehicle.StatusTravelling)
	}
}

// onBerth reports whether any car still stands on the train's platform.
func (e *Engine) onBerth(tc *tickContext) bool {
	rs, t := tc.ride, tc.train
	if t.Berth < 0 || t.Berth >= len(rs.berths) {
		return false
	}
	b := &rs.berths[t.Berth]
	for _, c := range tc.cars {
		if b.Contains(c.Segment) {
			return true
		}
	}
	return false
}

func (e *Engine) travelling(tc *tickContext) {
	rs, t := tc.ride, tc.train
	if e.malfunction(tc) {
		return
	}
	e.travel(tc, nil)
	if e.resolveCommon(tc) {
		return
	}
	if t.Berth >= 0 && !e.onBerth(tc) {
		rs.berths[t.Berth].Vacate(t.ID)
		t.Berth = -1
	}
	if tc.outcome.Has(OnCableLift) {
		tc.setVelocity(0, 0)
		t.SetStatus(vehicle.StatusWaitingForCableLift)
		return
	}
	if tc.outcome.Has(AtStation) {
		e.enterStation(tc)
	}
}

// enterStation decides whether a train reaching a platform stops there.
func (e *Engine) enterStation(tc *tickContext) {
	rs, t := tc.ride, tc.train
	b := tc.enteredBerth
	if rs.cfg.Mode.Shuttle() {
		if tc.velocity() < 0 && t.Reversals > 0 {
			t.Berth = b
			t.SetStatus(vehicle.StatusArriving)
		}
		return
	}
	t.CircuitsLeft--
	if t.CircuitsLeft > 0 {
		return
	}
	if rs.cfg.Mode == ride.ModeRace && !rs.raceWon {
		rs.raceWon = true
		e.emit(trainEvent(EventRaceWon, tc, ""))
	}
	t.Berth = b
	t.SetStatus(vehicle.StatusArriving)
}

func (e *Engine) arriving(tc *tickContext) {
	rs, t := tc.ride, tc.train
	if rs.desc.Strategy != ride.StrategyTrack {
		tc.setVelocity(0, 0)
		if t.Berth >= 0 && rs.desc.Strategy == ride.StrategyBoat && !rs.berths[t.Berth].Occupy(t.ID) {
			return
		}
		t.SetStatus(vehicle.StatusUnloadingPassengers)
		e.emit(trainEvent(EventArrival, tc, ""))
		return
	}
	dir := track.Forward
	if tc.velocity() < 0 {
		dir = track.Backward
	}
	failed := e.pending(rs.id) == ride.BreakdownBrakesFailure
	var adjust func(int32) int32
	if !failed {
		if dir == track.Forward {
			tc.stop = e.berthStop(rs, t.Berth)
		}
		adjust = crawlTo(stationCrawl, dir, stationAccel, stationBrake)
	}
	e.travel(tc, adjust)
	if rs.cfg.Mode.Shuttle() && tc.outcome.Has(RanOffTrack) && e.onBerth(tc) {
		tc.outcome = tc.outcome&^RanOffTrack | StopReached
	}
	if e.resolveCommon(tc) {
		return
	}
	if tc.outcome.Has(StopReached) {
		tc.setVelocity(0, 0)
		if t.Berth >= 0 && rs.berths[t.Berth].Occupy(t.ID) {
			t.SetStatus(vehicle.StatusUnloadingPassengers)
			e.emit(trainEvent(EventArrival, tc, ""))
		}
		return
	}
	if failed && t.Berth >= 0 && !rs.berths[t.Berth].Contains(tc.leader().Segment) {
		// overran the platform with no brakes; go round again
		t.Berth = -1
		t.CircuitsLeft = 1
		t.SetStatus(vehicle.StatusTravelling)
	}
}

func (e *Engine) unloading(tc *tickContext) {
	t := tc.train
	tc.setVelocity(0, 0)
	if t.StatusTicks >= e.settings.UnloadTicks {
		t.Heading = track.Forward
		t.Reversals = 0
		t.SetStatus(vehicle.StatusWaitingForPassengers)
	}
}

func (e *Engine) waitForCableLift(tc *tickContext) {
	tc.setVelocity(0, 0)
	if tc.train.StatusTicks >= cableLiftWaitTicks {
		tc.train.SetStatus(vehicle.StatusTravellingCableLift)
	}
}

// cableLift pulls the train at lift speed until no car is on a cable lift piece.
func (e *Engine) cableLift(tc *tickContext) {
	lift := tc.ride.cfg.LiftSpeed
	e.travel(tc, func(int32) int32 { return lift })
	if e.resolveCommon(tc) {
		return
	}
	for _, c := range tc.cars {
		if seg, err := tc.ride.layout.Segment(c.Segment); err == nil && seg.Describe().Has(track.FlagCableLift) {
			return
		}
	}
	tc.train.SetStatus(vehicle.StatusTravelling)
}

// heldAtBlock keeps the train at exactly zero velocity until the block ahead
// opens, then resumes travelling in the same tick.
func (e *Engine) heldAtBlock(tc *tickContext) {
	head := tc.cars[0]
	if tc.ride.layout.BlockClosed(head.Segment, tc.train.ID) {
		tc.setVelocity(0, 0)
		for _, c := range tc.cars {
			c.Remaining = 0
		}
		return
	}
	tc.train.SetStatus(vehicle.StatusTravelling)
	e.travelling(tc)
}

// malfunction stops the ride's first travelling train on the track while a
// vehicle malfunction is pending. It reports whether it handled the tick.
func (e *Engine) malfunction(tc *tickContext) bool {
	rs, t := tc.ride, tc.train
	if e.pending(rs.id) != ride.BreakdownVehicleMalfunction {
		if t.BreakdownStopped || rs.broken == t.ID {
			t.BreakdownStopped = false
			tc.cars[0].Broken = false
		}
		if rs.broken == t.ID {
			rs.broken = ride.NoTrain
		}
		return false
	}
	if rs.broken == ride.NoTrain {
		rs.broken = t.ID
	}
	if rs.broken != t.ID {
		return false
	}
	if t.BreakdownStopped {
		tc.setVelocity(0, 0)
		return true
	}
	tc.cars[0].Broken = true
	e.travel(tc, func(v int32) int32 { return towards(v, 0, malfunctionDecel) })
	if e.resolveCommon(tc) {
		return true
	}
	if tc.velocity() == 0 {
		t.BreakdownStopped = true
		e.emit(trainEvent(EventBreakdownStop, tc, ride.BreakdownVehicleMalfunction.String()))
	}
	return true
}

// resolveCommon handles the outcomes every moving status treats alike. It
// reports whether the tick is finished for the train.
func (e *Engine) resolveCommon(tc *tickContext) bool {
	rs, t := tc.ride, tc.train
	if tc.crashed || t.Status == vehicle.StatusCrashing || t.Status.Terminal() {
		return true
	}
	if tc.outcome.Has(Discontinuity) {
		tc.setVelocity(0, 0)
		t.Discontinuities++
		if t.Discontinuities == 1 {
			e.emit(trainEvent(EventTrackDiscontinuity, tc, "geometry mismatch"))
		}
		if t.Discontinuities >= e.settings.DiscontinuityTicks {
			e.derail(tc, "track discontinuity")
		}
		return true
	}
	t.Discontinuities = 0
	if tc.outcome.Has(RanOffTrack) {
		if rs.cfg.Mode.Shuttle() {
			e.reverse(tc)
			return false
		}
		e.derail(tc, "ran off track")
		return true
	}
	if tc.outcome.Has(BlockHeld) {
		t.SetStatus(vehicle.StatusStoppedByBlockBrakes)
		return true
	}
	return false
}

// reverse turns a shuttle train around at the end of its track.
func (e *Engine) reverse(tc *tickContext) {
	t := tc.train
	t.Heading = -t.Heading
	t.Reversals++
	v := tc.velocity()
	if tc.ride.desc.Powered {
		v = 0
	}
	tc.setVelocity(-v, 0)
}

func (e *Engine) derail(tc *tickContext, why string) {
	e.emit(trainEvent(EventDerailed, tc, why))
	e.startCrash(tc)
}

func (e *Engine) anyMoving(rs *rideState, except int32) bool {
	for _, tid := range rs.trains {
		if tid != except && e.trains[tid].Status.Moving() {
			return true
		}
	}
	return false
}

// watchdog notices a moving train that has not advanced for StallTicks and
// reports it without stopping the ride.
func (e *Engine) watchdog(tc *tickContext) {
	t := tc.train
	switch t.Status {
	case vehicle.StatusTravelling, vehicle.StatusArriving, vehicle.StatusDeparting,
		vehicle.StatusMovingToEndOfStation, vehicle.StatusTravellingCableLift:
	default:
		t.StallTicks = 0
		return
	}
	if t.BreakdownStopped {
		t.StallTicks = 0
		return
	}
	head := tc.cars[0]
	if head.Segment != t.LastSegment || head.Progress != t.LastProgress {
		t.LastSegment, t.LastProgress = head.Segment, head.Progress
		t.StallTicks = 0
		return
	}
	t.StallTicks++
	if t.StallTicks >= e.settings.StallTicks {
		t.StallTicks = 0
		e.emit(trainEvent(EventStalledProgress, tc, t.Status.String()))
		if e.maint != nil {
			e.maint.MarkStalled(tc.ride.id, t.ID)
		}
	}
}
