package sim

import (
	"sort"

	"ridesim/internal/ride"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

// siblings finds the synchronised berths reachable from berth along the track
// in either direction, within the configured search depth.
func (e *Engine) siblings(rs *rideState, berth int) []int {
	l := rs.layout
	b := &rs.berths[berth]
	seen := map[int]bool{berth: true}
	var out []int
	look := func(from track.SegmentID, dir track.Direction) {
		for _, id := range l.Walk(from, dir, e.settings.SyncSearchSegments) {
			seg, err := l.Segment(id)
			if err != nil || seg.Station < 0 || seg.Station >= len(rs.berths) || seen[seg.Station] {
				continue
			}
			seen[seg.Station] = true
			if rs.berths[seg.Station].Synchronised {
				out = append(out, seg.Station)
			}
		}
	}
	look(b.End(), track.Forward)
	look(b.Start(), track.Backward)
	sort.Ints(out)
	return out
}

// syncReady decides whether a train waiting at a synchronised station may
// leave. Once one berth agrees to go, every sibling is released for this tick
// and the next so they all depart together.
func (e *Engine) syncReady(tc *tickContext) bool {
	rs, t := tc.ride, tc.train
	if t.Berth < 0 || t.Berth >= len(rs.berths) {
		return true
	}
	b := &rs.berths[t.Berth]
	if b.Release != 0 && e.tick <= b.Release {
		return true
	}
	sibs := e.siblings(rs, t.Berth)
	if len(sibs) == 0 {
		return true
	}
	if t.SyncWait >= e.settings.SyncTimeoutTicks {
		e.log.Warn().Int32("ride", int32(rs.id)).Int32("train", t.ID).Int("station", t.Berth).
			Uint32("waited", t.SyncWait).Msg("synchronised departure timed out")
		e.release(rs, sibs)
		return true
	}
	if e.pending(rs.id) == ride.BreakdownNone && !e.siblingsReady(rs, t.ID, sibs) {
		return false
	}
	e.release(rs, sibs)
	return true
}

func (e *Engine) siblingsReady(rs *rideState, self int32, sibs []int) bool {
	moving := e.anyMoving(rs, self)
	for _, s := range sibs {
		occ := rs.berths[s].Occupant
		if occ == ride.NoTrain {
			// an empty platform only counts once nothing can still arrive there
			if moving {
				return false
			}
			continue
		}
		ot, ok := e.trains[occ]
		if !ok || ot.Status != vehicle.StatusWaitingToDepart {
			return false
		}
	}
	return true
}

func (e *Engine) release(rs *rideState, sibs []int) {
	for _, s := range sibs {
		rs.berths[s].Release = e.tick + 1
	}
}
